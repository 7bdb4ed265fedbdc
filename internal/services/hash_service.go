package services

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
)

// HashService produces and validates the SHA-256 content digests that key
// photo dedup: uploads are matched against existing photos by digest, and
// the bulk check endpoint lets a client skip uploads for bytes the library
// already holds.
type HashService struct {
	sha256Regex *regexp.Regexp
}

func NewHashService() *HashService {
	return &HashService{
		sha256Regex: regexp.MustCompile(`^[a-f0-9]{64}$`),
	}
}

// ComputeHash digests a stream without buffering it.
func (s *HashService) ComputeHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeHashBytes digests an already-buffered upload body.
func (s *HashService) ComputeHashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// NormalizeHash lowercases a client-supplied digest and strips an optional
// "sha256:" prefix so lookups compare against the stored form.
func (s *HashService) NormalizeHash(hash string) string {
	normalized := strings.TrimSpace(hash)
	if strings.HasPrefix(strings.ToLower(normalized), "sha256:") {
		normalized = normalized[7:]
	}
	return strings.ToLower(normalized)
}

// IsValidHash reports whether the string normalizes to a well-formed
// SHA-256 hex digest. Malformed digests can never match a stored photo.
func (s *HashService) IsValidHash(hash string) bool {
	if strings.TrimSpace(hash) == "" {
		return false
	}
	return s.sha256Regex.MatchString(s.NormalizeHash(hash))
}
