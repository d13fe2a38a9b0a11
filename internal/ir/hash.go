package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// encodings to change without colliding with old hashes.
const (
	DomainDescription = "prism/description/v1"
	DomainScene       = "prism/scene/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical JSON of v under domain.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// DescriptionHash identifies the declarations of d independently of where
// they were loaded from.
func DescriptionHash(d *Description) (string, error) {
	return Fingerprint(DomainDescription, d.Encode())
}

// SceneHash identifies an encoded resolved scene.
func SceneHash(encoded map[string]any) (string, error) {
	return Fingerprint(DomainScene, encoded)
}
