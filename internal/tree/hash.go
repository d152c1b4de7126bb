package tree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// DomainSnapshot separates snapshot digests from any other hash use.
// The version suffix allows a future algorithm change.
const DomainSnapshot = "lkparity/snapshot/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns a hex SHA-256 fingerprint of v over its RFC 8785 bytes.
//
// Equal values with different member order share a digest. Numbers pass
// through IEEE 754 doubles in RFC 8785, so integers beyond 2^53 that differ
// only past double precision also share one; Equal remains the authority.
func Digest(v Value) (string, error) {
	compact, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	canon, err := jsoncanonicalizer.Transform(compact)
	if err != nil {
		return "", fmt.Errorf("digest: canonicalize: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canon), nil
}
