package utils

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ReferenceCodePrefix marks receipt codes handed to contributors
const ReferenceCodePrefix = "HB-"

const referenceCodeBytes = 6

// NewReferenceCode creates a short receipt code in the format "HB-XXXXXXXX"
// where the suffix is base58 of random bytes. Base58 drops 0/O/I/l so codes
// survive being read aloud or copied by hand.
func NewReferenceCode() (string, error) {
	buf := make([]byte, referenceCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reference code: %w", err)
	}

	return ReferenceCodePrefix + base58.Encode(buf), nil
}

// NormalizeReferenceCode trims whitespace and restores the prefix so both
// "HB-abc" and "abc" resolve to the same code. It returns "" when the
// remainder is not valid base58.
func NormalizeReferenceCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= len(ReferenceCodePrefix) && strings.EqualFold(code[:len(ReferenceCodePrefix)], ReferenceCodePrefix) {
		code = code[len(ReferenceCodePrefix):]
	}
	if code == "" {
		return ""
	}
	if _, err := base58.Decode(code); err != nil {
		return ""
	}
	return ReferenceCodePrefix + code
}
