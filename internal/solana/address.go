// Package solana provides helpers for Solana account addresses.
package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidAddress reports whether s is a well-formed Solana address:
// base58-encoded, exactly 32 bytes. It does not check curve membership,
// since mint and pool addresses are frequently program-derived (off-curve).
func ValidAddress(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// IsOnCurve reports whether s decodes to a valid ed25519 curve point.
// Wallet addresses are on-curve; program-derived addresses are not.
func IsOnCurve(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
