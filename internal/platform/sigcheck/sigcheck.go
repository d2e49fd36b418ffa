// Package sigcheck recovers signer addresses from secp256k1 signatures.
// Actors sign a 32-byte prescription fingerprint with their ledger key; the
// registry compares the recovered address against the expected actor.
package sigcheck

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// FingerprintLen is the size of a prescription fingerprint.
	FingerprintLen = 32
	// SignatureLen is the size of a [R || S || V] signature.
	SignatureLen = 65
)

var (
	ErrBadFingerprintLength = errors.New("sigcheck: fingerprint must be 32 bytes")
	ErrBadSignatureLength   = errors.New("sigcheck: signature must be 65 bytes")
	ErrBadRecoveryID        = errors.New("sigcheck: recovery id out of range")
)

// signedMessagePrefix is the standard personal-message prefix for a 32-byte
// payload. Signing tools apply it before hashing, so recovery must too.
var signedMessagePrefix = []byte("\x19Ethereum Signed Message:\n32")

// Verifier performs stateless public-key recovery.
type Verifier struct{}

func New() *Verifier { return &Verifier{} }

// RecoverAddress recovers the address that signed fingerprint. The signature
// is 65 bytes [R || S || V]; V is accepted in either the 27/28 or the 0/1
// convention and normalized to 0/1 before recovery.
func (v *Verifier) RecoverAddress(fingerprint, sig []byte) (common.Address, error) {
	if len(fingerprint) != FingerprintLen {
		return common.Address{}, ErrBadFingerprintLength
	}
	if len(sig) != SignatureLen {
		return common.Address{}, ErrBadSignatureLength
	}

	normalized := make([]byte, SignatureLen)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return common.Address{}, ErrBadRecoveryID
	}

	digest := crypto.Keccak256(signedMessagePrefix, fingerprint)
	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("sigcheck: recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
