package sigcheck

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func signFingerprint(t *testing.T, fingerprint []byte) ([]byte, [20]byte) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := crypto.Keccak256(signedMessagePrefix, fingerprint)
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig, crypto.PubkeyToAddress(key.PublicKey)
}

func TestRecoverAddress(t *testing.T) {
	fingerprint := crypto.Keccak256([]byte("prescription"))
	sig, want := signFingerprint(t, fingerprint)

	got, err := New().RecoverAddress(fingerprint, sig)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if got != want {
		t.Errorf("recovered %s, want %s", got.Hex(), want)
	}
}

func TestRecoverAddress_LegacyRecoveryID(t *testing.T) {
	fingerprint := crypto.Keccak256([]byte("prescription"))
	sig, want := signFingerprint(t, fingerprint)

	legacy := make([]byte, len(sig))
	copy(legacy, sig)
	legacy[64] += 27

	got, err := New().RecoverAddress(fingerprint, legacy)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if got != want {
		t.Errorf("recovered %s, want %s", got.Hex(), want)
	}
}

func TestRecoverAddress_DifferentFingerprint(t *testing.T) {
	fingerprint := crypto.Keccak256([]byte("prescription"))
	sig, signer := signFingerprint(t, fingerprint)

	other := crypto.Keccak256([]byte("tampered"))
	got, err := New().RecoverAddress(other, sig)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if got == signer {
		t.Error("tampered fingerprint must not recover the original signer")
	}
}

func TestRecoverAddress_Malformed(t *testing.T) {
	fingerprint := crypto.Keccak256([]byte("prescription"))
	sig, _ := signFingerprint(t, fingerprint)

	cases := []struct {
		name        string
		fingerprint []byte
		sig         []byte
		want        error
	}{
		{"short fingerprint", fingerprint[:16], sig, ErrBadFingerprintLength},
		{"short signature", fingerprint, sig[:64], ErrBadSignatureLength},
		{"long signature", fingerprint, append(append([]byte{}, sig...), 0), ErrBadSignatureLength},
		{"recovery id out of range", fingerprint, func() []byte {
			bad := make([]byte, len(sig))
			copy(bad, sig)
			bad[64] = 5
			return bad
		}(), ErrBadRecoveryID},
	}

	v := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.RecoverAddress(tc.fingerprint, tc.sig); !errors.Is(err, tc.want) {
				t.Errorf("got err %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRecoverAddress_DoesNotMutateSignature(t *testing.T) {
	fingerprint := crypto.Keccak256([]byte("prescription"))
	sig, _ := signFingerprint(t, fingerprint)
	sig[64] += 27

	before := sig[64]
	if _, err := New().RecoverAddress(fingerprint, sig); err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if sig[64] != before {
		t.Error("RecoverAddress mutated the caller's signature")
	}
}
