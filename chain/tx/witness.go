package tx

import (
	"crypto/ed25519"

	"github.com/leejw51/mychain/chain/account"
	chainerrors "github.com/leejw51/mychain/chain/errors"
)

// Witness is the signature material attached to a transaction: the
// signer's public key and their signature over the transaction's signing
// bytes. §4.8 specifies verification in terms of "recovering the staking
// address from the witness"; ed25519 has no public-key-recovery-from-
// signature primitive (unlike secp256k1, which the teacher's retrieved
// slice does not vendor a usable implementation of), so the witness
// carries the public key explicitly and recovery reduces to deriving the
// address from it and checking the signature validates.
type Witness struct {
	PublicKey ed25519.PublicKey
	Signature []byte
}

// Verify checks that the witness signs signBytes and that the address
// derived from its public key matches declared (§4.8).
func Verify(w Witness, signBytes []byte, declared account.Address) error {
	if len(w.PublicKey) != ed25519.PublicKeySize {
		return chainerrors.New(chainerrors.KindValidation, "witness: malformed public key")
	}
	if !ed25519.Verify(w.PublicKey, signBytes, w.Signature) {
		return chainerrors.New(chainerrors.KindValidation, "witness: signature does not verify")
	}
	recovered := DeriveAddress(w.PublicKey)
	if recovered != declared {
		return chainerrors.New(chainerrors.KindValidation, "witness: recovered address does not match declared address")
	}
	return nil
}
