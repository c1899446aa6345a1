package tx

import (
	"crypto/ed25519"

	"golang.org/x/crypto/sha3"

	"github.com/leejw51/mychain/chain/account"
)

// DeriveAddress derives the 20-byte staking address from a public key (§3):
// the low 20 bytes of its Keccak-256 digest, the same construction the
// teacher's accounts use (blockchain/types/account_key*.go derive
// addresses from a hash of the public key rather than the key itself).
func DeriveAddress(pub ed25519.PublicKey) account.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)
	var addr account.Address
	copy(addr[:], sum[len(sum)-20:])
	return addr
}
