package workflow

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"os"
)

// Mock chain backend. Mints happen instantly and hashes are random but
// wire-shaped, so the rest of the platform (wallets, certificate events,
// verification) exercises the real data model. A live RPC client slots in
// behind the same functions.
// TODO: replace with the JSON-RPC minting client once the contract is deployed.

// DefaultChain is the network redeemed certificates are minted on.
func DefaultChain() string {
	if v := os.Getenv("CHAIN_NETWORK"); v != "" {
		return v
	}
	return "polygon"
}

// NewWalletCredentials returns a fresh 0x-prefixed 20-byte address and the
// sealed private-key blob stored with it. The mock backend holds no real key
// material, so the blob is random bytes in the same shape the KMS-wrapped key
// will take.
func NewWalletCredentials() (address, encryptedKey string) {
	return "0x" + randomHex(20), randomHex(48)
}

// NewTxHash returns a 0x-prefixed 32-byte transaction hash. Used for both
// mints and certificate transfers.
func NewTxHash() string {
	return "0x" + randomHex(32)
}

// NewTokenId returns a random uint256 token id in decimal form.
func NewTokenId() string {
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic(err)
	}
	return n.String()
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
