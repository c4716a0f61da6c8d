package workflow

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
)

func TestNewWalletCredentials(t *testing.T) {
	address, encryptedKey := NewWalletCredentials()
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		t.Fatalf("bad address %q", address)
	}
	if _, err := hex.DecodeString(address[2:]); err != nil {
		t.Fatalf("address is not hex: %q", address)
	}
	if len(encryptedKey) != 96 {
		t.Fatalf("sealed key blob has length %d, want 96", len(encryptedKey))
	}
	if _, err := hex.DecodeString(encryptedKey); err != nil {
		t.Fatalf("sealed key blob is not hex: %q", encryptedKey)
	}

	address2, encryptedKey2 := NewWalletCredentials()
	if address == address2 || encryptedKey == encryptedKey2 {
		t.Fatal("credentials must differ per wallet")
	}
}

func TestNewTxHash(t *testing.T) {
	hash := NewTxHash()
	if !strings.HasPrefix(hash, "0x") || len(hash) != 66 {
		t.Fatalf("bad tx hash %q", hash)
	}
	if _, err := hex.DecodeString(hash[2:]); err != nil {
		t.Fatalf("tx hash is not hex: %q", hash)
	}
	if hash == NewTxHash() {
		t.Fatal("tx hashes must differ per call")
	}
}

func TestNewTokenId(t *testing.T) {
	id := NewTokenId()
	n, ok := new(big.Int).SetString(id, 10)
	if !ok {
		t.Fatalf("token id %q is not decimal", id)
	}
	if n.Sign() < 0 {
		t.Fatalf("token id %q is negative", id)
	}
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	if n.Cmp(max) >= 0 {
		t.Fatalf("token id %q out of range", id)
	}
}
