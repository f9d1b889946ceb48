// Package signing adapts the teacher's transaction-signing stack
// (pkg/crypto: secp256k1 ECDSA + EIP-712) into a capability for signing
// and verifying the three trader-initiated operations spec.md leaves to
// an external instruction-signature check: place, cancel, withdraw.
package signing

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/marketkey"
)

// Signer holds a trader's secp256k1 key pair.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// GenerateKey creates a new random key pair.
func GenerateKey() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("signing: generate key: %w", err)
	}
	return fromPrivateKey(privateKey)
}

// FromPrivateKeyHex loads a key pair from a hex-encoded private key.
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("signing: parse private key: %w", err)
	}
	return fromPrivateKey(privateKey)
}

func fromPrivateKey(pk *ecdsa.PrivateKey) (*Signer, error) {
	pubKey, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signing: public key is not ECDSA")
	}
	return &Signer{privateKey: pk, address: crypto.PubkeyToAddress(*pubKey)}, nil
}

// Address is the trader's 20-byte Ethereum-style address.
func (s *Signer) Address() common.Address {
	return s.address
}

// PrivateKeyHex exports the raw private key as hex, for a caller that
// just generated a throwaway key and needs to persist it (the
// cmd/sign-order CLI, a test fixture). Never log this in a server
// process.
func (s *Signer) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(s.privateKey))
}

// Key is the trader's 32-byte market identity: the address left-padded
// into a Hash, the same widening every other capability interface
// expects of a Key (marketkey.Key).
func (s *Signer) Key() marketkey.Key {
	return common.BytesToHash(s.address.Bytes())
}

// Sign signs a 32-byte digest, returning a 65-byte [R || S || V] signature.
func (s *Signer) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("signing: digest must be 32 bytes, got %d", len(digest))
	}
	return crypto.Sign(digest, s.privateKey)
}

// RecoverAddress recovers the signer's address from a digest and signature.
func RecoverAddress(digest, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("signing: invalid signature length %d", len(signature))
	}
	pubKeyBytes, err := crypto.Ecrecover(digest, signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("signing: recover public key: %w", err)
	}
	pubKey, err := crypto.UnmarshalPubkey(pubKeyBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("signing: unmarshal public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}
