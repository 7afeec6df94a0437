package domain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidPrivateKey = errors.New("failed to parse private key")

// Signer is the opaque signing credential handed in by the caller. It is
// held for the duration of one invocation and never persisted.
type Signer struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewSignerFromHex parses a hex-encoded EVM private key, with or without
// the 0x prefix.
func NewSignerFromHex(raw string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

func (s *Signer) Address() string        { return s.address }
func (s *Signer) Key() *ecdsa.PrivateKey { return s.key }
