package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidKey = errors.New("invalid private key or mnemonic")

// DerivationPath is the default Ethereum account path m/44'/60'/0'/0/0.
var DerivationPath = []uint32{
	bip32.FirstHardenedChild + 44,
	bip32.FirstHardenedChild + 60,
	bip32.FirstHardenedChild + 0,
	0,
	0,
}

// NewMnemonic returns a fresh 12-word BIP-39 phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// KeyFromMnemonic derives the first account key from a BIP-39 phrase.
func KeyFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: mnemonic checksum failed", ErrInvalidKey)
	}
	seed := bip39.NewSeed(mnemonic, "")
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	for _, idx := range DerivationPath {
		if key, err = key.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
	}
	return crypto.ToECDSA(common.LeftPadBytes(key.Key, 32))
}

// KeyFromHex parses a hex private key with or without 0x.
func KeyFromHex(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// ParseSecret accepts either a mnemonic phrase or a hex private key.
func ParseSecret(secret string) (*ecdsa.PrivateKey, error) {
	if len(strings.Fields(secret)) > 1 {
		return KeyFromMnemonic(secret)
	}
	return KeyFromHex(secret)
}

// OwnerAddress derives the EOA address of a hex private key.
func OwnerAddress(privateKeyHex string) (string, error) {
	key, err := KeyFromHex(privateKeyHex)
	if err != nil {
		return "", err
	}
	return keyAddress(key).Hex(), nil
}

func keyHex(key *ecdsa.PrivateKey) string {
	return hexutil.Encode(crypto.FromECDSA(key))
}

func keyAddress(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// Generated is a fresh account, used for admin key setup.
type Generated struct {
	Address    string
	PrivateKey string
	Mnemonic   string
}

// Generate creates a new mnemonic-backed account.
func Generate() (*Generated, error) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		return nil, err
	}
	key, err := KeyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	return &Generated{
		Address:    keyAddress(key).Hex(),
		PrivateKey: keyHex(key),
		Mnemonic:   mnemonic,
	}, nil
}
