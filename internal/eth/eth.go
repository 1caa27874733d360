// Package eth wraps the go-ethereum primitives used for wallet authentication:
// EIP-55 address normalization and EIP-191 personal_sign recovery.
package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/geogift/geogift/core"
)

// SignatureLength is the expected r || s || v byte length.
const SignatureLength = 65

// NormalizeAddress validates the canonical 0x + 40 hex shape and returns the
// EIP-55 checksummed form.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%q: %w", address, core.ErrInvalidAddress)
	}
	return common.HexToAddress(address).Hex(), nil
}

// RecoverPersonalSign recovers the signer address of an EIP-191 personal_sign
// signature over message. The signature must be 0x-prefixed hex encoding
// exactly 65 bytes; both 0/1 and 27/28 recovery ids are accepted.
func RecoverPersonalSign(message []byte, signature string) (common.Address, error) {
	raw, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", core.ErrInvalidSignature)
	}
	if len(raw) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d: %w", SignatureLength, len(raw), core.ErrInvalidSignature)
	}

	sig := make([]byte, SignatureLength)
	copy(sig, raw)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d: %w", raw[64], core.ErrInvalidSignature)
	}

	// TextHash applies the "\x19Ethereum Signed Message:\n" + len prefix and
	// Keccak-256, matching what compliant wallets actually sign.
	digest := accounts.TextHash(message)

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", core.ErrInvalidSignature)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
