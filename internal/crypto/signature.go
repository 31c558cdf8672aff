// Package crypto verifies wallet signatures submitted with off-chain
// requests.
package crypto

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

// RecordMessage is the text a wallet signs to log a stake transaction.
func RecordMessage(txHash string) string {
	return "Record fixed-yield stake " + strings.ToLower(txHash)
}

// VerifyPersonalSign checks that signature is an EIP-191 personal_sign of
// message by address. It returns domain.ErrBadSignature when the recovered
// signer differs.
func VerifyPersonalSign(address, message, signature string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("crypto: invalid address %q", address)
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("crypto: decode signature: %w", err)
	}
	if len(sig) != ethcrypto.SignatureLength {
		return fmt.Errorf("crypto: signature length %d, want %d", len(sig), ethcrypto.SignatureLength)
	}

	// Wallets emit V as 27/28; SigToPub expects 0/1.
	sig = append([]byte(nil), sig...)
	if sig[ethcrypto.RecoveryIDOffset] >= 27 {
		sig[ethcrypto.RecoveryIDOffset] -= 27
	}

	pub, err := ethcrypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("crypto: recover signer: %w", err)
	}
	if ethcrypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return domain.ErrBadSignature
	}
	return nil
}
