package crypto_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/fixedyield/internal/crypto"
	"github.com/alanyoungcy/fixedyield/internal/domain"
)

func sign(t *testing.T, msg string) (address string, signature string) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := ethcrypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[ethcrypto.RecoveryIDOffset] += 27
	return ethcrypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerifyPersonalSign(t *testing.T) {
	msg := crypto.RecordMessage("0xABCDEF")
	addr, sig := sign(t, msg)

	if err := crypto.VerifyPersonalSign(addr, msg, sig); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyPersonalSignWrongSigner(t *testing.T) {
	msg := crypto.RecordMessage("0x01")
	_, sig := sign(t, msg)
	other, _ := sign(t, msg)

	if err := crypto.VerifyPersonalSign(other, msg, sig); !errors.Is(err, domain.ErrBadSignature) {
		t.Errorf("wrong signer: got %v, want ErrBadSignature", err)
	}
}

func TestVerifyPersonalSignWrongMessage(t *testing.T) {
	addr, sig := sign(t, crypto.RecordMessage("0x01"))
	if err := crypto.VerifyPersonalSign(addr, crypto.RecordMessage("0x02"), sig); err == nil {
		t.Errorf("signature over another message accepted")
	}
}

func TestVerifyPersonalSignMalformed(t *testing.T) {
	cases := []struct{ addr, sig string }{
		{"nope", "0x00"},
		{"0x1111111111111111111111111111111111111111", "zz"},
		{"0x1111111111111111111111111111111111111111", "0x0102"},
	}
	for _, tc := range cases {
		if err := crypto.VerifyPersonalSign(tc.addr, "m", tc.sig); err == nil {
			t.Errorf("VerifyPersonalSign(%q, %q): expected error", tc.addr, tc.sig)
		}
	}
}

func TestRecordMessageLowercasesHash(t *testing.T) {
	if crypto.RecordMessage("0xAB") != crypto.RecordMessage("0xab") {
		t.Errorf("message must not depend on hash case")
	}
}
