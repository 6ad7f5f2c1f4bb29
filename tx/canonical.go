package tx

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/cspr-rad/kairos-sub000/account"
)

// Canonical body encodings (§6.1): the exact bytes a client signs and
// a server must reconstruct identically before trusting a request's
// claimed nonce/recipient/amount. Signing only proves a signer
// produced some signature over some bytes; without this, a server
// could accept an attacker-chosen nonce/amount alongside a signature
// that was never actually computed over them.

type canonicalTransfer struct {
	Nonce     uint64
	Recipient []byte
	Amount    uint64
}

type canonicalWithdraw struct {
	Nonce  uint64
	Amount uint64
}

// EncodeTransferBody returns the canonical bytes a client signs for a
// transfer.
func EncodeTransferBody(nonce uint64, recipient account.PublicKey, amount uint64) ([]byte, error) {
	return rlp.EncodeToBytes(canonicalTransfer{Nonce: nonce, Recipient: recipient, Amount: amount})
}

// DecodeTransferBody recovers the (nonce, recipient, amount) a signed
// transfer body claims; the server takes a transfer's fields from
// these decoded values only.
func DecodeTransferBody(body []byte) (nonce uint64, recipient account.PublicKey, amount uint64, err error) {
	var c canonicalTransfer
	if err := rlp.DecodeBytes(body, &c); err != nil {
		return 0, nil, 0, fmt.Errorf("tx: decode canonical transfer body: %w", err)
	}
	return c.Nonce, account.PublicKey(c.Recipient), c.Amount, nil
}

// EncodeWithdrawBody returns the canonical bytes a client signs for a
// withdrawal.
func EncodeWithdrawBody(nonce uint64, amount uint64) ([]byte, error) {
	return rlp.EncodeToBytes(canonicalWithdraw{Nonce: nonce, Amount: amount})
}

// DecodeWithdrawBody recovers the (nonce, amount) a signed withdrawal
// body claims.
func DecodeWithdrawBody(body []byte) (nonce uint64, amount uint64, err error) {
	var c canonicalWithdraw
	if err := rlp.DecodeBytes(body, &c); err != nil {
		return 0, 0, fmt.Errorf("tx: decode canonical withdraw body: %w", err)
	}
	return c.Nonce, c.Amount, nil
}
