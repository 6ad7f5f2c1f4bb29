// Package tx defines the wire-level transaction types the executor
// consumes: deposits observed on L1, and the two client-signed L2
// transaction kinds (transfer, withdraw).
package tx

import "github.com/cspr-rad/kairos-sub000/account"

// L1Deposit is a credit observed on L1, ordered globally by an
// L1-assigned monotonically increasing index. The index itself is not
// part of this struct — it is bookkeeping owned by the deposit
// follower (package deposit), not part of the executed transaction's
// data model.
type L1Deposit struct {
	Recipient account.PublicKey
	Amount    uint64
}

// Signed wraps a client-authored transaction body with the signer's
// public key and the nonce the signer claims for it. Signature
// verification happens at the boundary (package signing) before a
// Signed[T] ever reaches the executor; by the time the executor sees
// one, PublicKey is trusted to be the actual signer.
type Signed[T any] struct {
	PublicKey account.PublicKey
	Nonce     uint64
	Body      T
}

// Transfer moves Amount from the signer to Recipient.
type Transfer struct {
	Recipient account.PublicKey
	Amount    uint64
}

// Withdraw debits Amount from the signer, destined for L1.
type Withdraw struct {
	Amount uint64
}

// KairosTransaction is the sum type the executor's apply_batch
// switches on. Exactly one of DepositTx, TransferTx, WithdrawTx
// implements it for any given value.
type KairosTransaction interface {
	kairosTransaction()
}

// DepositTx is an L1Deposit lifted into the KairosTransaction sum
// type.
type DepositTx L1Deposit

func (DepositTx) kairosTransaction() {}

// TransferTx is a signed Transfer.
type TransferTx Signed[Transfer]

func (TransferTx) kairosTransaction() {}

// WithdrawTx is a signed Withdraw.
type WithdrawTx Signed[Withdraw]

func (WithdrawTx) kairosTransaction() {}
