package executor

import (
	"errors"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/trie"
	"github.com/cspr-rad/kairos-sub000/tx"
)

// Trie is the minimal surface ApplyBatch needs from a trie
// transaction. *trie.Txn satisfies it whether it was opened against a
// FullStore, a witnessed FullStore transaction, or a SnapshotReader —
// the same executor code runs unmodified in all three backing-store
// modes (§4.1, §4.2).
type Trie interface {
	GetAccount(k account.KeyHash) (*account.Account, error)
	PutAccount(k account.KeyHash, a account.Account) error
}

// Mode selects how ApplyBatch reacts to a failing transaction.
type Mode int

const (
	// Prechecked skips a failing transaction and continues with the
	// rest of the batch. Used server-side while assembling a batch's
	// witness (§4.3): failing transactions are simply dropped from
	// the batch that gets proven. A failure of the trie itself (a
	// missing node, a hash mismatch, a store read error) still aborts
	// the batch.
	Prechecked Mode = iota
	// Authoritative aborts the whole batch on the first failure.
	// Used by the guest (§4.4): a batch the server already
	// prechecked should never fail replay, so any failure there is
	// treated as fatal, not recoverable.
	Authoritative
)

// Result collects the externally visible effects of a batch: the
// deposits and withdrawals that were actually applied, and the
// transactions (by index) that were rejected. Rejected is always
// empty in Authoritative mode, since the first rejection aborts the
// batch.
type Result struct {
	Deposits    []tx.L1Deposit
	Withdrawals []tx.Signed[tx.Withdraw]
	Rejected    []*TxError
}

// ApplyBatch runs txs against t in order, per spec.md §4.2's
// per-transaction rules. In Prechecked mode it returns once every
// transaction has been attempted, with failures recorded in
// Result.Rejected rather than returned as an error, except that a
// failure of the trie itself is returned at once. In Authoritative
// mode it returns immediately on the first failure: the caller (the
// guest driver) must then discard t rather than trust any partial
// mutation it may already have made.
func ApplyBatch(t Trie, txs []tx.KairosTransaction, mode Mode) (Result, error) {
	var res Result
	for i, txn := range txs {
		var err error
		switch v := txn.(type) {
		case tx.DepositTx:
			err = applyDeposit(t, tx.L1Deposit(v))
			if err == nil {
				res.Deposits = append(res.Deposits, tx.L1Deposit(v))
			}
		case tx.TransferTx:
			err = applyTransfer(t, tx.Signed[tx.Transfer](v))
		case tx.WithdrawTx:
			err = applyWithdraw(t, tx.Signed[tx.Withdraw](v))
			if err == nil {
				res.Withdrawals = append(res.Withdrawals, tx.Signed[tx.Withdraw](v))
			}
		default:
			err = newTxErr(NoSuchAccount, i)
		}
		if err == nil {
			continue
		}
		txErr := asTxError(err, i)
		// asTxError sets Err only for errors that came from the trie.
		if mode == Authoritative || txErr.Err != nil {
			return res, txErr
		}
		res.Rejected = append(res.Rejected, txErr)
	}
	return res, nil
}

func asTxError(err error, index int) *TxError {
	var te *TxError
	if errors.As(err, &te) {
		te.Index = index
		return te
	}
	if errors.Is(err, trie.ErrAccessOutsideSnapshot) {
		return wrapTxErr(AccessOutsideSnapshot, index, err)
	}
	if errors.Is(err, trie.ErrHashMismatch) {
		return wrapTxErr(HashMismatch, index, err)
	}
	return wrapTxErr(NoSuchAccount, index, err)
}

// applyDeposit implements §4.2's deposit rules: load-or-create the
// recipient, reject on overflow, otherwise credit. Deposits never
// touch a nonce. They reject only on overflow or when the account
// stored at the recipient's key carries a different PubKey
// (HashMismatch) — an L1 deposit has already been irrevocably locked
// on L1 by the time it reaches here.
func applyDeposit(t Trie, d tx.L1Deposit) error {
	key := account.Hash(d.Recipient)
	acc, err := t.GetAccount(key)
	if err != nil {
		return err
	}
	if acc == nil {
		a := account.New(d.Recipient)
		acc = &a
	} else if !acc.PubKey.Equal(d.Recipient) {
		return newTxErr(HashMismatch, 0)
	}
	if account.WillOverflowAdd(acc.Balance, d.Amount) {
		return newTxErr(Overflow, 0)
	}
	acc.Balance += d.Amount
	return t.PutAccount(key, *acc)
}

// applyTransfer implements §4.2's six-step transfer sequence. All
// prechecks (steps 1-5) run before any mutation (step 6), so a
// rejected transfer never partially debits the sender or credits the
// recipient — the atomicity invariant this corrects relative to
// eager-mutation designs that check balance only after already
// bumping the nonce.
func applyTransfer(t Trie, s tx.Signed[tx.Transfer]) error {
	if s.Body.Amount == 0 {
		return newTxErr(ZeroAmount, 0)
	}
	if s.PublicKey.Equal(s.Body.Recipient) {
		return newTxErr(SelfTransfer, 0)
	}

	senderKey := account.Hash(s.PublicKey)
	sender, err := t.GetAccount(senderKey)
	if err != nil {
		return err
	}
	if sender == nil {
		return newTxErr(NoSuchAccount, 0)
	}
	if !sender.PubKey.Equal(s.PublicKey) {
		return newTxErr(HashMismatch, 0)
	}
	if sender.Nonce != s.Nonce {
		return newTxErr(NonceMismatch, 0)
	}

	recipientKey := account.Hash(s.Body.Recipient)
	recipient, err := t.GetAccount(recipientKey)
	if err != nil {
		return err
	}
	if recipient == nil {
		r := account.New(s.Body.Recipient)
		recipient = &r
	}

	if sender.Balance < s.Body.Amount {
		return newTxErr(InsufficientBalance, 0)
	}
	if account.WillOverflowAdd(recipient.Balance, s.Body.Amount) {
		return newTxErr(Overflow, 0)
	}

	sender.Balance -= s.Body.Amount
	sender.Nonce++
	recipient.Balance += s.Body.Amount

	if err := t.PutAccount(senderKey, *sender); err != nil {
		return err
	}
	return t.PutAccount(recipientKey, *recipient)
}

// applyWithdraw implements §4.2's withdraw rules: debit the signer and
// record it in Result.Withdrawals for the settlement submitter to
// carry to L1.
func applyWithdraw(t Trie, s tx.Signed[tx.Withdraw]) error {
	if s.Body.Amount == 0 {
		return newTxErr(ZeroAmount, 0)
	}

	key := account.Hash(s.PublicKey)
	acc, err := t.GetAccount(key)
	if err != nil {
		return err
	}
	if acc == nil {
		return newTxErr(NoSuchAccount, 0)
	}
	if !acc.PubKey.Equal(s.PublicKey) {
		return newTxErr(HashMismatch, 0)
	}
	if acc.Nonce != s.Nonce {
		return newTxErr(NonceMismatch, 0)
	}
	if acc.Balance < s.Body.Amount {
		return newTxErr(InsufficientBalance, 0)
	}

	acc.Balance -= s.Body.Amount
	acc.Nonce++
	return t.PutAccount(key, *acc)
}
