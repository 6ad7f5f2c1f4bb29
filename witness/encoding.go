package witness

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/trie"
	"github.com/cspr-rad/kairos-sub000/tx"
)

// Wire encoding for ProofInputs (§6.1): RLP, the same serialization
// the teacher's sequencer and trie packages use for their own batch
// and commitment encodings. Unlike ProofOutputs (guest/encode.go),
// nothing on the L1 side reads this by byte offset, so RLP's
// self-describing length framing is a better fit than a hand-rolled
// fixed layout.
//
// KairosTransaction is a Go interface, which RLP cannot encode
// directly; each transaction is framed as a (kind byte, opaque RLP
// payload) pair, the same envelope idea go-ethereum's own typed
// transactions use for their EIP-2718 encoding.

type txKind uint8

const (
	txKindDeposit txKind = iota
	txKindTransfer
	txKindWithdraw
)

type wireTx struct {
	Kind    uint8
	Payload []byte
}

type wireDeposit struct {
	Recipient []byte
	Amount    uint64
}

type wireTransfer struct {
	PublicKey []byte
	Nonce     uint64
	Recipient []byte
	Amount    uint64
}

type wireWithdraw struct {
	PublicKey []byte
	Nonce     uint64
	Amount    uint64
}

type wireNode struct {
	Hash    [32]byte
	Encoded []byte
}

type wireProofInputs struct {
	Transactions []wireTx
	SnapshotRoot [32]byte
	Nodes        []wireNode
}

func encodeTx(t tx.KairosTransaction) (wireTx, error) {
	switch v := t.(type) {
	case tx.DepositTx:
		payload, err := rlp.EncodeToBytes(wireDeposit{Recipient: v.Recipient, Amount: v.Amount})
		return wireTx{Kind: uint8(txKindDeposit), Payload: payload}, err
	case tx.TransferTx:
		payload, err := rlp.EncodeToBytes(wireTransfer{
			PublicKey: v.PublicKey,
			Nonce:     v.Nonce,
			Recipient: v.Body.Recipient,
			Amount:    v.Body.Amount,
		})
		return wireTx{Kind: uint8(txKindTransfer), Payload: payload}, err
	case tx.WithdrawTx:
		payload, err := rlp.EncodeToBytes(wireWithdraw{
			PublicKey: v.PublicKey,
			Nonce:     v.Nonce,
			Amount:    v.Body.Amount,
		})
		return wireTx{Kind: uint8(txKindWithdraw), Payload: payload}, err
	default:
		return wireTx{}, fmt.Errorf("witness: unknown transaction type %T", t)
	}
}

func decodeTx(w wireTx) (tx.KairosTransaction, error) {
	switch txKind(w.Kind) {
	case txKindDeposit:
		var d wireDeposit
		if err := rlp.DecodeBytes(w.Payload, &d); err != nil {
			return nil, err
		}
		return tx.DepositTx{Recipient: account.PublicKey(d.Recipient), Amount: d.Amount}, nil
	case txKindTransfer:
		var t wireTransfer
		if err := rlp.DecodeBytes(w.Payload, &t); err != nil {
			return nil, err
		}
		return tx.TransferTx{
			PublicKey: account.PublicKey(t.PublicKey),
			Nonce:     t.Nonce,
			Body: tx.Transfer{
				Recipient: account.PublicKey(t.Recipient),
				Amount:    t.Amount,
			},
		}, nil
	case txKindWithdraw:
		var w2 wireWithdraw
		if err := rlp.DecodeBytes(w.Payload, &w2); err != nil {
			return nil, err
		}
		return tx.WithdrawTx{
			PublicKey: account.PublicKey(w2.PublicKey),
			Nonce:     w2.Nonce,
			Body:      tx.Withdraw{Amount: w2.Amount},
		}, nil
	default:
		return nil, fmt.Errorf("witness: unknown wire transaction kind %d", w.Kind)
	}
}

// Encode serializes inputs as RLP for transport to the guest.
func Encode(inputs *ProofInputs) ([]byte, error) {
	wire := wireProofInputs{SnapshotRoot: inputs.Snapshot.Root}
	for _, t := range inputs.Transactions {
		wt, err := encodeTx(t)
		if err != nil {
			return nil, err
		}
		wire.Transactions = append(wire.Transactions, wt)
	}
	for h, enc := range inputs.Snapshot.Nodes {
		wire.Nodes = append(wire.Nodes, wireNode{Hash: h, Encoded: enc})
	}
	return rlp.EncodeToBytes(&wire)
}

// Decode parses the RLP encoding Encode produces.
func Decode(data []byte) (*ProofInputs, error) {
	var wire wireProofInputs
	if err := rlp.DecodeBytes(data, &wire); err != nil {
		return nil, fmt.Errorf("decode proof inputs: %w", err)
	}
	snap := &trie.Snapshot{
		Root:  wire.SnapshotRoot,
		Nodes: make(map[[32]byte][]byte, len(wire.Nodes)),
	}
	for _, n := range wire.Nodes {
		snap.Nodes[n.Hash] = n.Encoded
	}
	txs := make([]tx.KairosTransaction, 0, len(wire.Transactions))
	for _, wt := range wire.Transactions {
		t, err := decodeTx(wt)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return &ProofInputs{Transactions: txs, Snapshot: snap}, nil
}
