package witness

import (
	"testing"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/trie"
	"github.com/cspr-rad/kairos-sub000/tx"
)

func TestEncodeDecodeProofInputsRoundTrip(t *testing.T) {
	sender := account.PublicKey{1, 2, 3}
	recipient := account.PublicKey{4, 5, 6}

	inputs := &ProofInputs{
		Transactions: []tx.KairosTransaction{
			tx.DepositTx{Recipient: recipient, Amount: 10},
			tx.TransferTx{PublicKey: sender, Nonce: 1, Body: tx.Transfer{Recipient: recipient, Amount: 5}},
			tx.WithdrawTx{PublicKey: sender, Nonce: 2, Body: tx.Withdraw{Amount: 3}},
		},
		Snapshot: &trie.Snapshot{
			Root: [32]byte{0xAA},
			Nodes: map[[32]byte][]byte{
				{0x01}: {0x01, 0x02, 0x03},
				{0x02}: {0x04, 0x05},
			},
		},
	}

	encoded, err := Encode(inputs)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Snapshot.Root != inputs.Snapshot.Root {
		t.Fatalf("snapshot root mismatch")
	}
	if len(decoded.Snapshot.Nodes) != len(inputs.Snapshot.Nodes) {
		t.Fatalf("snapshot node count mismatch: got %d want %d", len(decoded.Snapshot.Nodes), len(inputs.Snapshot.Nodes))
	}
	if len(decoded.Transactions) != len(inputs.Transactions) {
		t.Fatalf("transaction count mismatch: got %d want %d", len(decoded.Transactions), len(inputs.Transactions))
	}

	dep, ok := decoded.Transactions[0].(tx.DepositTx)
	if !ok || dep.Amount != 10 {
		t.Fatalf("deposit round trip failed: %+v", decoded.Transactions[0])
	}
	tr, ok := decoded.Transactions[1].(tx.TransferTx)
	if !ok || tr.Nonce != 1 || tr.Body.Amount != 5 {
		t.Fatalf("transfer round trip failed: %+v", decoded.Transactions[1])
	}
	wd, ok := decoded.Transactions[2].(tx.WithdrawTx)
	if !ok || wd.Nonce != 2 || wd.Body.Amount != 3 {
		t.Fatalf("withdraw round trip failed: %+v", decoded.Transactions[2])
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatalf("expected Decode to reject malformed RLP")
	}
}
