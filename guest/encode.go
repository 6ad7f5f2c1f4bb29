package guest

import (
	"encoding/binary"
	"fmt"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/tx"
)

// ProofOutputs wire format, position-stable the way
// wyf-ACCEPT-eth2030/pkg/rollup/execute.go's EXECUTE precompile output
// is: a fixed-offset header the L1 verifier contract reads directly,
// followed by length-prefixed variable records for the two fields
// whose count isn't known up front.
//
//	[0:32]   preRoot
//	[32:64]  postRoot
//	[64:68]  numDeposits     (uint32, big-endian)
//	[68:...] deposits        (length-prefixed records)
//	...      numWithdrawals  (uint32, big-endian)
//	...      withdrawals     (length-prefixed records)
const headerLen = 64 + 4

// Encode serializes o in the fixed-header wire format the L1 verifier
// reads.
func Encode(o *ProofOutputs) []byte {
	buf := make([]byte, headerLen)
	copy(buf[0:32], o.PreRoot[:])
	copy(buf[32:64], o.PostRoot[:])
	binary.BigEndian.PutUint32(buf[64:68], uint32(len(o.Deposits)))
	for _, d := range o.Deposits {
		buf = appendLenPrefixed(buf, d.Recipient)
		buf = binary.BigEndian.AppendUint64(buf, d.Amount)
	}

	numWithdrawalsOffset := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(buf[numWithdrawalsOffset:], uint32(len(o.Withdrawals)))
	for _, w := range o.Withdrawals {
		buf = appendLenPrefixed(buf, w.PublicKey)
		buf = binary.BigEndian.AppendUint64(buf, w.Nonce)
		buf = binary.BigEndian.AppendUint64(buf, w.Body.Amount)
	}
	return buf
}

func appendLenPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

// Decode parses the wire format Encode produces.
func Decode(data []byte) (*ProofOutputs, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("guest: proof outputs too short: %d bytes", len(data))
	}
	o := &ProofOutputs{}
	copy(o.PreRoot[:], data[0:32])
	copy(o.PostRoot[:], data[32:64])
	numDeposits := binary.BigEndian.Uint32(data[64:68])

	off := headerLen
	for i := uint32(0); i < numDeposits; i++ {
		recipient, next, err := readLenPrefixed(data, off)
		if err != nil {
			return nil, err
		}
		off = next
		if off+8 > len(data) {
			return nil, fmt.Errorf("guest: truncated deposit amount")
		}
		amount := binary.BigEndian.Uint64(data[off : off+8])
		off += 8
		o.Deposits = append(o.Deposits, tx.L1Deposit{Recipient: account.PublicKey(recipient), Amount: amount})
	}

	if off+4 > len(data) {
		return nil, fmt.Errorf("guest: truncated withdrawal count")
	}
	numWithdrawals := binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	for i := uint32(0); i < numWithdrawals; i++ {
		pubKey, next, err := readLenPrefixed(data, off)
		if err != nil {
			return nil, err
		}
		off = next
		if off+16 > len(data) {
			return nil, fmt.Errorf("guest: truncated withdrawal body")
		}
		nonce := binary.BigEndian.Uint64(data[off : off+8])
		amount := binary.BigEndian.Uint64(data[off+8 : off+16])
		off += 16
		o.Withdrawals = append(o.Withdrawals, tx.Signed[tx.Withdraw]{
			PublicKey: account.PublicKey(pubKey),
			Nonce:     nonce,
			Body:      tx.Withdraw{Amount: amount},
		})
	}
	return o, nil
}

func readLenPrefixed(data []byte, off int) (value []byte, next int, err error) {
	if off+4 > len(data) {
		return nil, 0, fmt.Errorf("guest: truncated length prefix")
	}
	n := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if off+n > len(data) {
		return nil, 0, fmt.Errorf("guest: truncated length-prefixed field")
	}
	return append([]byte(nil), data[off:off+n]...), off + n, nil
}
