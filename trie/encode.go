package trie

import (
	"encoding/binary"
	"fmt"

	"github.com/cspr-rad/kairos-sub000/account"
)

// On-disk/on-wire node encoding. Mirrors
// wyf-ACCEPT-eth2030/pkg/trie/bintrie's SerializeNode/DeserializeNode
// pair: a one-byte type tag followed by a fixed-or-length-prefixed
// body. A branchNode's children are always encoded as their hash —
// decoding a branch yields hashNode children, resolved lazily by
// whichever store owns the encoding.
const (
	nodeTagEmpty  = 0
	nodeTagLeaf   = 1
	nodeTagBranch = 2
)

func encodeNode(n node) []byte {
	switch t := n.(type) {
	case emptyNode:
		return []byte{nodeTagEmpty}
	case *leafNode:
		buf := make([]byte, 0, 1+32+2+len(t.account.PubKey)+16)
		buf = append(buf, nodeTagLeaf)
		buf = append(buf, t.path[:]...)
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(t.account.PubKey)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, t.account.PubKey...)
		var numBuf [16]byte
		binary.LittleEndian.PutUint64(numBuf[0:8], t.account.Balance)
		binary.LittleEndian.PutUint64(numBuf[8:16], t.account.Nonce)
		buf = append(buf, numBuf[:]...)
		return buf
	case *branchNode:
		buf := make([]byte, 1+2+32+32)
		buf[0] = nodeTagBranch
		binary.BigEndian.PutUint16(buf[1:3], uint16(t.bit))
		lh := t.left.hash()
		rh := t.right.hash()
		copy(buf[3:35], lh[:])
		copy(buf[35:67], rh[:])
		return buf
	case hashNode:
		panic("trie: cannot encode an unresolved hashNode directly")
	default:
		panic("trie: unknown node type")
	}
}

func decodeNode(data []byte) (node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("trie: empty node encoding")
	}
	switch data[0] {
	case nodeTagEmpty:
		return emptyNode{}, nil
	case nodeTagLeaf:
		if len(data) < 1+32+2 {
			return nil, fmt.Errorf("trie: truncated leaf encoding")
		}
		var path account.KeyHash
		copy(path[:], data[1:33])
		pkLen := int(binary.BigEndian.Uint16(data[33:35]))
		offset := 35
		if len(data) < offset+pkLen+16 {
			return nil, fmt.Errorf("trie: truncated leaf encoding")
		}
		pubKey := append(account.PublicKey(nil), data[offset:offset+pkLen]...)
		offset += pkLen
		balance := binary.LittleEndian.Uint64(data[offset : offset+8])
		nonce := binary.LittleEndian.Uint64(data[offset+8 : offset+16])
		return &leafNode{
			path: path,
			account: account.Account{
				PubKey:  pubKey,
				Balance: balance,
				Nonce:   nonce,
			},
		}, nil
	case nodeTagBranch:
		if len(data) != 1+2+32+32 {
			return nil, fmt.Errorf("trie: malformed branch encoding")
		}
		bit := int(binary.BigEndian.Uint16(data[1:3]))
		var lh, rh [32]byte
		copy(lh[:], data[3:35])
		copy(rh[:], data[35:67])
		return &branchNode{bit: bit, left: hashNode(lh), right: hashNode(rh)}, nil
	default:
		return nil, fmt.Errorf("trie: unknown node tag %d", data[0])
	}
}
