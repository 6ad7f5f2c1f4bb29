package account

import "testing"

func TestHashDeterministic(t *testing.T) {
	pk := PublicKey{1, 2, 3, 4}
	h1 := Hash(pk)
	h2 := Hash(pk)
	if h1 != h2 {
		t.Fatalf("Hash is not deterministic: %x vs %x", h1, h2)
	}
}

func TestHashDiffersByInput(t *testing.T) {
	a := Hash(PublicKey{1})
	b := Hash(PublicKey{2})
	if a == b {
		t.Fatalf("distinct public keys hashed to the same KeyHash")
	}
}

func TestKeyHashIsZero(t *testing.T) {
	var h KeyHash
	if !h.IsZero() {
		t.Fatalf("zero-value KeyHash reported non-zero")
	}
	h[0] = 1
	if h.IsZero() {
		t.Fatalf("non-zero KeyHash reported zero")
	}
}

func TestPublicKeyEqual(t *testing.T) {
	a := PublicKey{1, 2, 3}
	b := PublicKey{1, 2, 3}
	c := PublicKey{1, 2, 4}
	if !a.Equal(b) {
		t.Fatalf("identical public keys compared unequal")
	}
	if a.Equal(c) {
		t.Fatalf("distinct public keys compared equal")
	}
	if a.Equal(PublicKey{1, 2}) {
		t.Fatalf("public keys of different length compared equal")
	}
}

func TestCheckedAdd(t *testing.T) {
	a := Account{Balance: 10}
	if ok := a.CheckedAdd(5); !ok || a.Balance != 15 {
		t.Fatalf("expected ok add to 15, got ok=%v balance=%d", ok, a.Balance)
	}

	overflowing := Account{Balance: ^uint64(0)}
	if ok := overflowing.CheckedAdd(1); ok {
		t.Fatalf("expected overflow to be rejected")
	}
	if overflowing.Balance != ^uint64(0) {
		t.Fatalf("overflowing add must not mutate the account, got balance=%d", overflowing.Balance)
	}
}

func TestCheckedSub(t *testing.T) {
	a := Account{Balance: 10}
	if ok := a.CheckedSub(4); !ok || a.Balance != 6 {
		t.Fatalf("expected ok sub to 6, got ok=%v balance=%d", ok, a.Balance)
	}

	underflowing := Account{Balance: 1}
	if ok := underflowing.CheckedSub(2); ok {
		t.Fatalf("expected underflow to be rejected")
	}
	if underflowing.Balance != 1 {
		t.Fatalf("underflowing sub must not mutate the account, got balance=%d", underflowing.Balance)
	}
}

func TestWillOverflowAdd(t *testing.T) {
	if WillOverflowAdd(10, 5) {
		t.Fatalf("10+5 should not overflow")
	}
	if !WillOverflowAdd(^uint64(0), 1) {
		t.Fatalf("max+1 should overflow")
	}
}

func TestPortableHashExcludesPubKey(t *testing.T) {
	a := Account{PubKey: PublicKey{1, 2, 3}, Balance: 100, Nonce: 1}
	b := Account{PubKey: PublicKey{9, 9, 9}, Balance: 100, Nonce: 1}
	if a.PortableHash() != b.PortableHash() {
		t.Fatalf("PortableHash must not depend on PubKey")
	}

	c := Account{PubKey: PublicKey{1, 2, 3}, Balance: 101, Nonce: 1}
	if a.PortableHash() == c.PortableHash() {
		t.Fatalf("PortableHash must depend on Balance")
	}
}

func TestNewAccountIsZeroValue(t *testing.T) {
	pk := PublicKey{1, 2, 3}
	a := New(pk)
	if a.Balance != 0 || a.Nonce != 0 {
		t.Fatalf("New account must start at zero balance and nonce, got %+v", a)
	}
	if !a.PubKey.Equal(pk) {
		t.Fatalf("New account must carry the given public key")
	}
}
