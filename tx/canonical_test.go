package tx

import (
	"bytes"
	"testing"

	"github.com/cspr-rad/kairos-sub000/account"
)

func TestTransferBodyRoundTrip(t *testing.T) {
	recipient := account.PublicKey{1, 2, 3, 4}
	body, err := EncodeTransferBody(7, recipient, 12345)
	if err != nil {
		t.Fatalf("EncodeTransferBody: %v", err)
	}
	nonce, gotRecipient, amount, err := DecodeTransferBody(body)
	if err != nil {
		t.Fatalf("DecodeTransferBody: %v", err)
	}
	if nonce != 7 || amount != 12345 || !bytes.Equal(gotRecipient, recipient) {
		t.Fatalf("round trip mismatch: nonce=%d recipient=%x amount=%d", nonce, gotRecipient, amount)
	}
}

func TestWithdrawBodyRoundTrip(t *testing.T) {
	body, err := EncodeWithdrawBody(9, 999)
	if err != nil {
		t.Fatalf("EncodeWithdrawBody: %v", err)
	}
	nonce, amount, err := DecodeWithdrawBody(body)
	if err != nil {
		t.Fatalf("DecodeWithdrawBody: %v", err)
	}
	if nonce != 9 || amount != 999 {
		t.Fatalf("round trip mismatch: nonce=%d amount=%d", nonce, amount)
	}
}

func TestTransferBodyClaimsAreBoundToSignedBytes(t *testing.T) {
	recipient := account.PublicKey{1}
	other := account.PublicKey{2}
	bodyA, err := EncodeTransferBody(1, recipient, 100)
	if err != nil {
		t.Fatalf("EncodeTransferBody: %v", err)
	}
	bodyB, err := EncodeTransferBody(1, other, 100)
	if err != nil {
		t.Fatalf("EncodeTransferBody: %v", err)
	}
	if bytes.Equal(bodyA, bodyB) {
		t.Fatalf("encodings for different recipients must differ")
	}
}

func TestDecodeTransferBodyRejectsGarbage(t *testing.T) {
	if _, _, _, err := DecodeTransferBody([]byte{0xff, 0xff}); err == nil {
		t.Fatalf("expected DecodeTransferBody to reject malformed RLP")
	}
}

func TestDecodeWithdrawBodyRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWithdrawBody([]byte{0xff, 0xff}); err == nil {
		t.Fatalf("expected DecodeWithdrawBody to reject malformed RLP")
	}
}
