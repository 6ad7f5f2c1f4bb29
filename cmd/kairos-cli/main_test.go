package main

import (
	"encoding/asn1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/cspr-rad/kairos-sub000/signing"
)

func TestDecodeHexArg(t *testing.T) {
	got, err := decodeHexArg("aabbcc")
	if err != nil {
		t.Fatalf("decodeHexArg: %v", err)
	}
	want, _ := hex.DecodeString("aabbcc")
	if hex.EncodeToString(got) != hex.EncodeToString(want) {
		t.Fatalf("decodeHexArg mismatch: got %x want %x", got, want)
	}
}

func TestDecodeHexArgRejectsOddLength(t *testing.T) {
	if _, err := decodeHexArg("abc"); err == nil {
		t.Fatalf("expected an error for an odd-length hex string")
	}
}

func TestEncodeDERRoundTrip(t *testing.T) {
	payload := &signing.SigningPayload{
		Algorithm: asn1.Enumerated(signing.AlgorithmSecp256k1),
		Body:      []byte("body"),
		Signature: []byte("sig"),
	}
	der, err := encodeDER(payload)
	if err != nil {
		t.Fatalf("encodeDER: %v", err)
	}
	decoded, err := signing.DecodePayload(der)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if string(decoded.Body) != "body" || string(decoded.Signature) != "sig" {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestRunWithNoArgsReturnsUsageError(t *testing.T) {
	if code := run(nil); code != 2 {
		t.Fatalf("expected exit code 2 for no arguments, got %d", code)
	}
}

func TestRunWithUnknownSubcommandReturnsError(t *testing.T) {
	if code := run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("expected exit code 2 for an unknown subcommand, got %d", code)
	}
}

func TestRunTransferEndToEnd(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.hex")
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(gethcrypto.FromECDSA(key))), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Path == "/nonce" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"nonce":3}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	recipient := hex.EncodeToString([]byte{1, 2, 3, 4})
	code := run([]string{
		"transfer",
		"--server", srv.URL,
		"--private-key", keyPath,
		"--recipient", recipient,
		"--amount", "100",
	})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if gotPath != "/transfer" {
		t.Fatalf("expected the final request to hit /transfer, last path was %s", gotPath)
	}
}

func TestRunTransferMissingRequiredFlags(t *testing.T) {
	code := run([]string{"transfer", "--private-key", "", "--recipient", "", "--amount", "0"})
	if code != 2 {
		t.Fatalf("expected exit code 2 for missing required flags, got %d", code)
	}
}

func TestRunNonceEndToEnd(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.hex")
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(gethcrypto.FromECDSA(key))), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"nonce":7}`))
	}))
	defer srv.Close()

	code := run([]string{"nonce", "--server", srv.URL, "--private-key", keyPath})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}
