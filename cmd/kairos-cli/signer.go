package main

import (
	"crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"
	"os"
	"strings"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/cspr-rad/kairos-sub000/signing"
)

// loadPrivateKey reads a raw hex-encoded secp256k1 private key from
// path, the same file format the original CLI's
// crypto/private_key.rs reads before handing it to a Signer.
func loadPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key file %s: %w", path, err)
	}
	hexKey := strings.TrimPrefix(strings.TrimSpace(string(data)), "0x")
	key, err := gethcrypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

type ecdsaSig struct {
	R, S *big.Int
}

// signBody signs body's Keccak256 hash with key and wraps the result
// in the DER SigningPayload envelope the server's signing package
// expects (§6.1), mirroring the server-side verifySecp256k1 path in
// reverse.
func signBody(key *ecdsa.PrivateKey, body []byte) (*signing.SigningPayload, error) {
	hash := gethcrypto.Keccak256(body)
	sig, err := gethcrypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("sign body: %w", err)
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	der, err := asn1.Marshal(ecdsaSig{R: r, S: s})
	if err != nil {
		return nil, fmt.Errorf("DER-encode signature: %w", err)
	}
	return &signing.SigningPayload{
		Algorithm: asn1.Enumerated(signing.AlgorithmSecp256k1),
		Body:      body,
		Signature: der,
	}, nil
}

// publicKeyBytes returns key's uncompressed public key, the form
// gethcrypto.UnmarshalPubkey expects on the verifying side.
func publicKeyBytes(key *ecdsa.PrivateKey) []byte {
	return gethcrypto.FromECDSAPub(&key.PublicKey)
}
