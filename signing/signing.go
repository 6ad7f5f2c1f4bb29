// Package signing verifies client-submitted transactions at the
// boundary (§6.1): decode the DER SigningPayload envelope, then
// verify against whichever of Casper's two supported key algorithms
// the payload claims, grounded on the teacher's own DER-handling
// style (crypto/p256_extended.go) for the ASN.1 half and its
// secp256k1 verification for the EVM-key half.
package signing

import (
	"crypto/ecdsa"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ed25519"
)

// Algorithm identifies which key scheme a SigningPayload was produced
// with.
type Algorithm int

const (
	AlgorithmSecp256k1 Algorithm = iota
	AlgorithmEd25519
)

// SigningPayload is the DER envelope a client wraps a transaction's
// canonical bytes in before signing (§6.1). Its structure mirrors an
// ASN.1 SEQUENCE of (algorithm OID-like tag, body OCTET STRING,
// signature OCTET STRING) — decoded with encoding/asn1 exactly the
// way the teacher's own DER signatures are, rather than any
// third-party ASN.1/BER library (no pack repo pulls one in).
type SigningPayload struct {
	Algorithm asn1.Enumerated
	Body      []byte
	Signature []byte
}

var errUnsupportedAlgorithm = errors.New("signing: unsupported algorithm")

// DecodePayload parses a DER-encoded SigningPayload.
func DecodePayload(der []byte) (*SigningPayload, error) {
	var payload SigningPayload
	rest, err := asn1.Unmarshal(der, &payload)
	if err != nil {
		return nil, fmt.Errorf("signing: decode DER payload: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("signing: %d trailing bytes after DER payload", len(rest))
	}
	return &payload, nil
}

// ecdsaSig mirrors the teacher's own p256ECDSASig DER signature struct
// (crypto/p256_extended.go), reused here for secp256k1's R/S pair.
type ecdsaSig struct {
	R, S *big.Int
}

// Verify checks payload.Signature against payload.Body for pubKey,
// dispatching on the algorithm the payload itself claims.
func Verify(payload *SigningPayload, pubKey []byte) (bool, error) {
	switch Algorithm(payload.Algorithm) {
	case AlgorithmSecp256k1:
		return verifySecp256k1(payload, pubKey)
	case AlgorithmEd25519:
		return verifyEd25519(payload, pubKey)
	default:
		return false, fmt.Errorf("%w: %d", errUnsupportedAlgorithm, payload.Algorithm)
	}
}

func verifySecp256k1(payload *SigningPayload, pubKey []byte) (bool, error) {
	pub, err := crypto.UnmarshalPubkey(pubKey)
	if err != nil {
		return false, fmt.Errorf("signing: unmarshal secp256k1 public key: %w", err)
	}
	var sig ecdsaSig
	rest, err := asn1.Unmarshal(payload.Signature, &sig)
	if err != nil || len(rest) > 0 {
		return false, fmt.Errorf("signing: decode secp256k1 DER signature: %w", err)
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return false, nil
	}
	hash := crypto.Keccak256(payload.Body)
	return ecdsa.Verify((*ecdsa.PublicKey)(pub), hash, sig.R, sig.S), nil
}

func verifyEd25519(payload *SigningPayload, pubKey []byte) (bool, error) {
	if len(pubKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("signing: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pubKey))
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), payload.Body, payload.Signature), nil
}
