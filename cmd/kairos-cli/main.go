// Command kairos-cli submits signed transfer and withdraw
// transactions to a running kairosd node, and reports the nonce a
// pending transaction should use.
//
// Usage:
//
//	kairos-cli transfer --private-key FILE --recipient HEX --amount NUM
//	kairos-cli withdraw --private-key FILE --amount NUM
//	kairos-cli nonce --private-key FILE
package main

import (
	"context"
	"encoding/asn1"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/signing"
	"github.com/cspr-rad/kairos-sub000/tx"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: kairos-cli <transfer|withdraw|nonce> [flags]")
		return 2
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "transfer":
		return runTransfer(rest)
	case "withdraw":
		return runWithdraw(rest)
	case "nonce":
		return runNonce(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", sub)
		return 2
	}
}

func commonFlags(fs *flag.FlagSet) (serverAddr, privateKeyPath *string) {
	serverAddr = fs.String("server", "http://127.0.0.1:8080", "kairosd HTTP API address")
	privateKeyPath = fs.String("private-key", "", "path to a hex-encoded secp256k1 private key file")
	return
}

func runTransfer(args []string) int {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	serverAddr, privateKeyPath := commonFlags(fs)
	recipientHex := fs.String("recipient", "", "recipient public key, hex-encoded")
	amount := fs.Uint64("amount", 0, "amount in motes")
	nonce := fs.Uint64("nonce", 0, "nonce to use (default: fetched from the server)")
	useServerNonce := fs.Bool("auto-nonce", true, "fetch the current nonce from the server instead of using --nonce")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *privateKeyPath == "" || *recipientHex == "" || *amount == 0 {
		fmt.Fprintln(os.Stderr, "transfer requires --private-key, --recipient, and --amount")
		return 2
	}

	key, err := loadPrivateKey(*privateKeyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	recipient, err := decodeHexArg(*recipientHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, "malformed recipient:", err)
		return 1
	}

	c := newClient(*serverAddr)
	ctx := context.Background()

	n := *nonce
	if *useServerNonce {
		n, err = c.nonce(ctx, publicKeyBytes(key))
		if err != nil {
			fmt.Fprintln(os.Stderr, "fetch nonce:", err)
			return 1
		}
	}

	body, err := tx.EncodeTransferBody(n, account.PublicKey(recipient), *amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode transfer body:", err)
		return 1
	}
	payload, err := signBody(key, body)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	der, err := encodeDER(payload)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := c.postSigned(ctx, "/transfer", publicKeyBytes(key), der); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("transfer submitted: nonce=%d recipient=%x amount=%d\n", n, recipient, *amount)
	return 0
}

func runWithdraw(args []string) int {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	serverAddr, privateKeyPath := commonFlags(fs)
	amount := fs.Uint64("amount", 0, "amount in motes")
	nonce := fs.Uint64("nonce", 0, "nonce to use (default: fetched from the server)")
	useServerNonce := fs.Bool("auto-nonce", true, "fetch the current nonce from the server instead of using --nonce")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *privateKeyPath == "" || *amount == 0 {
		fmt.Fprintln(os.Stderr, "withdraw requires --private-key and --amount")
		return 2
	}

	key, err := loadPrivateKey(*privateKeyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	c := newClient(*serverAddr)
	ctx := context.Background()

	n := *nonce
	if *useServerNonce {
		n, err = c.nonce(ctx, publicKeyBytes(key))
		if err != nil {
			fmt.Fprintln(os.Stderr, "fetch nonce:", err)
			return 1
		}
	}

	body, err := tx.EncodeWithdrawBody(n, *amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode withdraw body:", err)
		return 1
	}
	payload, err := signBody(key, body)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	der, err := encodeDER(payload)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := c.postSigned(ctx, "/withdraw", publicKeyBytes(key), der); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("withdraw submitted: nonce=%d amount=%d\n", n, *amount)
	return 0
}

func runNonce(args []string) int {
	fs := flag.NewFlagSet("nonce", flag.ContinueOnError)
	serverAddr, privateKeyPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *privateKeyPath == "" {
		fmt.Fprintln(os.Stderr, "nonce requires --private-key")
		return 2
	}

	key, err := loadPrivateKey(*privateKeyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	c := newClient(*serverAddr)
	n, err := c.nonce(context.Background(), publicKeyBytes(key))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(n)
	return 0
}

func decodeHexArg(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// encodeDER marshals a SigningPayload into the DER envelope kairosd's
// signing package decodes with asn1.Unmarshal.
func encodeDER(payload *signing.SigningPayload) ([]byte, error) {
	return asn1.Marshal(*payload)
}
