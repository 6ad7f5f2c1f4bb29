package main

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/kairoslog"
	"github.com/cspr-rad/kairos-sub000/sequencer"
	"github.com/cspr-rad/kairos-sub000/signing"
	"github.com/cspr-rad/kairos-sub000/tx"
)

// server is the thin net/http front door over a sequencer.State,
// reimplementing kairos-server's route surface as idiomatic Go
// handlers rather than translating them line-by-line. It is not the
// core's concern (that's the sequencer and executor); it exists so
// the sequencer has a real way to receive transactions in practice.
type server struct {
	seq          *sequencer.State
	metrics      *Metrics
	chainName    string
	depositPurse string
	log          *kairoslog.Logger
}

func newServer(seq *sequencer.State, metrics *Metrics, chainName, depositPurse string) *server {
	return &server{
		seq:          seq,
		metrics:      metrics,
		chainName:    chainName,
		depositPurse: depositPurse,
		log:          kairoslog.Default().Module("httpapi"),
	}
}

func (s *server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/transfer", s.handleTransfer)
	mux.HandleFunc("/withdraw", s.handleWithdraw)
	mux.HandleFunc("/transactions", s.handleTransactions)
	mux.HandleFunc("/contract-hash", s.handleContractHash)
	mux.HandleFunc("/chain_name", s.handleChainName)
	mux.HandleFunc("/nonce", s.handleNonce)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// signedRequest is the wire shape clients POST for /transfer and
// /withdraw: a DER-encoded signing.SigningPayload alongside the
// sender's raw public key, base16-encoded for transport over JSON.
// The transaction's actual nonce/recipient/amount are never taken
// from the JSON envelope — only from the signed payload body itself
// (tx.DecodeTransferBody / tx.DecodeWithdrawBody), so a request cannot
// smuggle in fields the signature never covered.
type signedRequest struct {
	PublicKey string `json:"public_key"`
	Payload   string `json:"payload"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func decodeSignedRequest(r *http.Request) ([]byte, []byte, error) {
	var req signedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, err
	}
	pub, err := hex.DecodeString(req.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	der, err := hex.DecodeString(req.Payload)
	if err != nil {
		return nil, nil, err
	}
	return pub, der, nil
}

func (s *server) verifySignature(pub, der []byte) (*signing.SigningPayload, bool, error) {
	payload, err := signing.DecodePayload(der)
	if err != nil {
		return nil, false, err
	}
	ok, err := signing.Verify(payload, pub)
	if err != nil {
		return payload, false, err
	}
	return payload, ok, nil
}

func (s *server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	pub, der, err := decodeSignedRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	payload, ok, err := s.verifySignature(pub, der)
	if err != nil || !ok {
		writeJSONError(w, http.StatusUnauthorized, "signature verification failed")
		return
	}
	nonce, recipient, amount, err := tx.DecodeTransferBody(payload.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed signed body: "+err.Error())
		return
	}

	signed := tx.Signed[tx.Transfer]{
		PublicKey: account.PublicKey(pub),
		Nonce:     nonce,
		Body: tx.Transfer{
			Recipient: recipient,
			Amount:    amount,
		},
	}
	if err := s.seq.EnqueueTransfer(signed); err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	s.metrics.QueueDepth.Set(float64(s.seq.QueueDepth()))
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	pub, der, err := decodeSignedRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	payload, ok, err := s.verifySignature(pub, der)
	if err != nil || !ok {
		writeJSONError(w, http.StatusUnauthorized, "signature verification failed")
		return
	}
	nonce, amount, err := tx.DecodeWithdrawBody(payload.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed signed body: "+err.Error())
		return
	}

	signed := tx.Signed[tx.Withdraw]{
		PublicKey: account.PublicKey(pub),
		Nonce:     nonce,
		Body: tx.Withdraw{
			Amount: amount,
		},
	}
	if err := s.seq.EnqueueWithdraw(signed); err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	s.metrics.QueueDepth.Set(float64(s.seq.QueueDepth()))
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{
		"queue_depth": s.seq.QueueDepth(),
	})
}

func (s *server) handleContractHash(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"deposit_purse": s.depositPurse,
	})
}

func (s *server) handleChainName(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"chain_name": s.chainName,
	})
}

func (s *server) handleNonce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	pubHex := r.URL.Query().Get("public_key")
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed public_key: "+err.Error())
		return
	}
	key := account.Hash(account.PublicKey(pub))
	acc, err := s.seq.GetAccount(key)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var nonce uint64
	if acc != nil {
		nonce = acc.Nonce
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]uint64{"nonce": nonce})
}

