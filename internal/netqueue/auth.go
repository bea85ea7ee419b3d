// internal/netqueue/auth.go
package netqueue

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"phredavg/internal/errors"
)

const (
	headerTimestamp = "X-Phred-Timestamp"
	headerSignature = "X-Phred-Signature"
	headerNonce     = "X-Phred-Nonce"

	keyContext = "phredavg 2024 queue request signing"
	maxSkew    = 5 * time.Minute
	maxBody    = 64 << 20
)

// Signer signs and verifies requests with a key derived from a shared
// secret. Both ends must be configured with the same secret. A verifying
// Signer accepts each nonce once while its timestamp is within maxSkew.
type Signer struct {
	key [32]byte
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // nonce -> when it may be forgotten
}

// NewSigner derives the signing key from secret.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty shared secret")
	}
	s := &Signer{now: time.Now, seen: make(map[string]time.Time)}
	blake3.DeriveKey(keyContext, secret, s.key[:])
	return s, nil
}

func (s *Signer) mac(method, path, ts, nonce string, body []byte) []byte {
	h, err := blake3.NewKeyed(s.key[:])
	if err != nil {
		// key is always 32 bytes
		panic(err)
	}
	for _, part := range []string{method, path, ts, nonce} {
		_, _ = io.WriteString(h, part)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write(body)
	return h.Sum(nil)
}

// Sign sets the timestamp, nonce and signature headers on req for body.
func (s *Signer) Sign(req *http.Request, body []byte) {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	nonce := uuid.NewString()
	req.Header.Set(headerTimestamp, ts)
	req.Header.Set(headerNonce, nonce)
	req.Header.Set(headerSignature, hex.EncodeToString(s.mac(req.Method, req.URL.Path, ts, nonce, body)))
}

// Verify checks the headers of req against body. A request whose nonce
// was already accepted is rejected as a replay.
func (s *Signer) Verify(req *http.Request, body []byte) error {
	ts := req.Header.Get(headerTimestamp)
	nonce := req.Header.Get(headerNonce)
	sig, err := hex.DecodeString(req.Header.Get(headerSignature))
	if ts == "" || nonce == "" || err != nil || len(sig) == 0 {
		return errors.New("missing or malformed signature")
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errors.New("malformed timestamp")
	}
	sent := time.Unix(sec, 0)
	now := s.now()
	if d := now.Sub(sent); d > maxSkew || d < -maxSkew {
		return errors.Errorf("timestamp skew %v exceeds %v", d, maxSkew)
	}
	if subtle.ConstantTimeCompare(sig, s.mac(req.Method, req.URL.Path, ts, nonce, body)) != 1 {
		return errors.New("bad signature")
	}
	return s.remember(nonce, sent.Add(maxSkew), now)
}

// remember records nonce until forget and drops nonces whose timestamps
// can no longer pass the skew check.
func (s *Signer) remember(nonce string, forget, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, t := range s.seen {
		if now.After(t) {
			delete(s.seen, n)
		}
	}
	if _, ok := s.seen[nonce]; ok {
		return errors.New("replayed request")
	}
	s.seen[nonce] = forget
	return nil
}

// Middleware rejects unsigned requests with 401 and hands the verified
// body on to next.
func (s *Signer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			http.Error(w, "read body: "+err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		if err := s.Verify(r, body); err != nil {
			http.Error(w, "unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}
