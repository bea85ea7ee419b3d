package netqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"phredavg/internal/errors"
	"phredavg/internal/queue"
)

// Client talks to a coordinator's queues.
type Client struct {
	addr   string
	base   string
	hc     *http.Client
	signer *Signer
}

// NewClient returns a client for the coordinator at addr (host:port).
func NewClient(addr string, secret []byte) (*Client, error) {
	signer, err := NewSigner(secret)
	if err != nil {
		return nil, err
	}
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		addr:   addr,
		base:   strings.TrimSuffix(base, "/"),
		hc:     &http.Client{Timeout: 2 * time.Minute},
		signer: signer,
	}, nil
}

// Addr is the coordinator address this client was built for.
func (c *Client) Addr() string { return c.addr }

// GetJob polls the job queue once. The envelope kind is KindJob,
// KindEmpty or KindPill.
func (c *Client) GetJob(ctx context.Context) (Envelope, error) {
	var env Envelope
	err := c.call(ctx, JobQueueName, "get", nil, &env)
	return env, err
}

// PutPill puts the poison pill back on the job queue.
func (c *Client) PutPill(ctx context.Context) error {
	return c.call(ctx, JobQueueName, "put", &Envelope{Kind: KindPill}, nil)
}

// PutResult publishes a result. It returns queue.ErrFull when the
// coordinator applies backpressure.
func (c *Client) PutResult(ctx context.Context, r Result) error {
	return c.call(ctx, ResultQueueName, "put", &Envelope{Kind: KindResult, Result: &r}, nil)
}

// GetResult polls the result queue once; ok is false when it is empty.
func (c *Client) GetResult(ctx context.Context) (r Result, ok bool, err error) {
	var env Envelope
	if err := c.call(ctx, ResultQueueName, "get", nil, &env); err != nil {
		return r, false, err
	}
	if env.Kind != KindResult || env.Result == nil {
		return r, false, nil
	}
	return *env.Result, true, nil
}

func (c *Client) call(ctx context.Context, q, op string, in *Envelope, out *Envelope) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.EnsureStack(err)
		}
		body = b
	}
	path := fmt.Sprintf("/v1/queues/%s/%s", q, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return errors.EnsureStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.signer.Sign(req, body)

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewNetworkError(q+"/"+op, c.addr, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, resp.Body)
		return errors.Wrap(queue.ErrFull, q)
	case resp.StatusCode == http.StatusUnauthorized:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.NewNetworkError(q+"/"+op, c.addr,
			errors.Errorf("authentication failed: %s", strings.TrimSpace(string(msg))))
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.NewNetworkError(q+"/"+op, c.addr,
			errors.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewNetworkError(q+"/"+op, c.addr, errors.Wrap(err, "truncated response"))
	}
	return nil
}
