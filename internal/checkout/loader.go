package checkout

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"festival-pass/internal/status"
)

// Loader owns the process-wide handle to the hosted checkout script.
// Load probes the script endpoint once and memoizes the client on
// success; a failed load is retried on the next call. Safe for
// concurrent use.
type Loader struct {
	cfg *Config

	mu     sync.Mutex
	client *Client

	// hc is the http client used for the script probe and reused by
	// the memoized client.
	hc *http.Client
}

func NewLoader(cfg *Config) *Loader {
	return &Loader{
		cfg: cfg,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Load returns the shared checkout client, initializing it on first
// use. Idempotent: once loaded, repeat calls return immediately.
func (l *Loader) Load(ctx context.Context) (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}

	if err := l.probe(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrCheckoutUnavailable, err)
	}

	l.client = newClient(l.cfg, l.hc)
	return l.client, nil
}

// Open ensures the handle is loaded and opens a checkout session.
func (l *Loader) Open(ctx context.Context, opts *Options) (*Session, error) {
	client, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return client.Open(ctx, opts)
}

// VerifyPayment ensures the handle is loaded and verifies a success
// callback signature.
func (l *Loader) VerifyPayment(ctx context.Context, resp *PaymentResponse) (bool, error) {
	client, err := l.Load(ctx)
	if err != nil {
		return false, err
	}
	return client.VerifySignature(resp), nil
}

// probe fetches the hosted checkout script, mirroring the browser's
// script injection.
func (l *Loader) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.ScriptURL, nil)
	if err != nil {
		return fmt.Errorf("loader.probe: http.NewRequestWithContext: %w", err)
	}

	resp, err := l.hc.Do(req)
	if err != nil {
		return fmt.Errorf("loader.probe: hc.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("loader.probe: resp.StatusCode: %d", resp.StatusCode)
	}
	return nil
}
