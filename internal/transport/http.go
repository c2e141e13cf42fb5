// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"
)

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// URL is the collector endpoint batches are POSTed to.
	URL string

	// Gzip compresses request bodies.
	Gzip bool

	// RateLimit caps requests per second. Zero disables the limit.
	RateLimit float64

	// Burst is the limiter burst size. Default: 1
	Burst int

	// UserAgent is sent with every request.
	UserAgent string

	// Client overrides the HTTP client. Timeouts come from the request
	// context, so the default client has none.
	Client *http.Client
}

// HTTP posts batches to a collector URL.
type HTTP struct {
	url       string
	gzip      bool
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewHTTP validates cfg and returns an HTTP transport.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse collector URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("collector URL %q: scheme must be http or https", cfg.URL)
	}

	t := &HTTP{
		url:       cfg.URL,
		gzip:      cfg.Gzip,
		userAgent: cfg.UserAgent,
		client:    cfg.Client,
	}
	if t.client == nil {
		t.client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return t, nil
}

// Send POSTs msg. Any 2xx response is success.
func (t *HTTP) Send(ctx context.Context, msg *Message) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	body, err := t.encode(msg.Body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", msg.ContentType)
	if msg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+msg.Token)
	}
	if msg.BatchID != "" {
		req.Header.Set("X-Batch-ID", msg.BatchID)
	}
	if t.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return fmt.Errorf("post batch: %w: %w", ctxErr, err)
		}
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

func (t *HTTP) encode(body []byte) ([]byte, error) {
	if !t.gzip {
		return body, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	return buf.Bytes(), nil
}
