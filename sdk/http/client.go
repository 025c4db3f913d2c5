// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
)

var (
	ErrInvalidCertificatePem = errors.New("invalid certificate PEM")
	ErrUnexpectedStatus      = errors.New("unexpected response status")
	ErrNilParameter          = errors.New("nil parameter")
)

// maxBodySize limits how much of a response body is read.
const maxBodySize = 1 << 20

// Request describes one request made on behalf of the client.  CrossDomain is
// advisory; it's honored by host adapters that distinguish same-origin
// requests and ignored by Client.
type Request struct {
	Method      string
	URL         string
	Header      http.Header
	CrossDomain bool
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewClient creates a new http client which will use the optional CA certificate PEM
// if provided, otherwise it will use the installed system CA chain.
func NewClient(caPEM string) (*http.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, ErrInvalidCertificatePem
		}

		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	return &http.Client{
		Transport: tr,
	}, nil
}

// ClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func ClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// Client sends Requests using a pooled transport and returns fully read
// Responses.  It's the default http access used by a native host.
type Client struct {
	hc *http.Client
}

// New returns a Client that trusts the optional CA certificate PEM.
func New(caPEM string) (*Client, error) {
	const op = "http.New"
	hc, err := NewClient(caPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Client{hc: hc}, nil
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.hc
}

// Request sends r.  Responses with a non 2xx status are returned along with
// an ErrUnexpectedStatus error.
func (c *Client) Request(ctx context.Context, r *Request) (*Response, error) {
	const op = "Client.Request"
	if r == nil {
		return nil, fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, text/plain, */*")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request to %s failed: %w", op, r.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response body: %w", op, err)
	}
	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, fmt.Errorf("%s: %s returned %d: %w", op, r.URL, resp.StatusCode, ErrUnexpectedStatus)
	}
	return out, nil
}

// GetData decodes the JSON body of r.
func (c *Client) GetData(r *Response) (interface{}, error) {
	const op = "Client.GetData"
	if r == nil {
		return nil, fmt.Errorf("%s: response is nil: %w", op, ErrNilParameter)
	}
	if len(r.Body) == 0 {
		return nil, nil
	}
	var data interface{}
	if err := json.Unmarshal(r.Body, &data); err != nil {
		return nil, fmt.Errorf("%s: unable to decode response body: %w", op, err)
	}
	return data, nil
}
