// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package webbook talks to the NIST Chemistry WebBook CGI endpoint.
// Requests are immutable descriptors: a category template plus the
// per-identifier lookup key, built fresh for every call.
package webbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/pdiddy/spectra-scraper/pkg/types"
)

// Endpoint is the WebBook CGI URL. Declared as a var so tests can
// substitute an httptest server.
var Endpoint = "https://webbook.nist.gov/cgi/cbook.cgi"

const (
	jcampParam = "JCAMP"
	inchiParam = "GetInChI"

	// lookupPrefix marks the key as a CAS registry number.
	lookupPrefix = "C"
)

// NotFoundBody is the literal body the WebBook returns when it has no
// spectrum for the requested key.
const NotFoundBody = "##TITLE=Spectrum not found.\n##END=\n"

// IsNotFound reports whether body is the "spectrum not found" sentinel.
func IsNotFound(body []byte) bool {
	return string(body) == NotFoundBody
}

// Request is a read-only set of query parameters for one WebBook call.
// The zero value has no parameters.
type Request struct {
	key    string
	values url.Values
}

// SpectrumTemplate returns the base request for a spectral category
// (IR or Mass). The JCAMP key is bound per identifier with ForCAS.
func SpectrumTemplate(category types.Category) Request {
	return Request{key: jcampParam}.
		With(jcampParam, "").
		With("Type", string(category)).
		With("Index", "0")
}

// InChITemplate returns the base request for InChI resolution.
func InChITemplate() Request {
	return Request{key: inchiParam}.With(inchiParam, "")
}

// TemplateFor returns the base request for any category.
func TemplateFor(category types.Category) Request {
	if category == types.CategoryInChI {
		return InChITemplate()
	}
	return SpectrumTemplate(category)
}

// With returns a copy of r with param set to value. r is left unchanged.
func (r Request) With(param, value string) Request {
	values := make(url.Values, len(r.values)+1)
	for k, v := range r.values {
		values[k] = append([]string(nil), v...)
	}
	values.Set(param, value)
	return Request{key: r.key, values: values}
}

// ForCAS binds the template's lookup parameter to the given CAS number.
func (r Request) ForCAS(cas string) Request {
	return r.With(r.key, LookupKey(cas))
}

// LookupKey returns the WebBook lookup value for a CAS number ("C64175").
func LookupKey(cas string) string {
	return lookupPrefix + cas
}

// Param returns the value of param, or "" if unset.
func (r Request) Param(param string) string {
	return r.values.Get(param)
}

// Encode returns the query string with parameters sorted by name.
func (r Request) Encode() string {
	return r.values.Encode()
}

// URL returns the full request URL against Endpoint.
func (r Request) URL() string {
	return Endpoint + "?" + r.Encode()
}

// StatusError reports a non-2xx response. It is never retried.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Client issues GET requests to the WebBook.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient wraps httpClient. The client's Timeout is the per-attempt timeout.
func NewClient(httpClient *http.Client, userAgent string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, userAgent: userAgent}
}

// Get performs one request and returns the full response body.
func (c *Client) Get(ctx context.Context, r Request) ([]byte, error) {
	reqURL := r.URL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

// IsTimeout reports whether err is a timeout: the client deadline, a
// context deadline, or a network-level timeout. Other request failures
// are permanent.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// Body reads cut off by Client.Timeout surface as a plain error.
	return strings.Contains(err.Error(), "Client.Timeout")
}
