// Package proxy routes outbound adapter requests through a URL-prefix relay.
//
// A relay is addressed by prepending its base URL to the full target URL,
// e.g. https://relay.example/https://api.notion.com/v1/databases/x/query.
package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Transport rewrites each request URL to Prefix + original URL.
type Transport struct {
	Prefix string
	Base   http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := Rewrite(t.Prefix, req.URL)
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.URL = target
	out.Host = target.Host

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}

// Rewrite returns the relay URL for target. An empty prefix returns target unchanged.
func Rewrite(prefix string, target *url.URL) (*url.URL, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return target, nil
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	u, err := url.Parse(prefix + target.String())
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url %q: %w", prefix, err)
	}
	return u, nil
}

// Client returns an HTTP client that routes through prefix, layered over base.
// With an empty prefix it returns a client using base directly.
func Client(prefix string, base http.RoundTripper) *http.Client {
	if strings.TrimSpace(prefix) == "" {
		return &http.Client{Transport: base}
	}
	return &http.Client{Transport: &Transport{Prefix: prefix, Base: base}}
}
