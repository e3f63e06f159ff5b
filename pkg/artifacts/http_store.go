package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// MaxPacketSize bounds packets fetched over HTTP.
const MaxPacketSize = 16 << 20

// HostPolicy decides whether packets may be fetched from host.
type HostPolicy func(host string) bool

// AllowHosts admits exactly the listed hostnames, case-insensitively. With
// no hosts it admits none.
func AllowHosts(hosts ...string) HostPolicy {
	allowed := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed = append(allowed, h)
		}
	}
	return func(host string) bool {
		return slices.Contains(allowed, strings.ToLower(host))
	}
}

// HTTPStore reads packets published at https:// (or http://) URLs.
type HTTPStore struct {
	client *http.Client
	scheme string
	policy HostPolicy
}

func NewHTTPStore(client *http.Client, scheme string) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPStore{client: client, scheme: scheme}
}

// WithHostPolicy restricts Get to hosts p admits.
func (s *HTTPStore) WithHostPolicy(p HostPolicy) *HTTPStore {
	s.policy = p
	return s
}

func (s *HTTPStore) Scheme() string { return s.scheme }

func (s *HTTPStore) Put(context.Context, []byte) (string, error) {
	return "", ErrReadOnly
}

func (s *HTTPStore) Get(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse packet uri: %w", err)
	}
	if s.policy != nil && !s.policy(u.Hostname()) {
		return nil, fmt.Errorf("%w: host %q", ErrForbidden, u.Hostname())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build packet request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch packet %s: %w", uri, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch packet %s: status %d", uri, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPacketSize+1))
	if err != nil {
		return nil, fmt.Errorf("read packet %s: %w", uri, err)
	}
	if len(data) > MaxPacketSize {
		return nil, fmt.Errorf("packet %s exceeds %d bytes", uri, MaxPacketSize)
	}
	return data, nil
}
