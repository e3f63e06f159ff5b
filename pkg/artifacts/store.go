// Package artifacts stores and retrieves anchored decision packets.
//
// A packet is the canonical artifact JSON whose location is recorded in the
// anchor's packet_uri. Packets are content-addressed: the object name is the
// SHA-256 of the bytes, so a URI never silently points at different data.
package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrNotFound          = errors.New("artifacts: packet not found")
	ErrUnsupportedScheme = errors.New("artifacts: unsupported uri scheme")
	ErrReadOnly          = errors.New("artifacts: store is read-only")
	// ErrForbidden marks a packet location outside what the store may read.
	ErrForbidden = errors.New("artifacts: packet location not permitted")
	// ErrURITooLong marks a packet whose URI would not fit in a record.
	ErrURITooLong = errors.New("artifacts: packet uri too long")
)

// Store persists packets and reads them back by URI.
type Store interface {
	// Put stores data and returns the URI to record on-chain.
	Put(ctx context.Context, data []byte) (string, error)
	// Get returns the packet at uri.
	Get(ctx context.Context, uri string) ([]byte, error)
	// Scheme is the URI scheme the store serves, e.g. "s3".
	Scheme() string
}

// Locator is implemented by stores whose Put URI is known before writing.
type Locator interface {
	URIFor(data []byte) string
}

// Publish stores data and returns its URI, failing with ErrURITooLong when
// the URI is longer than maxURI. Stores that implement Locator are checked
// before anything is written.
func Publish(ctx context.Context, s Store, data []byte, maxURI int) (string, error) {
	if l, ok := s.(Locator); ok {
		if n := len(l.URIFor(data)); n > maxURI {
			return "", fmt.Errorf("%w: %d bytes, limit %d", ErrURITooLong, n, maxURI)
		}
	}
	uri, err := s.Put(ctx, data)
	if err != nil {
		return "", err
	}
	if len(uri) > maxURI {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrURITooLong, len(uri), maxURI)
	}
	return uri, nil
}

// ObjectName returns the content-addressed name for data.
func ObjectName(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + ".json"
}

// FileStore keeps packets in a local directory and hands out file:// URIs.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

func NewFileStore(baseDir string) (*FileStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve packet dir: %w", err)
	}
	//nolint:gosec // G301: packets are public commitments
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure packet dir: %w", err)
	}
	return &FileStore{baseDir: abs}, nil
}

func (s *FileStore) Scheme() string { return "file" }

func (s *FileStore) Put(_ context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.baseDir, ObjectName(data))
	uri := s.URIFor(data)
	if _, err := os.Stat(path); err == nil {
		return uri, nil
	}

	tmpPath := path + ".tmp"
	//nolint:gosec // G306: packets are public commitments
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write packet: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("failed to commit packet: %w", err)
	}
	return uri, nil
}

func (s *FileStore) URIFor(data []byte) string {
	path := filepath.Join(s.baseDir, ObjectName(data))
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// Get reads a file:// URI under the store's directory. Paths elsewhere on
// the host are ErrForbidden.
func (s *FileStore) Get(_ context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse packet uri: %w", err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	path, err := s.within(u)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(path) //nolint:gosec // confined to baseDir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, err
	}
	return data, nil
}

func (s *FileStore) within(u *url.URL) (string, error) {
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("%w: remote file host %q", ErrForbidden, u.Host)
	}
	path := filepath.Clean(filepath.FromSlash(u.Path))
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrForbidden, u.Path, s.baseDir)
	}
	return path, nil
}
