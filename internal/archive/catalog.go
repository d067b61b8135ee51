package archive

import (
	"context"
	_ "crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/unitexe/skopos/internal/system"
)

// Entry is a cataloged archive. ContentHash is the hex sha256 of the file's
// bytes at catalog time.
type Entry struct {
	FilePath    string
	SizeBytes   int64
	ContentHash string
	Digest      digest.Digest
}

// ByteObserver is told how many bytes each catalog call hashed
type ByteObserver interface {
	AddHashedBytes(n int64)
}

// Cataloger computes size and content hash for archives. It never caches.
type Cataloger struct {
	observer ByteObserver
}

// NewCataloger creates a cataloger. observer may be nil.
func NewCataloger(observer ByteObserver) *Cataloger {
	return &Cataloger{observer: observer}
}

// Catalog streams the file at path through sha256
func (c *Cataloger) Catalog(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, system.ResourceError("open archive", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, system.ResourceError("stat archive", err)
	}
	if !info.Mode().IsRegular() {
		return Entry{}, system.ResourceError("stat archive", fmt.Errorf("%s is not a regular file", path))
	}

	digester := digest.Canonical.Digester()
	n, err := io.Copy(digester.Hash(), f)
	if err != nil {
		return Entry{}, system.ResourceError("hash archive", err)
	}
	if c.observer != nil {
		c.observer.AddHashedBytes(n)
	}

	d := digester.Digest()
	return Entry{
		FilePath:    path,
		SizeBytes:   info.Size(),
		ContentHash: d.Encoded(),
		Digest:      d,
	}, nil
}

// CatalogAll catalogs every path. The first failure aborts the batch and no
// partial catalog is returned.
func (c *Cataloger) CatalogAll(ctx context.Context, paths []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, system.NewError(system.KindCanceled, "catalog archives", "canceled", err)
		}
		entry, err := c.Catalog(p)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Verify recomputes the digest of path and compares it with expected, which
// may be a bare hex sha256 or an algorithm-prefixed digest.
func (c *Cataloger) Verify(path, expected string) (Entry, error) {
	want, err := ParseContentHash(expected)
	if err != nil {
		return Entry{}, err
	}
	entry, err := c.Catalog(path)
	if err != nil {
		return Entry{}, err
	}
	if entry.Digest != want {
		return entry, system.NewError(system.KindIntegrityMismatch, "verify archive",
			fmt.Sprintf("content hash %s does not match expected %s", entry.ContentHash, want.Encoded()), nil)
	}
	return entry, nil
}

// ParseContentHash accepts "sha256:<hex>" or "<hex>"
func ParseContentHash(s string) (digest.Digest, error) {
	d := digest.Digest(s)
	if d.Validate() != nil {
		d = digest.NewDigestFromEncoded(digest.Canonical, s)
	}
	if err := d.Validate(); err != nil {
		return "", system.MalformedInput("parse content hash", "invalid content hash %q: %v", s, err)
	}
	if d.Algorithm() != digest.Canonical {
		return "", system.MalformedInput("parse content hash", "unsupported digest algorithm %s", d.Algorithm())
	}
	return d, nil
}
