package r2client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const (
	compressedSuffix = ".zst"
	zstdContentType  = "application/zstd"
)

// ObjectStore is the subset of Client the mirror needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

var _ ObjectStore = (*Client)(nil)

// Mirror copies knowledge files to object storage under a key prefix.
type Mirror struct {
	store  ObjectStore
	prefix string
}

// NewMirror returns a Mirror writing to prefix (for example "knowledge/").
func NewMirror(store ObjectStore, prefix string) *Mirror {
	return &Mirror{store: store, prefix: prefix}
}

// Key returns the object key of a mirrored file name.
func (m *Mirror) Key(name string) string {
	return path.Join(m.prefix, filepath.Base(name)) + compressedSuffix
}

// Push compresses data and uploads it as name. It returns the object key.
func (m *Mirror) Push(ctx context.Context, name string, data []byte) (string, error) {
	compressed, err := Compress(data)
	if err != nil {
		return "", err
	}
	key := m.Key(name)
	if err := m.store.Put(ctx, key, compressed, zstdContentType); err != nil {
		return "", err
	}
	return key, nil
}

// Restore downloads name into dstPath unless dstPath already exists.
// It reports whether a file was written; a missing object is not an error.
func (m *Mirror) Restore(ctx context.Context, name, dstPath string) (bool, error) {
	if _, err := os.Stat(dstPath); err == nil {
		return false, nil
	}

	body, err := m.store.Get(ctx, m.Key(name))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return false, fmt.Errorf("restore: create dir: %w", err)
	}
	tmp := dstPath + ".tmp"
	if err := DecompressStream(body, tmp); err != nil {
		_ = os.Remove(tmp)
		return false, err
	}
	if err := os.Rename(tmp, dstPath); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("restore: rename: %w", err)
	}
	return true, nil
}

// Compress returns data compressed with zstd.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	encoder, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("compress: create encoder: %w", err)
	}
	if _, err := encoder.Write(data); err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("compress: write: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("compress: close encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressStream decompresses a zstd-compressed stream to the destination path.
// Uses streaming decompression to minimize memory usage.
func DecompressStream(r io.Reader, dstPath string) error {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer decoder.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("decompress: create dest: %w", err)
	}

	if _, err := io.Copy(dst, decoder); err != nil {
		_ = dst.Close()
		return fmt.Errorf("decompress: copy: %w", err)
	}
	return dst.Close()
}
