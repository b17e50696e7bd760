package r2client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
	uploadErr   error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
	m.contentType[key] = contentType
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestMirror_PushRestore(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	mirror := NewMirror(store, "knowledge/")
	data := []byte(strings.Repeat("Library opens at 9 AM. ", 500))

	key, err := mirror.Push(context.Background(), "/data/faq.pdf", data)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if key != "knowledge/faq.pdf.zst" {
		t.Errorf("key = %q, want knowledge/faq.pdf.zst", key)
	}
	if store.contentType[key] != zstdContentType {
		t.Errorf("content type = %q", store.contentType[key])
	}
	if len(store.objects[key]) >= len(data) {
		t.Errorf("object not compressed: %d >= %d bytes", len(store.objects[key]), len(data))
	}

	dst := filepath.Join(t.TempDir(), "restored", "faq.pdf")
	restored, err := mirror.Restore(context.Background(), "faq.pdf", dst)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !restored {
		t.Fatal("Restore() = false, want true")
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("restored content mismatch")
	}
}

func TestMirror_RestoreKeepsLocalFile(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	mirror := NewMirror(store, "knowledge")
	if _, err := mirror.Push(context.Background(), "faq.pdf", []byte("remote")); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "faq.pdf")
	if err := os.WriteFile(dst, []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	restored, err := mirror.Restore(context.Background(), "faq.pdf", dst)
	if err != nil || restored {
		t.Fatalf("Restore() = %v, %v; want false, nil", restored, err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "local" {
		t.Errorf("local file overwritten: %q", got)
	}
}

func TestMirror_RestoreMissingObject(t *testing.T) {
	t.Parallel()
	mirror := NewMirror(newMemStore(), "knowledge")
	dst := filepath.Join(t.TempDir(), "timetable.pdf")

	restored, err := mirror.Restore(context.Background(), "timetable.pdf", dst)
	if err != nil || restored {
		t.Fatalf("Restore() = %v, %v; want false, nil", restored, err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("unexpected file at %s", dst)
	}
}

func TestMirror_PushError(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.uploadErr = errors.New("bucket unavailable")
	mirror := NewMirror(store, "knowledge")

	if _, err := mirror.Push(context.Background(), "faq.pdf", []byte("x")); err == nil {
		t.Fatal("Push() should fail when the upload fails")
	}
}

func TestDecompressStream_Error(t *testing.T) {
	t.Parallel()
	dst := filepath.Join(t.TempDir(), "out")
	if err := DecompressStream(strings.NewReader("not zstd data"), dst); err == nil {
		t.Error("DecompressStream should fail on invalid input")
	}
}

func TestCompress_Empty(t *testing.T) {
	t.Parallel()
	compressed, err := Compress(nil)
	if err != nil {
		t.Fatalf("Compress(nil) error = %v", err)
	}
	dst := filepath.Join(t.TempDir(), "empty")
	if err := DecompressStream(bytes.NewReader(compressed), dst); err != nil {
		t.Fatalf("DecompressStream() error = %v", err)
	}
	if info, err := os.Stat(dst); err != nil || info.Size() != 0 {
		t.Errorf("decompressed empty file: %v, %v", info, err)
	}
}
