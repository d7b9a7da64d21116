package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestLoaderLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.wt")
	if err := os.WriteFile(path, []byte("''a''"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil)
	for _, loc := range []string{path, "file://" + filepath.ToSlash(path)} {
		got, err := l.Load(context.Background(), loc)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", loc, err)
		}
		if string(got) != "''a''" {
			t.Errorf("Load(%q) = %q", loc, got)
		}
	}

	if _, err := l.Load(context.Background(), filepath.Join(dir, "missing.wt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoaderHTTP(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.wt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("source"))
	}))
	defer server.Close()

	client, _ := NewClient()
	l := NewLoader(client)

	for i := 0; i < 2; i++ {
		got, err := l.Load(context.Background(), server.URL+"/page.wt")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if string(got) != "source" {
			t.Errorf("Load() = %q", got)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected one request, got %d", hits.Load())
	}

	_, err := l.Load(context.Background(), server.URL+"/missing.wt")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected a 404 error, got %v", err)
	}
}

func TestLoaderWithoutClient(t *testing.T) {
	if _, err := NewLoader(nil).Load(context.Background(), "https://example.org/page.html"); err == nil {
		t.Error("expected an error without a client")
	}
}
