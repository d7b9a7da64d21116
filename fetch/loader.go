package fetch

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Loader reads resources from the local filesystem or over HTTP. HTTP
// responses are kept for the lifetime of the Loader, so a source shared by
// several pages is fetched once.
type Loader struct {
	client *Client

	mu    sync.Mutex
	cache map[string][]byte
}

// NewLoader creates a new resource loader.
func NewLoader(client *Client) *Loader {
	return &Loader{
		client: client,
		cache:  make(map[string][]byte),
	}
}

// Load returns the content at loc: an http(s) URL, a file:// URL or a
// path.
func (l *Loader) Load(ctx context.Context, loc string) ([]byte, error) {
	if !IsURL(loc) {
		return os.ReadFile(localPath(loc))
	}

	l.mu.Lock()
	body, ok := l.cache[loc]
	l.mu.Unlock()
	if ok {
		return body, nil
	}

	if l.client == nil {
		return nil, fmt.Errorf("GET %s: no HTTP client configured", loc)
	}
	resp, err := l.client.Get(ctx, loc)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("GET %s: %s", loc, resp.Status)
	}

	l.mu.Lock()
	l.cache[loc] = resp.Body
	l.mu.Unlock()
	return resp.Body, nil
}
