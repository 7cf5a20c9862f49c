package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TinyHash returns the hash of a tiny URL such as "/x/KuwCBw".
func TinyHash(tinyURL string) string {
	return lastSegment(tinyURL)
}

// ResolveTinyURL follows the redirect chain of a tiny URL and returns the
// page id it points to, or an empty string when the target cannot be
// determined (for example a deleted page).
//
// A redirect carrying a pageId query parameter yields that id directly.
// A redirect to a /display/<space>/<title> path is resolved by a title lookup.
func (c *Client) ResolveTinyURL(ctx context.Context, tinyURL string) (string, error) {
	hash := TinyHash(tinyURL)
	if hash == "" {
		return "", nil
	}

	noFollow := *c.httpClient
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	current := c.ResolveURL("/pages/tinyurl.action?urlIdentifier=" + url.QueryEscape(hash))
	for range maxRedirects {
		location, err := c.nextRedirect(ctx, &noFollow, current)
		if err != nil {
			return "", err
		}
		if location == "" {
			return "", nil
		}

		target, err := url.Parse(location)
		if err != nil {
			return "", &FetchError{URL: current, Message: "invalid redirect location", Err: err}
		}
		base, _ := url.Parse(current) //nolint:errcheck // current was requested successfully
		target = base.ResolveReference(target)

		// The title segment is decoded once, by DecodeTitle.
		if strings.Contains(target.Path, "/display/") {
			return c.resolveDisplayPath(ctx, target.EscapedPath())
		}
		if id := target.Query().Get("pageId"); id != "" {
			return id, nil
		}
		current = target.String()
	}
	return "", &FetchError{URL: tinyURL, Message: "tiny URL did not resolve", Err: ErrTooManyRedirects}
}

// nextRedirect requests target without following redirects and returns the
// Location header, or an empty string when the response is not a redirect.
func (c *Client) nextRedirect(ctx context.Context, hc *http.Client, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &FetchError{URL: target, Message: "invalid request", Err: err}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", &FetchError{URL: target, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return resp.Header.Get("Location"), nil
	}
	if resp.StatusCode >= 400 {
		return "", &FetchError{StatusCode: resp.StatusCode, URL: target, Message: http.StatusText(resp.StatusCode)}
	}
	return "", nil
}

// resolveDisplayPath turns /display/<space>/<title> into a page id.
func (c *Client) resolveDisplayPath(ctx context.Context, p string) (string, error) {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	if len(parts) < 2 {
		return "", nil
	}
	spaceKey := parts[len(parts)-2]
	title := DecodeTitle(parts[len(parts)-1])

	page, err := c.PageByTitle(ctx, title, spaceKey)
	if err != nil {
		return "", err
	}
	if page == nil {
		return "", nil
	}
	return page.ID, nil
}

// DecodeTitle decodes a title path segment: "+" becomes a space and
// percent escapes are decoded. Invalid escapes are kept verbatim.
func DecodeTitle(segment string) string {
	s := strings.ReplaceAll(segment, "+", " ")
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}

// TinyURLResolver resolves a tiny URL to a page id.
type TinyURLResolver interface {
	ResolveTinyURL(ctx context.Context, tinyURL string) (string, error)
}

// TinyURLCache memoizes tiny-URL resolution by hash for one export run.
// Only successful lookups are cached, so unresolved links are retried when
// they recur. Concurrent lookups for the same hash share one request.
type TinyURLCache struct {
	resolver TinyURLResolver
	group    singleflight.Group

	mu  sync.RWMutex
	ids map[string]string
}

// NewTinyURLCache creates an empty cache in front of resolver.
func NewTinyURLCache(resolver TinyURLResolver) *TinyURLCache {
	return &TinyURLCache{
		resolver: resolver,
		ids:      make(map[string]string),
	}
}

// Resolve returns the page id for tinyURL, or an empty string if unknown.
func (t *TinyURLCache) Resolve(ctx context.Context, tinyURL string) (string, error) {
	hash := TinyHash(tinyURL)
	if hash == "" {
		return "", nil
	}

	t.mu.RLock()
	id, ok := t.ids[hash]
	t.mu.RUnlock()
	if ok {
		return id, nil
	}

	v, err, _ := t.group.Do(hash, func() (any, error) {
		id, err := t.resolver.ResolveTinyURL(ctx, tinyURL)
		if err != nil {
			return "", err
		}
		if id != "" {
			t.mu.Lock()
			t.ids[hash] = id
			t.mu.Unlock()
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New("unexpected tiny URL cache value")
	}
	return s, nil
}

// Len returns the number of cached hashes.
func (t *TinyURLCache) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}
