package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/nao1215/wikidump/internal/model"
)

const (
	// DefaultPageSize is the number of results requested per listing page.
	DefaultPageSize = 50

	// maxRedirects bounds redirect chains, both for normal requests and tiny URLs.
	maxRedirects = 10

	// maxErrorBody bounds how much of an error response is kept as message.
	maxErrorBody = 512
)

// ChildPage is one entry of a child-page listing.
type ChildPage struct {
	ID    string
	Title string
}

// Attachment is one entry of an attachment listing.
type Attachment struct {
	// ID is the attachment id with the "att" prefix removed.
	ID string

	// Title is the attachment file name.
	Title string

	// MediaType is the reported content type, if any.
	MediaType string

	// DownloadURL is the download link as reported by the server, usually
	// a path relative to the base URL.
	DownloadURL string
}

// Space is one entry of the space listing.
type Space struct {
	Key  string
	Name string
}

// Client is the typed wrapper over the wiki REST API.
// It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	pageSize   int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.pageSize = n
		}
	}
}

// NewClient creates a client for the wiki at baseURL.
// The base URL may include a context path such as https://host/wiki.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidBaseURL
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		pageSize:   DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL turns a server-relative reference into an absolute URL.
// Absolute references are returned unchanged; references starting with
// "/" are appended to the base URL including its context path.
func (c *Client) ResolveURL(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return c.baseURL.String() + ref
	}
	return c.baseURL.String() + "/" + ref
}

type linkSet struct {
	TinyUI   string `json:"tinyui"`
	Download string `json:"download"`
	Next     string `json:"next"`
}

type contentResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		When string `json:"when"`
	} `json:"version"`
	Body struct {
		View struct {
			Value string `json:"value"`
		} `json:"view"`
	} `json:"body"`
	Metadata struct {
		MediaType string `json:"mediaType"`
	} `json:"metadata"`
	Extensions struct {
		MediaType string `json:"mediaType"`
	} `json:"extensions"`
	Links linkSet `json:"_links"`
}

func (r *contentResponse) record(id string) (model.PageRecord, error) {
	modified, err := parseWhen(r.Version.When)
	if err != nil {
		return model.PageRecord{}, err
	}
	return model.PageRecord{
		ID:         id,
		Title:      r.Title,
		TinyHash:   lastSegment(r.Links.TinyUI),
		Space:      r.Space.Key,
		ModifiedAt: modified,
	}, nil
}

type spaceResponse struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Homepage *struct {
		ID string `json:"id"`
	} `json:"homepage"`
}

type listResponse[T any] struct {
	Results []T     `json:"results"`
	Links   linkSet `json:"_links"`
}

// PageDetails fetches the page record and its rendered HTML body.
func (c *Client) PageDetails(ctx context.Context, id string) (model.PageRecord, string, error) {
	ref := "/rest/api/content/" + url.PathEscape(id) + "?expand=body.view,version,space"
	var resp contentResponse
	if err := c.getJSON(ctx, ref, &resp); err != nil {
		return model.PageRecord{}, "", err
	}
	rec, err := resp.record(id)
	if err != nil {
		return model.PageRecord{}, "", &FetchError{URL: c.ResolveURL(ref), Message: "malformed response", Err: err}
	}
	return rec, resp.Body.View.Value, nil
}

// PageSpace returns the key of the space owning the page.
func (c *Client) PageSpace(ctx context.Context, id string) (string, error) {
	ref := "/rest/api/content/" + url.PathEscape(id) + "?expand=space"
	var resp contentResponse
	if err := c.getJSON(ctx, ref, &resp); err != nil {
		return "", err
	}
	if resp.Space.Key == "" {
		return "", &FetchError{URL: c.ResolveURL(ref), Message: "response has no space key"}
	}
	return resp.Space.Key, nil
}

// PageByTitle looks a page up by title, optionally restricted to a space.
// It returns nil when no page matches.
func (c *Client) PageByTitle(ctx context.Context, title, spaceKey string) (*model.PageRecord, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("expand", "version,space")
	if spaceKey != "" {
		q.Set("spaceKey", spaceKey)
	}
	ref := "/rest/api/content?" + q.Encode()

	var resp listResponse[contentResponse]
	if err := c.getJSON(ctx, ref, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	first := resp.Results[0]
	rec, err := first.record(first.ID)
	if err != nil {
		return nil, &FetchError{URL: c.ResolveURL(ref), Message: "malformed response", Err: err}
	}
	rec.Title = title
	return &rec, nil
}

// Homepage returns the space name and its homepage id.
// The id is empty when the space has no homepage.
func (c *Client) Homepage(ctx context.Context, spaceKey string) (string, string, error) {
	ref := "/rest/api/space/" + url.PathEscape(spaceKey) + "?expand=homepage"
	var resp spaceResponse
	if err := c.getJSON(ctx, ref, &resp); err != nil {
		return "", "", err
	}
	if resp.Homepage == nil {
		return resp.Name, "", nil
	}
	return resp.Name, resp.Homepage.ID, nil
}

// ChildPages lists the direct children of a page in server order.
func (c *Client) ChildPages(ctx context.Context, id string) iter.Seq2[ChildPage, error] {
	start := fmt.Sprintf("/rest/api/content/%s/child/page?limit=%d", url.PathEscape(id), c.pageSize)
	return func(yield func(ChildPage, error) bool) {
		for r, err := range paginate[contentResponse](ctx, c, start) {
			if err != nil {
				yield(ChildPage{}, err)
				return
			}
			if !yield(ChildPage{ID: r.ID, Title: r.Title}, nil) {
				return
			}
		}
	}
}

// Attachments lists the attachments of a page in server order.
func (c *Client) Attachments(ctx context.Context, id string) iter.Seq2[Attachment, error] {
	start := fmt.Sprintf("/rest/api/content/%s/child/attachment?limit=%d", url.PathEscape(id), c.pageSize)
	return func(yield func(Attachment, error) bool) {
		for r, err := range paginate[contentResponse](ctx, c, start) {
			if err != nil {
				yield(Attachment{}, err)
				return
			}
			media := r.Metadata.MediaType
			if media == "" {
				media = r.Extensions.MediaType
			}
			att := Attachment{
				ID:          strings.TrimPrefix(r.ID, "att"),
				Title:       r.Title,
				MediaType:   media,
				DownloadURL: r.Links.Download,
			}
			if !yield(att, nil) {
				return
			}
		}
	}
}

// Spaces lists all spaces visible to the user.
func (c *Client) Spaces(ctx context.Context) iter.Seq2[Space, error] {
	start := fmt.Sprintf("/rest/api/space?limit=%d", c.pageSize)
	return func(yield func(Space, error) bool) {
		for r, err := range paginate[spaceResponse](ctx, c, start) {
			if err != nil {
				yield(Space{}, err)
				return
			}
			if !yield(Space{Key: r.Key, Name: r.Name}, nil) {
				return
			}
		}
	}
}

// paginate yields every result of a listing, following "next" links until
// the server reports none. Each call starts from the first page.
func paginate[T any](ctx context.Context, c *Client, start string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		ref := start
		for ref != "" {
			var resp listResponse[T]
			if err := c.getJSON(ctx, ref, &resp); err != nil {
				yield(zero, err)
				return
			}
			for _, r := range resp.Results {
				if !yield(r, nil) {
					return
				}
			}
			ref = resp.Links.Next
		}
	}
}

// Download streams the binary at ref (absolute or base-relative) into w.
func (c *Client) Download(ctx context.Context, ref string, w io.Writer) error {
	target := c.ResolveURL(ref)
	resp, err := c.do(ctx, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return &FetchError{URL: target, Message: "failed to read body", Err: err}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, ref string, v any) error {
	target := c.ResolveURL(ref)
	resp, err := c.do(ctx, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &FetchError{URL: target, Message: "malformed response", Err: err}
	}
	return nil
}

// do performs a GET and converts non-2xx responses to FetchError.
// On success the caller owns the response body.
func (c *Client) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Message: "invalid request", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Message: "request failed", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort message
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &FetchError{StatusCode: resp.StatusCode, URL: target, Message: msg}
	}
	return resp, nil
}

// parseWhen parses the version timestamp reported by the server.
func parseWhen(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable version timestamp %q", s)
}

// lastSegment returns the final path segment of a URL or path.
func lastSegment(ref string) string {
	if u, err := url.Parse(ref); err == nil {
		ref = u.Path
	}
	ref = strings.TrimRight(ref, "/")
	if ref == "" {
		return ""
	}
	return path.Base(ref)
}
