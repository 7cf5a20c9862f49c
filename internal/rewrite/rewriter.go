package rewrite

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/wikidump/internal/attachment"
	"github.com/nao1215/wikidump/internal/filename"
	"github.com/nao1215/wikidump/internal/remote"
)

// Selectors of the rewrite rules.
const (
	displayLinkSelector  = `a[href*="/display/"]`
	tinyLinkSelector     = `a[href*="/x/"]`
	pageIDLinkSelector   = `a[href*="/pages/viewpage.action"]`
	embeddedFileSelector = `a[class*="confluence-embedded-file"]`
	imageSelector        = `img[src*="/download/"], img[src*="` + attachment.PreviewEndpoint + `"]`
)

// DefaultDownloadSubFolder is the attachment folder name inside a space folder.
const DefaultDownloadSubFolder = "attachments"

// TinyResolver resolves a tiny URL to a page id. An empty id means unresolved.
type TinyResolver interface {
	Resolve(ctx context.Context, tinyURL string) (string, error)
}

// Reporter receives user-facing progress lines.
type Reporter interface {
	Link(depth int, href, target string)
	Warning(depth int, format string, args ...any)
}

// Rewriter rewrites the links of the pages of one space.
// It is not safe for concurrent use: it allocates names in the space's scopes.
type Rewriter struct {
	resolver          TinyResolver
	pages             *filename.Scope
	downloads         *filename.Scope
	downloadSubFolder string
	reporter          Reporter
	logger            *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithDownloadSubFolder sets the folder prefix of attachment links.
func WithDownloadSubFolder(folder string) Option {
	return func(r *Rewriter) {
		if folder != "" {
			r.downloadSubFolder = strings.Trim(folder, "/")
		}
	}
}

// WithReporter sets the progress reporter.
func WithReporter(rep Reporter) Option {
	return func(r *Rewriter) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Rewriter for a space. pages is the scope of the space folder
// and downloads the scope of its attachment folder.
func New(resolver TinyResolver, pages, downloads *filename.Scope, opts ...Option) *Rewriter {
	r := &Rewriter{
		resolver:          resolver,
		pages:             pages,
		downloads:         downloads,
		downloadSubFolder: DefaultDownloadSubFolder,
		reporter:          nopReporter{},
		logger:            slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite applies all rules to doc in place. A nil document is left alone.
// Only context cancellation is returned as an error; unresolvable links are
// kept as they are.
func (r *Rewriter) Rewrite(ctx context.Context, doc *Document, depth int) error {
	if doc == nil {
		return nil
	}

	r.rewriteDisplayLinks(doc, depth)
	if err := r.rewriteTinyLinks(ctx, doc, depth); err != nil {
		return err
	}
	r.rewritePageIDLinks(doc)
	r.rewriteEmbeddedFiles(doc)
	r.rewriteImages(doc)
	return nil
}

// rewriteDisplayLinks maps /display/<space>/<title> links to page files.
func (r *Rewriter) rewriteDisplayLinks(doc *Document, depth int) {
	doc.Find(displayLinkSelector).Each(func(_ int, s *goquery.Selection) {
		if hasClass(s) {
			return
		}
		href, _ := s.Attr("href")
		title, fragment, ok := displayTitle(href)
		if !ok {
			return
		}
		name := r.pages.Allocate(title, false, "html")
		r.reporter.Link(depth, href, name)
		s.SetAttr("href", EncodePath(name)+fragment)
	})
}

// rewriteTinyLinks maps /x/<hash> links to id-forward files.
func (r *Rewriter) rewriteTinyLinks(ctx context.Context, doc *Document, depth int) error {
	var ctxErr error
	doc.Find(tinyLinkSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if hasClass(s) {
			return true
		}
		href, _ := s.Attr("href")
		id, err := r.resolver.Resolve(ctx, href)
		if err != nil {
			if ctx.Err() != nil {
				ctxErr = ctx.Err()
				return false
			}
			r.reporter.Warning(depth, "could not resolve %s: %v", href, err)
			r.logger.Debug("tiny URL resolution failed", "href", href, "error", err)
			return true
		}
		r.reporter.Link(depth, href, id)
		if id != "" {
			s.SetAttr("href", EncodePath(filename.Sanitize(id)+".html"))
		}
		return true
	})
	return ctxErr
}

// rewritePageIDLinks maps viewpage.action?pageId=N links to id-forward files.
func (r *Rewriter) rewritePageIDLinks(doc *Document) {
	doc.Find(pageIDLinkSelector).Each(func(_ int, s *goquery.Selection) {
		if hasClass(s) {
			return
		}
		href, _ := s.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		id := u.Query().Get("pageId")
		if id == "" {
			return
		}
		s.SetAttr("href", EncodePath(filename.Sanitize(id)+".html"))
	})
}

// rewriteEmbeddedFiles maps embedded file links into the download folder.
func (r *Rewriter) rewriteEmbeddedFiles(doc *Document) {
	doc.Find(embeddedFileSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if rel, ok := r.attachmentPath(href); ok {
			s.SetAttr("href", EncodePath(rel))
		}
	})
}

// rewriteImages maps image sources into the download folder and adds alt text.
func (r *Rewriter) rewriteImages(doc *Document) {
	doc.Find(imageSelector).Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		rel, ok := r.attachmentPath(src)
		if !ok {
			return
		}
		s.SetAttr("src", EncodePath(rel))
		if _, exists := s.Attr("alt"); !exists {
			s.SetAttr("alt", rel)
		}
	})
}

// attachmentPath returns the unencoded path of a download relative to the
// space folder. The name comes from the download scope, so it matches the
// name the fetcher used for the same URL.
func (r *Rewriter) attachmentPath(ref string) (string, bool) {
	derived, ok := attachment.DeriveFileName(ref)
	if !ok {
		return "", false
	}
	return r.downloadSubFolder + "/" + r.downloads.Allocate(derived, false, ""), true
}

// displayTitle extracts the page title and fragment of a display link.
// Links without a title segment (space home links) are not matched.
func displayTitle(href string) (string, string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(strings.TrimRight(u.EscapedPath(), "/"), "/")
	i := -1
	for j, p := range parts {
		if p == "display" {
			i = j
			break
		}
	}
	if i < 0 || len(parts) < i+3 {
		return "", "", false
	}
	title := remote.DecodeTitle(parts[len(parts)-1])
	if title == "" {
		return "", "", false
	}
	fragment := ""
	if u.Fragment != "" {
		fragment = "#" + u.EscapedFragment()
	}
	return title, fragment, true
}

// EncodePath percent-encodes each segment of a relative path.
func EncodePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// hasClass reports whether the element carries a non-empty class attribute.
func hasClass(s *goquery.Selection) bool {
	class, ok := s.Attr("class")
	return ok && strings.TrimSpace(class) != ""
}

type nopReporter struct{}

func (nopReporter) Link(int, string, string)    {}
func (nopReporter) Warning(int, string, ...any) {}
