package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/wikidump/internal/filename"
)

// stubResolver resolves tiny URLs from a fixed map keyed by href.
type stubResolver struct {
	ids  map[string]string
	errs map[string]error
}

func (s stubResolver) Resolve(_ context.Context, tinyURL string) (string, error) {
	if err := s.errs[tinyURL]; err != nil {
		return "", err
	}
	return s.ids[tinyURL], nil
}

func rewriteBody(t *testing.T, r *Rewriter, body string) string {
	t.Helper()

	doc, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := r.Rewrite(context.Background(), doc, 0); err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	out, err := doc.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	return out
}

func newTestRewriter(resolver TinyResolver) (*Rewriter, *filename.Scope, *filename.Scope) {
	pages := filename.NewScope("out/ENG")
	downloads := filename.NewScope("out/ENG/attachments")
	return New(resolver, pages, downloads), pages, downloads
}

func TestRewriteDisplayLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "title with plus signs",
			body: `<a href="/display/ENG/Getting+Started">x</a>`,
			want: `<a href="getting%20started.html">x</a>`,
		},
		{
			name: "absolute URL with percent escapes",
			body: `<a href="https://wiki.example.com/display/ENG/C%2B%2B+Guide">x</a>`,
			want: `<a href="c++%20guide.html">x</a>`,
		},
		{
			name: "fragment is kept",
			body: `<a href="/display/ENG/Intro#Setup">x</a>`,
			want: `<a href="intro.html#Setup">x</a>`,
		},
		{
			name: "classed link is untouched",
			body: `<a class="user-mention" href="/display/~john">x</a>`,
			want: `<a class="user-mention" href="/display/~john">x</a>`,
		},
		{
			name: "space home link is untouched",
			body: `<a href="/display/ENG">x</a>`,
			want: `<a href="/display/ENG">x</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _, _ := newTestRewriter(stubResolver{})
			if got := rewriteBody(t, r, tt.body); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDisplayLinkMatchesAllocation(t *testing.T) {
	t.Parallel()

	r, pages, _ := newTestRewriter(stubResolver{})
	out := rewriteBody(t, r, `<a href="/display/ENG/Release+Notes+2024">x</a>`)

	name := pages.Allocate("Release Notes 2024", false, "html")
	if !strings.Contains(out, `href="`+EncodePath(name)+`"`) {
		t.Errorf("link %s does not target allocated name %q", out, name)
	}
}

func TestRewriteTinyLinks(t *testing.T) {
	t.Parallel()

	resolver := stubResolver{
		ids: map[string]string{"/x/KuwCBw": "117632042"},
		errs: map[string]error{
			"/x/broken": errors.New("status 500"),
		},
	}
	r, _, _ := newTestRewriter(resolver)

	got := rewriteBody(t, r, `<a href="/x/KuwCBw">a</a><a href="/x/unknown">b</a><a href="/x/broken">c</a><a class="c" href="/x/KuwCBw">d</a>`)
	want := `<a href="117632042.html">a</a><a href="/x/unknown">b</a><a href="/x/broken">c</a><a class="c" href="/x/KuwCBw">d</a>`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestRewriteTinyLinksStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _, _ := newTestRewriter(stubResolver{errs: map[string]error{"/x/a": context.Canceled}})
	doc, err := Parse(`<a href="/x/a">a</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Rewrite(ctx, doc, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Rewrite() error = %v, want context.Canceled", err)
	}
}

func TestRewritePageIDLinks(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRewriter(stubResolver{})
	got := rewriteBody(t, r, `<a href="/pages/viewpage.action?pageId=117632042">a</a><a href="/pages/viewpage.action?title=x">b</a>`)
	want := `<a href="117632042.html">a</a><a href="/pages/viewpage.action?title=x">b</a>`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestRewriteAttachments(t *testing.T) {
	t.Parallel()

	t.Run("embedded file link", func(t *testing.T) {
		t.Parallel()

		r, _, _ := newTestRewriter(stubResolver{})
		got := rewriteBody(t, r, `<a class="confluence-embedded-file" href="/download/attachments/524291/My%20Doc.pdf?version=1">f</a>`)
		want := `<a class="confluence-embedded-file" href="attachments/524291_attachments_my%20doc.pdf">f</a>`
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("image gets src and alt", func(t *testing.T) {
		t.Parallel()

		r, _, _ := newTestRewriter(stubResolver{})
		got := rewriteBody(t, r, `<img src="/download/attachments/524291/peak.jpeg?version=1"/>`)
		want := `<img src="attachments/524291_attachments_peak.jpeg" alt="attachments/524291_attachments_peak.jpeg"/>`
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("existing alt is kept", func(t *testing.T) {
		t.Parallel()

		r, _, _ := newTestRewriter(stubResolver{})
		got := rewriteBody(t, r, `<img alt="peak" src="/download/temp/plantuml123.png?contentType=image/png"/>`)
		want := `<img alt="peak" src="attachments/temp_plantuml123.png"/>`
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("generated preview image", func(t *testing.T) {
		t.Parallel()

		r, _, _ := newTestRewriter(stubResolver{})
		got := rewriteBody(t, r, `<img src="/rest/documentConversion/latest/conversion/thumbnail/524292/1" alt=""/>`)
		want := `<img src="attachments/generated_preview_524292.jpg" alt=""/>`
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("uses the name the fetcher allocated", func(t *testing.T) {
		t.Parallel()

		r, _, downloads := newTestRewriter(stubResolver{})
		// A colliding attachment was downloaded first.
		downloads.Allocate("1_attachments_A.png", false, "")
		fetched := downloads.Allocate("1_attachments_a.png", false, "")

		got := rewriteBody(t, r, `<img alt="x" src="/download/attachments/1/a.png"/>`)
		if !strings.Contains(got, `src="attachments/`+fetched+`"`) {
			t.Errorf("got %s, want src of %s", got, fetched)
		}
	})

	t.Run("custom download folder", func(t *testing.T) {
		t.Parallel()

		r := New(stubResolver{}, filename.NewScope("p"), filename.NewScope("p/files"), WithDownloadSubFolder("files"))
		got := rewriteBody(t, r, `<img alt="x" src="/download/temp/a.png"/>`)
		if got != `<img alt="x" src="files/temp_a.png"/>` {
			t.Errorf("got %s", got)
		}
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	doc, err := Parse("")
	if err != nil || doc != nil {
		t.Errorf("Parse(empty) = %v, %v, want nil, nil", doc, err)
	}

	doc, err = Parse(`<style>p{}</style><p>a <img src="/download/temp/x.png"> <img src="/download/attachments/1/y.png"></p><img src="/download/temp/z.png">`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	urls := doc.TempAttachmentURLs()
	if strings.Join(urls, ",") != "/download/temp/x.png,/download/temp/z.png" {
		t.Errorf("TempAttachmentURLs() = %v", urls)
	}
	out, err := doc.HTML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "<style>") {
		t.Errorf("HTML() = %s, want leading <style> kept in body", out)
	}

	var nilDoc *Document
	if nilDoc.TempAttachmentURLs() != nil {
		t.Error("TempAttachmentURLs() on nil document should be nil")
	}
}

func TestEncodePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"intro.html", "intro.html"},
		{"getting started.html", "getting%20started.html"},
		{"attachments/1_attachments_a b.png", "attachments/1_attachments_a%20b.png"},
		{"100%.html", "100%25.html"},
		{"q?.html", "q%3F.html"},
	}
	for _, tt := range tests {
		if got := EncodePath(tt.in); got != tt.want {
			t.Errorf("EncodePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("bad")
	err := error(&ParseError{Err: inner})
	if !errors.Is(err, inner) {
		t.Error("ParseError should unwrap to its cause")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Error("errors.As should find ParseError")
	}
}
