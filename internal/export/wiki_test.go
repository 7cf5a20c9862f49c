package export

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/wikidump/internal/remote"
)

// fakePage is one page of the fake wiki.
type fakePage struct {
	id          string
	title       string
	space       string
	when        string
	body        string
	children    []string
	attachments []fakeAttachment
	broken      bool
}

type fakeAttachment struct {
	id       string
	title    string
	download string
}

type fakeSpace struct {
	name string
	home string
}

// fakeWiki serves the subset of the REST API used by the exporter.
type fakeWiki struct {
	mu     sync.Mutex
	spaces map[string]fakeSpace
	order  []string
	pages  map[string]*fakePage
	files  map[string]string
	hits   map[string]int
}

func newFakeWiki() *fakeWiki {
	return &fakeWiki{
		spaces: make(map[string]fakeSpace),
		pages:  make(map[string]*fakePage),
		files:  make(map[string]string),
		hits:   make(map[string]int),
	}
}

func (w *fakeWiki) addSpace(key, name, home string) {
	w.spaces[key] = fakeSpace{name: name, home: home}
	w.order = append(w.order, key)
}

func (w *fakeWiki) addPage(p *fakePage) {
	if p.when == "" {
		p.when = "2026-01-02T10:00:00.000Z"
	}
	w.pages[p.id] = p
}

func (w *fakeWiki) setWhen(id, when string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[id].when = when
}

// downloads returns how often path was requested from the download endpoint.
func (w *fakeWiki) downloads(path string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hits[path]
}

func (w *fakeWiki) page(id string) (*fakePage, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pages[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (w *fakeWiki) handler(t *testing.T) http.Handler {
	t.Helper()

	writeJSON := func(rw http.ResponseWriter, v any) {
		rw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(rw).Encode(v); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
	contentJSON := func(p *fakePage) map[string]any {
		return map[string]any{
			"id":      p.id,
			"title":   p.title,
			"space":   map[string]any{"key": p.space},
			"version": map[string]any{"when": p.when},
			"body":    map[string]any{"view": map[string]any{"value": p.body}},
			"_links":  map[string]any{"tinyui": "/x/" + p.id},
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/space", func(rw http.ResponseWriter, _ *http.Request) {
		results := make([]map[string]any, 0, len(w.order))
		for _, key := range w.order {
			results = append(results, map[string]any{"key": key, "name": w.spaces[key].name})
		}
		writeJSON(rw, map[string]any{"results": results, "_links": map[string]any{}})
	})
	mux.HandleFunc("GET /rest/api/space/{key}", func(rw http.ResponseWriter, r *http.Request) {
		sp, ok := w.spaces[r.PathValue("key")]
		if !ok {
			http.Error(rw, `{"message":"No space found"}`, http.StatusNotFound)
			return
		}
		resp := map[string]any{"key": r.PathValue("key"), "name": sp.name}
		if sp.home != "" {
			resp["homepage"] = map[string]any{"id": sp.home}
		}
		writeJSON(rw, resp)
	})
	mux.HandleFunc("GET /rest/api/content/{id}", func(rw http.ResponseWriter, r *http.Request) {
		p, ok := w.page(r.PathValue("id"))
		if !ok || p.broken {
			http.Error(rw, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(rw, contentJSON(p))
	})
	mux.HandleFunc("GET /rest/api/content/{id}/child/page", func(rw http.ResponseWriter, r *http.Request) {
		p, ok := w.page(r.PathValue("id"))
		if !ok {
			http.NotFound(rw, r)
			return
		}
		results := make([]map[string]any, 0, len(p.children))
		for _, id := range p.children {
			title := ""
			if c, ok := w.page(id); ok {
				title = c.title
			}
			results = append(results, map[string]any{"id": id, "title": title})
		}
		writeJSON(rw, map[string]any{"results": results, "_links": map[string]any{}})
	})
	mux.HandleFunc("GET /rest/api/content/{id}/child/attachment", func(rw http.ResponseWriter, r *http.Request) {
		p, ok := w.page(r.PathValue("id"))
		if !ok {
			http.NotFound(rw, r)
			return
		}
		results := make([]map[string]any, 0, len(p.attachments))
		for _, a := range p.attachments {
			results = append(results, map[string]any{
				"id":     a.id,
				"title":  a.title,
				"_links": map[string]any{"download": a.download},
			})
		}
		writeJSON(rw, map[string]any{"results": results, "_links": map[string]any{}})
	})
	mux.HandleFunc("GET /download/", func(rw http.ResponseWriter, r *http.Request) {
		w.mu.Lock()
		w.hits[r.URL.Path]++
		w.mu.Unlock()
		content, ok := w.files[r.URL.Path]
		if !ok {
			http.NotFound(rw, r)
			return
		}
		_, _ = rw.Write([]byte(content))
	})
	mux.HandleFunc("GET /rest/documentConversion/", func(rw http.ResponseWriter, r *http.Request) {
		http.NotFound(rw, r)
	})
	return mux
}

// serve starts the fake wiki and returns a client for it.
func (w *fakeWiki) serve(t *testing.T) *remote.Client {
	t.Helper()

	srv := httptest.NewServer(w.handler(t))
	t.Cleanup(srv.Close)

	c, err := remote.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

// engineeringWiki builds a small space:
//
//	Home (1)
//	├── Intro (2)
//	├── "Intro " (3)
//	└── Broken (4), fails to load
//
// Home links to Intro and carries one attachment.
func engineeringWiki() *fakeWiki {
	w := newFakeWiki()
	w.addSpace("ENG", "Engineering", "1")
	w.addPage(&fakePage{
		id:       "1",
		title:    "Home",
		space:    "ENG",
		body:     `<p>See <a href="/display/ENG/Intro">the intro</a>.</p><img src="/download/attachments/1/pic.png?version=1">`,
		children: []string{"2", "3", "4"},
		attachments: []fakeAttachment{
			{id: "att10", title: "pic.png", download: "/download/attachments/1/pic.png?version=1"},
		},
	})
	w.addPage(&fakePage{id: "2", title: "Intro", space: "ENG", body: "<p>intro</p>"})
	w.addPage(&fakePage{id: "3", title: "Intro ", space: "ENG", body: "<p>intro with a trailing space</p>"})
	w.addPage(&fakePage{id: "4", title: "Broken", space: "ENG", broken: true})
	w.files["/download/attachments/1/pic.png"] = "PNGDATA"
	return w
}

func contains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("expected %q in:\n%s", needle, haystack)
	}
}
