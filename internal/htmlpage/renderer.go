package htmlpage

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
)

// DefaultForwardMessage is the body of id-forward stubs. The first %s is the
// link target, the second the page title.
const DefaultForwardMessage = `<a href="%s">If you are not automatically forwarded to %s, please click here!</a>`

//go:embed templates/page.html
var defaultTemplate string

// Page is the data passed to the page template.
type Page struct {
	Title   string
	Content template.HTML
	Headers []template.HTML
}

// Renderer renders and writes HTML files.
type Renderer struct {
	tmpl           *template.Template
	forwardMessage string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithForwardMessage sets the id-forward stub message.
func WithForwardMessage(msg string) Option {
	return func(r *Renderer) {
		if msg != "" {
			r.forwardMessage = msg
		}
	}
}

// NewRenderer parses a template. An empty text selects the embedded default.
func NewRenderer(text string, opts ...Option) (*Renderer, error) {
	if text == "" {
		text = defaultTemplate
	}
	tmpl, err := template.New("page").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	r := &Renderer{tmpl: tmpl, forwardMessage: DefaultForwardMessage}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// LoadRenderer reads the template from path. An empty path selects the
// embedded default.
func LoadRenderer(path string, opts ...Option) (*Renderer, error) {
	if path == "" {
		return NewRenderer("", opts...)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return NewRenderer(string(data), opts...)
}

// Render executes the template.
func (r *Renderer) Render(page Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePage renders a page and writes it to path.
func (r *Renderer) WritePage(path, title, content string, headers ...string) error {
	page := Page{
		Title:   title,
		Content: template.HTML(content), //nolint:gosec // page bodies are HTML by definition
	}
	for _, h := range headers {
		page.Headers = append(page.Headers, template.HTML(h)) //nolint:gosec // generated by this package
	}

	data, err := r.Render(page)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteForward writes the id-forward stub at path. It redirects to the
// already encoded link target.
func (r *Renderer) WriteForward(path, pageTitle, target string) error {
	header := fmt.Sprintf(`<meta http-equiv="refresh" content="0; url=%s" />`, template.HTMLEscapeString(target))
	return r.WritePage(path, "Forward to page "+pageTitle, r.forwardContent(target, pageTitle), header)
}

// forwardContent fills the message placeholders: the first %s receives the
// link target, the second the page title. Extra placeholders stay empty,
// "%%" is a literal percent sign and any other verb is kept as written.
func (r *Renderer) forwardContent(target, title string) string {
	args := []string{template.HTMLEscapeString(target), template.HTMLEscapeString(title)}
	msg := r.forwardMessage

	var b strings.Builder
	for {
		i := strings.IndexByte(msg, '%')
		if i < 0 || i == len(msg)-1 {
			b.WriteString(msg)
			return b.String()
		}
		b.WriteString(msg[:i])
		switch verb := msg[i+1]; verb {
		case 's':
			if len(args) > 0 {
				b.WriteString(args[0])
				args = args[1:]
			}
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(verb)
		}
		msg = msg[i+2:]
	}
}
