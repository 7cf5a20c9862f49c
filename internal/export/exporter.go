package export

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nao1215/wikidump/internal/attachment"
	"github.com/nao1215/wikidump/internal/database"
	"github.com/nao1215/wikidump/internal/htmlpage"
	"github.com/nao1215/wikidump/internal/model"
	"github.com/nao1215/wikidump/internal/pipeline"
	"github.com/nao1215/wikidump/internal/remote"
	"github.com/nao1215/wikidump/internal/rewrite"
)

// Mode selects how the incremental cache is used.
type Mode int

const (
	// Incremental consults the cache to skip unchanged pages and updates it.
	Incremental Mode = iota
	// Full clears each space folder and renders every page without touching the cache.
	Full
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Full {
		return "full"
	}
	return "incremental"
}

// Client is the remote API used by the exporter. *remote.Client implements it.
type Client interface {
	PageDetails(ctx context.Context, id string) (model.PageRecord, string, error)
	PageSpace(ctx context.Context, id string) (string, error)
	Homepage(ctx context.Context, spaceKey string) (string, string, error)
	ChildPages(ctx context.Context, id string) iter.Seq2[remote.ChildPage, error]
	Attachments(ctx context.Context, id string) iter.Seq2[remote.Attachment, error]
	Spaces(ctx context.Context) iter.Seq2[remote.Space, error]
	Download(ctx context.Context, ref string, w io.Writer) error
}

// Progress receives the user-facing export hierarchy. *log.Progress implements it.
type Progress interface {
	Info(format string, args ...any)
	Space(counter, total int, name, key string)
	Page(depth int, title, id string, skipped bool)
	Link(depth int, href, target string)
	Download(depth int, name string)
	Warning(depth int, format string, args ...any)
	Error(depth int, format string, args ...any)
	Finished()
}

// Target is one space to export with its optional root page ids.
// Without page ids the space is exported from its homepage.
type Target struct {
	Key     string
	PageIDs []string
}

// Exporter exports wiki spaces into a folder. It is not safe for
// concurrent use; spaces are exported one after the other.
type Exporter struct {
	client            Client
	outputFolder      string
	mode              Mode
	force             bool
	store             database.Store
	writer            *htmlpage.Renderer
	tiny              rewrite.TinyResolver
	parse             pipeline.ParseFunc
	downloadSubFolder string
	thumbnailFormats  []string
	previewFormats    []string
	progress          Progress
	logger            *slog.Logger

	fetcher  *attachment.Fetcher
	exported map[string]bool
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithMode sets the run mode. The default is Incremental.
func WithMode(m Mode) Option {
	return func(e *Exporter) {
		e.mode = m
	}
}

// WithForce renders every page while still updating the cache.
func WithForce(force bool) Option {
	return func(e *Exporter) {
		e.force = force
	}
}

// WithStore sets the incremental state store. Without one, an in-memory
// store is used and nothing survives the run.
func WithStore(s database.Store) Option {
	return func(e *Exporter) {
		e.store = s
	}
}

// WithRenderer sets the page renderer.
func WithRenderer(r *htmlpage.Renderer) Option {
	return func(e *Exporter) {
		e.writer = r
	}
}

// WithTinyResolver sets the tiny link resolver. By default a per-run
// cache in front of the client is used when the client can resolve links.
func WithTinyResolver(r rewrite.TinyResolver) Option {
	return func(e *Exporter) {
		e.tiny = r
	}
}

// WithParser replaces the HTML body parser.
func WithParser(parse pipeline.ParseFunc) Option {
	return func(e *Exporter) {
		e.parse = parse
	}
}

// WithDownloadSubFolder sets the attachment folder inside each space folder.
func WithDownloadSubFolder(folder string) Option {
	return func(e *Exporter) {
		if folder != "" {
			e.downloadSubFolder = folder
		}
	}
}

// WithThumbnailFormats sets the extensions for which thumbnails are fetched.
func WithThumbnailFormats(formats []string) Option {
	return func(e *Exporter) {
		e.thumbnailFormats = formats
	}
}

// WithPreviewFormats sets the extensions for which generated previews are fetched.
func WithPreviewFormats(formats []string) Option {
	return func(e *Exporter) {
		e.previewFormats = formats
	}
}

// WithProgress sets the progress printer.
func WithProgress(p Progress) Option {
	return func(e *Exporter) {
		e.progress = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = l
	}
}

// New creates an Exporter writing below outputFolder.
func New(client Client, outputFolder string, opts ...Option) (*Exporter, error) {
	e := &Exporter{
		client:            client,
		outputFolder:      outputFolder,
		downloadSubFolder: rewrite.DefaultDownloadSubFolder,
		thumbnailFormats:  attachment.DefaultThumbnailFormats,
		previewFormats:    attachment.DefaultPreviewFormats,
		progress:          nopProgress{},
		logger:            slog.New(slog.DiscardHandler),
		exported:          make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		e.store = database.NewMemoryStore()
	}
	if e.writer == nil {
		r, err := htmlpage.NewRenderer("")
		if err != nil {
			return nil, err
		}
		e.writer = r
	}
	if e.tiny == nil {
		if resolver, ok := client.(remote.TinyURLResolver); ok {
			e.tiny = remote.NewTinyURLCache(resolver)
		} else {
			e.tiny = noTinyResolver{}
		}
	}
	e.fetcher = attachment.NewFetcher(client,
		attachment.WithReporter(e.progress),
		attachment.WithLogger(e.logger),
		attachment.WithThumbnailFormats(e.thumbnailFormats),
		attachment.WithPreviewFormats(e.previewFormats),
	)
	return e, nil
}

// Run exports the targets in order and always attempts every target.
// The returned error is non-nil only when the run could not start or was
// interrupted; per-space failures are recorded in the summary.
func (e *Exporter) Run(ctx context.Context, targets []Target) (*model.ExportSummary, error) {
	summary := &model.ExportSummary{
		StartedAt: time.Now(),
		Mode:      e.mode.String(),
		Forced:    e.force,
	}
	defer func() { summary.FinishedAt = time.Now() }()

	if err := os.MkdirAll(e.outputFolder, 0750); err != nil {
		return summary, fmt.Errorf("failed to create export folder: %w", err)
	}

	keys := make([]string, 0, len(targets))
	for _, t := range targets {
		keys = append(keys, t.Key)
	}
	e.progress.Info("Exporting %d space(s): %s", len(targets), strings.Join(keys, ", "))
	e.logger.Info("export started", "spaces", len(targets), "mode", e.mode.String(), "force", e.force)

	for i, t := range targets {
		result := e.ExportSpace(ctx, t, i+1, len(targets))
		summary.Spaces = append(summary.Spaces, result)
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			return summary, err
		}
	}

	e.progress.Finished()
	e.logger.Info("export finished", "spaces", len(summary.Spaces), "failed", summary.FailedSpaces())
	return summary, nil
}

// noTinyResolver fails every tiny link, leaving it unchanged.
type noTinyResolver struct{}

func (noTinyResolver) Resolve(context.Context, string) (string, error) {
	return "", ErrNoTinyResolver
}

type nopProgress struct{}

func (nopProgress) Info(string, ...any)            {}
func (nopProgress) Space(int, int, string, string) {}
func (nopProgress) Page(int, string, string, bool) {}
func (nopProgress) Link(int, string, string)       {}
func (nopProgress) Download(int, string)           {}
func (nopProgress) Warning(int, string, ...any)    {}
func (nopProgress) Error(int, string, ...any)      {}
func (nopProgress) Finished()                      {}
