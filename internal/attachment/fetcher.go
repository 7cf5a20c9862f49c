package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/wikidump/internal/filename"
	"github.com/nao1215/wikidump/internal/model"
)

// ErrUndeterminedName is returned when no local name can be derived for a URL.
var ErrUndeterminedName = errors.New("cannot derive a local file name")

// Downloader streams a remote resource into w.
type Downloader interface {
	Download(ctx context.Context, ref string, w io.Writer) error
}

// Reporter receives user-facing progress lines.
type Reporter interface {
	Download(depth int, name string)
	Warning(depth int, format string, args ...any)
	Error(depth int, format string, args ...any)
}

// Default allow-lists.
var (
	DefaultThumbnailFormats = []string{"gif", "jpeg", "jpg", "png"}
	DefaultPreviewFormats   = []string{"pdf"}
)

// Request describes one attachment to fetch.
type Request struct {
	// URL is the download URL, absolute or relative to the wiki base URL.
	URL string

	// AttachmentID enables the generated preview download. Empty for inline
	// temp attachments.
	AttachmentID string

	// FallbackName is used when no name can be derived from URL.
	FallbackName string

	// Scope is the download folder's filename scope.
	Scope *filename.Scope

	// Depth is the page depth, used for progress indentation.
	Depth int
}

// Result is the outcome of Fetch.
type Result struct {
	// Attachment is the primary file record. It is set even when the
	// download failed.
	Attachment model.ExportedAttachment

	// Downloaded is true when the primary file was written during this call.
	Downloaded bool

	// Warnings are the non-fatal thumbnail and preview failures.
	Warnings []error
}

// Fetcher downloads attachments with skip-if-present semantics.
type Fetcher struct {
	client     Downloader
	reporter   Reporter
	logger     *slog.Logger
	thumbnails map[string]bool
	previews   map[string]bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(f *Fetcher) {
		if r != nil {
			f.reporter = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithThumbnailFormats sets the extensions for which thumbnails exist.
func WithThumbnailFormats(formats []string) Option {
	return func(f *Fetcher) {
		f.thumbnails = formatSet(formats)
	}
}

// WithPreviewFormats sets the extensions for which the server generates previews.
func WithPreviewFormats(formats []string) Option {
	return func(f *Fetcher) {
		f.previews = formatSet(formats)
	}
}

// NewFetcher creates a Fetcher that downloads through client.
func NewFetcher(client Downloader, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     client,
		reporter:   nopReporter{},
		logger:     slog.New(slog.DiscardHandler),
		thumbnails: formatSet(DefaultThumbnailFormats),
		previews:   formatSet(DefaultPreviewFormats),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the primary file, then opportunistically its thumbnail
// and generated preview. The secondary files are attempted even when the
// primary download fails. Only a primary failure is returned as an error;
// the Result is still populated in that case.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	derived, ok := DeriveFileName(req.URL)
	if !ok {
		derived = req.FallbackName
	}
	if derived == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrUndeterminedName, req.URL)
	}

	name := req.Scope.Allocate(derived, false, "")
	result := Result{
		Attachment: model.ExportedAttachment{
			RemoteURL: req.URL,
			FileName:  name,
			FilePath:  req.Scope.Path(name),
		},
	}

	downloaded, primaryErr := f.download(ctx, req.URL, result.Attachment.FilePath, req.Depth)
	if primaryErr != nil {
		f.reporter.Error(req.Depth+1, "%v", primaryErr)
		f.logger.Debug("attachment download failed", "url", req.URL, "error", primaryErr)
	}
	result.Downloaded = downloaded
	if ctx.Err() != nil {
		return result, primaryErr
	}

	if thumbURL, ok := ThumbnailURL(req.URL); ok {
		if thumbName, ok := DeriveFileName(thumbURL); ok && hasFormat(thumbName, f.thumbnails) {
			if err := f.fetchSecondary(ctx, thumbURL, thumbName, req); err != nil {
				result.Warnings = append(result.Warnings, err)
			}
		}
	}

	if req.AttachmentID != "" && hasFormat(name, f.previews) {
		previewURL := PreviewURL(req.AttachmentID)
		if previewName, ok := DeriveFileName(previewURL); ok {
			if err := f.fetchSecondary(ctx, previewURL, previewName, req); err != nil {
				result.Warnings = append(result.Warnings, err)
			}
		}
	}

	return result, primaryErr
}

// fetchSecondary downloads a thumbnail or preview. Failures are warnings.
func (f *Fetcher) fetchSecondary(ctx context.Context, ref, derived string, req Request) error {
	name := req.Scope.Allocate(derived, false, "")
	if _, err := f.download(ctx, ref, req.Scope.Path(name), req.Depth); err != nil {
		f.reporter.Warning(req.Depth+1, "%v", err)
		return err
	}
	return nil
}

// download writes ref to dest unless dest already exists.
// The file is written to a temporary name and renamed on success.
func (f *Fetcher) download(ctx context.Context, ref, dest string, depth int) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	}

	f.reporter.Download(depth, filepath.Base(dest))

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return false, fmt.Errorf("failed to create download folder: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return false, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if err := f.client.Download(ctx, ref, tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("failed to move download into place: %w", err)
	}
	return true, nil
}

func formatSet(formats []string) map[string]bool {
	set := make(map[string]bool, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
		if f != "" {
			set[f] = true
		}
	}
	return set
}

func hasFormat(name string, formats map[string]bool) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return ext != "" && formats[ext]
}

type nopReporter struct{}

func (nopReporter) Download(int, string)         {}
func (nopReporter) Warning(int, string, ...any) {}
func (nopReporter) Error(int, string, ...any)   {}
