package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/nao1215/wikidump/internal/attachment"
	"github.com/nao1215/wikidump/internal/filename"
	"github.com/nao1215/wikidump/internal/htmlpage"
	"github.com/nao1215/wikidump/internal/model"
	"github.com/nao1215/wikidump/internal/remote"
	"github.com/nao1215/wikidump/internal/rewrite"
)

// ParseFunc parses a page body.
type ParseFunc func(body string) (*rewrite.Document, error)

// AttachmentLister lists the attachments of a page.
type AttachmentLister interface {
	Attachments(ctx context.Context, id string) iter.Seq2[remote.Attachment, error]
}

// Fetcher downloads one attachment.
type Fetcher interface {
	Fetch(ctx context.Context, req attachment.Request) (attachment.Result, error)
}

// Rewriter rewrites the links of a parsed body.
type Rewriter interface {
	Rewrite(ctx context.Context, doc *rewrite.Document, depth int) error
}

// PageWriter writes page files and id-forward stubs.
type PageWriter interface {
	WritePage(path, title, content string, headers ...string) error
	WriteForward(path, pageTitle, target string) error
}

// CacheWriter persists the cache entry of a rendered page.
type CacheWriter interface {
	Upsert(ctx context.Context, entry *model.CacheEntry) error
}

// Reporter receives user-facing warnings.
type Reporter interface {
	Warning(depth int, format string, args ...any)
}

// ParseStep parses the body. A parse failure is a warning: the body is then
// exported verbatim without link rewriting.
type ParseStep struct {
	parse    ParseFunc
	reporter Reporter
}

// NewParseStep creates a ParseStep. A nil parse selects rewrite.Parse.
func NewParseStep(parse ParseFunc, reporter Reporter) *ParseStep {
	if parse == nil {
		parse = rewrite.Parse
	}
	return &ParseStep{parse: parse, reporter: reporter}
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return StepParse
}

// Do executes the step.
func (s *ParseStep) Do(_ context.Context, job *Job) error {
	doc, err := s.parse(job.Body)
	if err != nil {
		s.reporter.Warning(job.Depth, "Could not parse HTML content of page %s. Original content will be exported as it is.", job.Page.ID)
		job.Warn(err)
		job.Doc = nil
		return nil
	}
	job.Doc = doc
	return nil
}

// AttachmentStep downloads the attachments listed for the page.
// A listing failure fails the page; single download failures do not.
type AttachmentStep struct {
	lister    AttachmentLister
	fetcher   Fetcher
	downloads *filename.Scope
}

// NewAttachmentStep creates an AttachmentStep.
func NewAttachmentStep(lister AttachmentLister, fetcher Fetcher, downloads *filename.Scope) *AttachmentStep {
	return &AttachmentStep{lister: lister, fetcher: fetcher, downloads: downloads}
}

// Name returns the step name.
func (s *AttachmentStep) Name() string {
	return StepAttachments
}

// Do executes the step.
func (s *AttachmentStep) Do(ctx context.Context, job *Job) error {
	for att, err := range s.lister.Attachments(ctx, job.Page.ID) {
		if err != nil {
			return fmt.Errorf("failed to list attachments of page %s: %w", job.Page.ID, err)
		}
		req := attachment.Request{
			URL:          att.DownloadURL,
			AttachmentID: att.ID,
			FallbackName: att.Title,
			Scope:        s.downloads,
			Depth:        job.Depth + 1,
		}
		if err := fetchInto(ctx, s.fetcher, req, job); err != nil {
			return err
		}
	}
	return nil
}

// TempAttachmentStep downloads inline images served from the temporary
// download area, which are not part of the attachment listing.
type TempAttachmentStep struct {
	fetcher   Fetcher
	downloads *filename.Scope
}

// NewTempAttachmentStep creates a TempAttachmentStep.
func NewTempAttachmentStep(fetcher Fetcher, downloads *filename.Scope) *TempAttachmentStep {
	return &TempAttachmentStep{fetcher: fetcher, downloads: downloads}
}

// Name returns the step name.
func (s *TempAttachmentStep) Name() string {
	return StepTempAttachments
}

// Do executes the step.
func (s *TempAttachmentStep) Do(ctx context.Context, job *Job) error {
	for _, src := range job.Doc.TempAttachmentURLs() {
		req := attachment.Request{
			URL:   src,
			Scope: s.downloads,
			Depth: job.Depth + 1,
		}
		if err := fetchInto(ctx, s.fetcher, req, job); err != nil {
			return err
		}
	}
	return nil
}

// fetchInto downloads one attachment and records it on the job.
// Only cancellation is returned.
func fetchInto(ctx context.Context, fetcher Fetcher, req attachment.Request, job *Job) error {
	res, err := fetcher.Fetch(ctx, req)
	job.Warnings = append(job.Warnings, res.Warnings...)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, attachment.ErrUndeterminedName):
		job.Warn(err)
		return nil
	default:
		job.AttachmentErrors++
	}
	job.Node.AddAttachments(res.Attachment)
	return nil
}

// RewriteStep rewrites the links of the parsed body.
type RewriteStep struct {
	rewriter Rewriter
}

// NewRewriteStep creates a RewriteStep.
func NewRewriteStep(rewriter Rewriter) *RewriteStep {
	return &RewriteStep{rewriter: rewriter}
}

// Name returns the step name.
func (s *RewriteStep) Name() string {
	return StepRewrite
}

// Do executes the step.
func (s *RewriteStep) Do(ctx context.Context, job *Job) error {
	if job.Doc == nil {
		return nil
	}
	return s.rewriter.Rewrite(ctx, job.Doc, job.Depth+1)
}

// WriteStep writes the page file with its attachment index, followed by the
// id-forward stub.
type WriteStep struct {
	writer PageWriter
	pages  *filename.Scope
}

// NewWriteStep creates a WriteStep writing into the folder of pages.
func NewWriteStep(writer PageWriter, pages *filename.Scope) *WriteStep {
	return &WriteStep{writer: writer, pages: pages}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return StepWrite
}

// Do executes the step.
func (s *WriteStep) Do(_ context.Context, job *Job) error {
	content := job.Body
	if job.Doc != nil {
		rendered, err := job.Doc.HTML()
		if err != nil {
			return err
		}
		content = rendered
	}
	content += htmlpage.AttachmentIndex(s.pages.Folder(), job.Node.Attachments)

	if err := s.writer.WritePage(s.pages.Path(job.Node.FileName), job.Page.Title, content); err != nil {
		return err
	}
	return s.writer.WriteForward(ForwardPath(s.pages, job.Page.ID), job.Page.Title, rewrite.EncodePath(job.Node.FileName))
}

// ForwardPath returns the path of the id-forward stub of a page.
func ForwardPath(pages *filename.Scope, id string) string {
	return pages.Path(filename.Sanitize(id) + ".html")
}

// CacheStep records the rendered page in the incremental state store.
type CacheStep struct {
	store CacheWriter
}

// NewCacheStep creates a CacheStep.
func NewCacheStep(store CacheWriter) *CacheStep {
	return &CacheStep{store: store}
}

// Name returns the step name.
func (s *CacheStep) Name() string {
	return StepCache
}

// Do executes the step.
func (s *CacheStep) Do(ctx context.Context, job *Job) error {
	return s.store.Upsert(ctx, model.NewCacheEntry(job.Page))
}
