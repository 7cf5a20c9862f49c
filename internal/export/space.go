package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/wikidump/internal/filename"
	"github.com/nao1215/wikidump/internal/htmlpage"
	"github.com/nao1215/wikidump/internal/model"
	"github.com/nao1215/wikidump/internal/pipeline"
	"github.com/nao1215/wikidump/internal/rewrite"
)

// ExportSpace exports one space. counter and total only feed the progress
// header. Failures are recorded in the result; the caller decides whether
// to continue.
func (e *Exporter) ExportSpace(ctx context.Context, target Target, counter, total int) *model.SpaceResult {
	folder := filepath.Join(e.outputFolder, target.Key)
	result := &model.SpaceResult{Key: target.Key, Folder: folder}

	if err := e.prepareFolder(target.Key, folder); err != nil {
		if errors.Is(err, ErrSpaceFolderExists) {
			e.progress.Warning(-1, "The space %s has been exported already. Maybe you mentioned it twice in the settings", target.Key)
		} else {
			e.progress.Error(-1, "%v", err)
		}
		result.SetError(err)
		return result
	}

	name, homeID, err := e.client.Homepage(ctx, target.Key)
	if err != nil {
		e.progress.Error(-1, "%v", err)
		e.logger.Warn("space lookup failed", "space", target.Key, "error", err)
		result.SetError(err)
		return result
	}
	result.Name = name
	e.progress.Space(counter, total, name, target.Key)

	roots := target.PageIDs
	if len(roots) == 0 {
		if homeID == "" {
			e.progress.Warning(-1, "The space %s has no homepage", target.Key)
		} else {
			roots = []string{homeID}
		}
	}

	run := e.newSpaceRun(folder, result)
	root := &model.ExportedPage{FileName: htmlpage.IndexFileName}
	for _, id := range roots {
		outcome := run.exportPage(ctx, id, 0)
		if err := ctx.Err(); err != nil {
			result.SetError(err)
			return result
		}
		root.AppendChild(outcome.Page)
	}
	result.Root = root

	indexPath := filepath.Join(folder, htmlpage.IndexFileName)
	if err := e.writer.WritePage(indexPath, htmlpage.SpaceIndexTitle(name, target.Key), htmlpage.IndexContent(root)); err != nil {
		e.progress.Error(-1, "%v", err)
		result.SetError(err)
		return result
	}

	e.logger.Info("space exported",
		"space", target.Key,
		"rendered", result.PagesRendered,
		"skipped", result.PagesSkipped,
		"failed", result.PagesFailed,
	)
	return result
}

// prepareFolder creates the space folder. In Full mode an existing folder
// from an earlier run is removed first.
func (e *Exporter) prepareFolder(key, folder string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidSpaceKey, key)
	}
	if e.exported[key] {
		return fmt.Errorf("%w: %s", ErrSpaceFolderExists, key)
	}
	e.exported[key] = true

	if e.mode == Full {
		if err := os.RemoveAll(folder); err != nil {
			return fmt.Errorf("failed to clear space folder: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(folder, e.downloadSubFolder), 0750); err != nil {
		return fmt.Errorf("failed to create space folder: %w", err)
	}
	return nil
}

// spaceRun holds the per-space state of one export: the filename scopes of
// the page and attachment folders and the page pipeline bound to them.
type spaceRun struct {
	e        *Exporter
	pages    *filename.Scope
	pipeline *pipeline.Pipeline
	result   *model.SpaceResult
	logger   *slog.Logger
}

func (e *Exporter) newSpaceRun(folder string, result *model.SpaceResult) *spaceRun {
	pages := filename.NewScope(folder)
	pages.Reserve(htmlpage.IndexFileName)
	downloads := filename.NewScope(filepath.Join(folder, e.downloadSubFolder))

	rewriter := rewrite.New(e.tiny, pages, downloads,
		rewrite.WithDownloadSubFolder(e.downloadSubFolder),
		rewrite.WithReporter(e.progress),
		rewrite.WithLogger(e.logger),
	)

	p := pipeline.New(pipeline.WithLogger(e.logger))
	p.AddSteps(
		pipeline.NewParseStep(e.parse, e.progress),
		pipeline.NewAttachmentStep(e.client, e.fetcher, downloads),
		pipeline.NewTempAttachmentStep(e.fetcher, downloads),
		pipeline.NewRewriteStep(rewriter),
		pipeline.NewWriteStep(e.writer, pages),
	)
	if e.mode == Incremental {
		p.AddStep(pipeline.NewCacheStep(e.store))
	}

	return &spaceRun{
		e:        e,
		pages:    pages,
		pipeline: p,
		result:   result,
		logger:   e.logger.With("space", result.Key),
	}
}

// exportPage exports the page with the given id and its subtree.
func (r *spaceRun) exportPage(ctx context.Context, id string, depth int) model.PageOutcome {
	if err := ctx.Err(); err != nil {
		return model.Failed(err)
	}

	page, body, err := r.e.client.PageDetails(ctx, id)
	if err != nil {
		return r.fail(ctx, depth, id, err)
	}

	fresh := r.isStale(ctx, page, depth)
	r.e.progress.Page(depth, page.Title, id, !fresh)

	// The name is allocated for skipped pages too, so that links and the
	// index keep pointing at the file written by an earlier run.
	node := &model.ExportedPage{
		Source:   &page,
		FileName: r.pages.Allocate(page.Title, false, "html"),
		Skipped:  !fresh,
	}

	state := model.PageStateSkipped
	if fresh {
		if err := r.render(ctx, page, body, node, depth); err != nil {
			return r.fail(ctx, depth, id, err)
		}
		state = model.PageStateDone
	}

	for child, err := range r.e.client.ChildPages(ctx, id) {
		if err != nil {
			return r.fail(ctx, depth, id, fmt.Errorf("failed to list child pages: %w", err))
		}
		outcome := r.exportPage(ctx, child.ID, depth+1)
		if err := ctx.Err(); err != nil {
			return model.Failed(err)
		}
		node.AppendChild(outcome.Page)
	}

	if state == model.PageStateDone {
		r.result.PagesRendered++
	} else {
		r.result.PagesSkipped++
	}
	return model.Exported(node, state)
}

// isStale reports whether the page has to be rendered.
func (r *spaceRun) isStale(ctx context.Context, page model.PageRecord, depth int) bool {
	if r.e.mode == Full || r.e.force {
		return true
	}
	entry, err := r.e.store.Get(ctx, page.ID)
	if err != nil {
		r.e.progress.Warning(depth, "cache lookup for page %s failed: %v", page.ID, err)
		r.result.Warnings++
		return true
	}
	return entry.IsStale(page)
}

// render runs the pipeline. A failure after the page file was written only
// concerns the cache and is downgraded to a warning.
func (r *spaceRun) render(ctx context.Context, page model.PageRecord, body string, node *model.ExportedPage, depth int) error {
	job := pipeline.NewJob(page, body, node, depth)
	err := r.pipeline.Execute(ctx, job)

	r.result.Attachments += len(node.Attachments)
	r.result.AttachmentErrors += job.AttachmentErrors
	r.result.Warnings += len(job.Warnings)

	if err != nil && ctx.Err() == nil && job.Performed(pipeline.StepWrite) {
		r.e.progress.Warning(depth, "failed to update cache for page %s: %v", page.ID, err)
		r.result.Warnings++
		return nil
	}
	return err
}

// fail reports a page failure and prunes its subtree.
func (r *spaceRun) fail(ctx context.Context, depth int, id string, err error) model.PageOutcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.Failed(ctxErr)
	}
	r.e.progress.Error(depth, "page %s: %v", id, err)
	r.logger.Debug("page failed", "page", id, "error", err)
	r.result.PagesFailed++
	return model.Failed(err)
}
