package export

import (
	"context"
	"fmt"
)

// SpaceTargets returns the configured spaces, or every space of the wiki
// when none is configured.
func (e *Exporter) SpaceTargets(ctx context.Context, configured []Target) ([]Target, error) {
	if len(configured) > 0 {
		return configured, nil
	}

	var targets []Target
	for space, err := range e.client.Spaces(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list spaces: %w", err)
		}
		targets = append(targets, Target{Key: space.Key})
	}
	return targets, nil
}

// PageTargets groups page ids by their owning space, keeping the order in
// which spaces and pages first appear. Pages whose space cannot be looked up
// are reported and left out.
func (e *Exporter) PageTargets(ctx context.Context, pageIDs []string) ([]Target, error) {
	var targets []Target
	index := make(map[string]int)

	for _, id := range pageIDs {
		key, err := e.client.PageSpace(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.progress.Error(-1, "page %s: %v", id, err)
			e.logger.Warn("page space lookup failed", "page", id, "error", err)
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(targets)
			index[key] = i
			targets = append(targets, Target{Key: key})
		}
		targets[i].PageIDs = append(targets[i].PageIDs, id)
	}
	return targets, nil
}
