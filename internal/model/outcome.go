package model

// PageState is the state a page reached in the export state machine.
type PageState int

const (
	// PageStateFailed means fetching or rendering failed; the subtree was pruned.
	PageStateFailed PageState = iota

	// PageStateSkipped means the page was unchanged and only appears in the tree.
	PageStateSkipped

	// PageStateDone means the page was rendered and written.
	PageStateDone
)

// String returns a human-readable state name.
func (s PageState) String() string {
	switch s {
	case PageStateFailed:
		return "failed"
	case PageStateSkipped:
		return "skipped"
	case PageStateDone:
		return "done"
	default:
		return "unknown"
	}
}

// PageOutcome is the result of exporting one page subtree.
// It carries either the exported subtree or the failure that pruned it.
type PageOutcome struct {
	// Page is the exported subtree. Nil when Err is set.
	Page *ExportedPage

	// State is the state the page itself reached.
	State PageState

	// Err is the failure that pruned the subtree.
	Err error
}

// Exported creates a successful outcome.
func Exported(page *ExportedPage, state PageState) PageOutcome {
	return PageOutcome{Page: page, State: state}
}

// Failed creates an outcome for a pruned subtree.
func Failed(err error) PageOutcome {
	return PageOutcome{State: PageStateFailed, Err: err}
}

// OK reports whether the subtree was exported.
func (o PageOutcome) OK() bool {
	return o.Err == nil && o.Page != nil
}
