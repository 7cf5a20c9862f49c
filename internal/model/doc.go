// Package model defines the data structures shared across wikidump.
//
// The types fall into three groups:
//   - Remote records (PageRecord, CacheEntry) describing pages as the wiki reports them
//   - Export tree nodes (ExportedPage, ExportedAttachment) built fresh on every run
//   - Run bookkeeping (PageOutcome, ExportSummary, SpaceResult) consumed by report writers
package model
