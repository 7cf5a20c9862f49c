// Package pipeline runs the rendering steps of a stale page in sequence.
//
// A page that must be (re)exported passes through parse, attachment
// download, inline temp-attachment download, link rewriting, file writing
// and cache update. Each stage is a Step operating on a shared Job; the
// first failing step stops the pipeline and fails the page, while
// non-critical problems are recorded on the Job as warnings.
package pipeline
