// Package filename maps human titles to sanitized, collision-free file names.
//
// A Scope is the namespace of one output folder (the page folder or the
// attachment folder of a space). Within a scope every allocated name is unique
// and a title always maps to the name it was first assigned.
//
// Scopes are not safe for concurrent use. An exporter that introduces
// parallelism must give each scope a single owner.
package filename
