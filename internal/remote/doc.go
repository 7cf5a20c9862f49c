// Package remote is the typed client for the wiki's REST API.
//
// The client lists spaces, child pages and attachments (following the
// server's "next" pagination links lazily), fetches page details and
// homepages, resolves tiny URLs by walking the redirect chain, and
// downloads binaries. It never retries on its own; retries are an opt-in
// property of the HTTP transport built by NewHTTPClient.
//
// TinyURLCache memoizes tiny-URL lookups for the lifetime of one export run.
package remote
