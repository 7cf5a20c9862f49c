// Package main provides the entry point for the wikidump CLI.
//
// wikidump exports the page trees of Confluence-style wiki spaces to static
// HTML folders. Attachments are downloaded next to the pages and links are
// rewritten to point at the exported copies.
//
// Usage:
//
//	wikidump export
//	wikidump export ENG OPS
//	wikidump export --mode page 65537 65538
//
// See --help for all available options.
package main

func main() {
	Execute()
}
