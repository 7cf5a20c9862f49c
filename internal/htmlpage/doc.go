// Package htmlpage writes the HTML files of an export: rendered pages,
// id-forward stubs and the space index.
//
// Pages are rendered through an html/template with the fields Title,
// Content and Headers. Content and Headers are inserted verbatim.
package htmlpage
