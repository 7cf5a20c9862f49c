package htmlpage

import (
	"html/template"
	"path/filepath"
	"strings"

	"github.com/nao1215/wikidump/internal/model"
	"github.com/nao1215/wikidump/internal/rewrite"
)

// IndexFileName is the name of the space index page.
const IndexFileName = "index.html"

// SpaceIndexTitle returns the title of a space index page.
func SpaceIndexTitle(name, key string) string {
	return "Index of Space " + name + " (" + key + ")"
}

// IndexContent renders the navigation tree rooted at root as nested lists.
// The synthetic root links to the index page itself and is labelled "Index".
func IndexContent(root *model.ExportedPage) string {
	var sb strings.Builder
	writeIndexNode(&sb, root, true)
	return sb.String()
}

func writeIndexNode(sb *strings.Builder, node *model.ExportedPage, isRoot bool) {
	href, label := node.FileName, node.Title()
	if isRoot {
		href, label = IndexFileName, "Index"
	}
	sb.WriteString(`<a href="`)
	sb.WriteString(template.HTMLEscapeString(rewrite.EncodePath(href)))
	sb.WriteString(`">`)
	sb.WriteString(template.HTMLEscapeString(label))
	sb.WriteString(`</a>`)

	if len(node.Children) == 0 {
		return
	}
	sb.WriteString("<ul>\n")
	for _, child := range node.Children {
		sb.WriteString("\t<li>")
		writeIndexNode(sb, child, false)
		sb.WriteString("</li>\n")
	}
	sb.WriteString("</ul>\n")
}

// AttachmentIndex renders the attachment list appended to a page body.
// Links are relative to spaceFolder.
func AttachmentIndex(spaceFolder string, attachments []model.ExportedAttachment) string {
	var sb strings.Builder
	sb.WriteString("\n\n<h2>Attachments</h2>")
	if len(attachments) == 0 {
		return sb.String()
	}

	sb.WriteString("<ul>\n")
	for _, a := range attachments {
		rel, err := filepath.Rel(spaceFolder, a.FilePath)
		if err != nil {
			rel = a.FilePath
		}
		sb.WriteString(`	<li><a href="`)
		sb.WriteString(template.HTMLEscapeString(rewrite.EncodePath(filepath.ToSlash(rel))))
		sb.WriteString(`">`)
		sb.WriteString(template.HTMLEscapeString(a.FileName))
		sb.WriteString("</a></li>\n")
	}
	sb.WriteString("</ul>\n")
	return sb.String()
}
