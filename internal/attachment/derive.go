package attachment

import (
	"net/url"
	"strings"
)

const (
	downloadMarker     = "/download/"
	tempDownloadMarker = "/download/temp/"

	// PreviewEndpoint is the document-conversion path serving generated previews.
	PreviewEndpoint = "/rest/documentConversion/latest/conversion/thumbnail/"
)

// DeriveFileName returns the canonical local name for a download URL.
//
//	/download/temp/plantuml123.png?contentType=image/png -> temp_plantuml123.png
//	/download/attachments/524291/peak.jpeg?version=1     -> 524291_attachments_peak.jpeg
//	/rest/documentConversion/latest/conversion/thumbnail/524292/1 -> generated_preview_524292.jpg
//
// The second result is false when no pattern matches.
func DeriveFileName(downloadURL string) (string, bool) {
	p := urlPath(downloadURL)

	switch {
	case strings.Contains(p, tempDownloadMarker):
		base := lastPart(p)
		if base == "" {
			return "", false
		}
		return "temp_" + base, true

	case strings.Contains(p, downloadMarker):
		parts := strings.Split(p, "/")
		i := indexOf(parts, "download")
		// download/<type>/<pageId>/.../<name>
		if i < 0 || len(parts) < i+4 {
			return "", false
		}
		downloadType, pageID, base := parts[i+1], parts[i+2], parts[len(parts)-1]
		if downloadType == "" || pageID == "" || base == "" {
			return "", false
		}
		return pageID + "_" + downloadType + "_" + base, true

	case strings.Contains(p, PreviewEndpoint):
		rest := p[strings.Index(p, PreviewEndpoint)+len(PreviewEndpoint):]
		fileID, _, _ := strings.Cut(rest, "/")
		if fileID == "" {
			return "", false
		}
		return "generated_preview_" + fileID + ".jpg", true
	}
	return "", false
}

// PreviewURL returns the generated preview URL for an attachment id.
func PreviewURL(attachmentID string) string {
	return PreviewEndpoint + url.PathEscape(attachmentID) + "/1"
}

// ThumbnailURL returns the thumbnail URL of an attachment download URL, or
// false when the URL is not an attachment download.
func ThumbnailURL(downloadURL string) (string, bool) {
	const from, to = "/attachments/", "/thumbnails/"
	if !strings.Contains(urlPath(downloadURL), downloadMarker+"attachments/") {
		return "", false
	}
	return strings.Replace(downloadURL, from, to, 1), true
}

// urlPath returns the decoded path of a URL, dropping query and fragment.
func urlPath(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return u.Path
	}
	p, _, _ := strings.Cut(raw, "?")
	return p
}

func lastPart(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func indexOf(parts []string, s string) int {
	for i, p := range parts {
		if p == s {
			return i
		}
	}
	return -1
}
