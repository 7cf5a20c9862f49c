package filename

import (
	"fmt"
	"path/filepath"
	"strings"
)

// fallbackName is used when a title sanitizes to nothing.
const fallbackName = "untitled"

// Scope is the per-folder allocation state.
type Scope struct {
	// folder is the directory the names are allocated in.
	folder string

	// titleToFilename memoizes every allocation by title.
	titleToFilename map[string]string

	// collisionCounters counts prior duplicates per base name.
	collisionCounters map[string]int

	// used holds every allocated file name.
	used map[string]bool
}

// NewScope creates an empty scope for the given folder.
func NewScope(folder string) *Scope {
	return &Scope{
		folder:            folder,
		titleToFilename:   make(map[string]string),
		collisionCounters: make(map[string]int),
		used:              make(map[string]bool),
	}
}

// Folder returns the directory of this scope.
func (s *Scope) Folder() string {
	return s.folder
}

// Path joins the scope folder with a file name.
func (s *Scope) Path(fileName string) string {
	return filepath.Join(s.folder, fileName)
}

// Allocate returns the unique file name for title.
//
// The explicit extension wins; otherwise the trailing segment after the last
// '.' of the sanitized title is treated as the extension. Folders never get an
// extension. The base name is cut to MaxBaseLength characters. When the base
// name is already taken by a different title, "_<n>" is appended with a
// running counter per base name. Allocating the same title again returns the
// first result.
func (s *Scope) Allocate(title string, isFolder bool, explicitExtension string) string {
	if name, ok := s.titleToFilename[title]; ok {
		return name
	}

	base, ext := splitExtension(Sanitize(title), isFolder, explicitExtension)
	base = truncate(base, MaxBaseLength)
	if base == "" {
		base = fallbackName
	}

	name := base
	n, seen := s.collisionCounters[base]
	if seen {
		n++
		name = fmt.Sprintf("%s_%d", base, n)
	}
	for s.used[withExtension(name, ext)] {
		n++
		name = fmt.Sprintf("%s_%d", base, n)
	}
	s.collisionCounters[base] = n

	fileName := withExtension(name, ext)
	s.used[fileName] = true
	s.titleToFilename[title] = fileName
	return fileName
}

// Reserve marks fileName as taken without binding it to a title, so that
// generated files such as the space index never collide with a page.
func (s *Scope) Reserve(fileName string) {
	s.used[fileName] = true
}

// Lookup returns the name already allocated for title, if any.
func (s *Scope) Lookup(title string) (string, bool) {
	name, ok := s.titleToFilename[title]
	return name, ok
}

// Len returns the number of allocated names.
func (s *Scope) Len() int {
	return len(s.titleToFilename)
}

// splitExtension resolves the extension of a sanitized name.
func splitExtension(name string, isFolder bool, explicitExtension string) (string, string) {
	if isFolder {
		return name, ""
	}
	if explicitExtension != "" {
		return name, strings.TrimPrefix(explicitExtension, ".")
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

func withExtension(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}
