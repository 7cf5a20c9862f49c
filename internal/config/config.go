package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "wikidump"

	// DefaultExportFolder is created in the working directory.
	DefaultExportFolder = "export"

	// DefaultDownloadSubFolder holds the attachments of a space.
	DefaultDownloadSubFolder = "attachments"

	// DefaultTimeout bounds every HTTP request.
	DefaultTimeout = 60 * time.Second
)

// Mode selects what a run exports.
type Mode string

const (
	// ModeSpace exports the configured spaces, or every space when none is configured.
	ModeSpace Mode = "space"
	// ModePage exports the configured page ids grouped by their spaces.
	ModePage Mode = "page"
)

// Default allow-lists for opportunistic downloads.
var (
	DefaultThumbnailFormats        = []string{"gif", "jpeg", "jpg", "png"}
	DefaultGeneratedPreviewFormats = []string{"pdf"}
)

// Config holds every option of a run. It is populated from the YAML file
// by Apply and then from command-line flags, and is passed down explicitly.
type Config struct {
	// BaseURL is the root of the wiki including its context path,
	// for example https://wiki.example.com/confluence.
	BaseURL string

	// Username and Password are sent as HTTP basic auth when Username is set.
	Username string
	Password string

	// VerifyPeerCertificate disables TLS verification when false.
	VerifyPeerCertificate bool

	// Proxy is an http, https or socks5 proxy URL.
	Proxy string

	// Headers are added to every request.
	Headers map[string]string

	ExportFolder      string
	DownloadSubFolder string

	// TemplateFile replaces the embedded page template when set.
	TemplateFile string

	// Spaces lists the spaces of space mode in file order. A space without
	// page ids is exported from its homepage.
	Spaces []SpaceSelection

	// Pages lists the page ids of page mode.
	Pages []string

	ThumbnailFormats        []string
	GeneratedPreviewFormats []string

	// ForwardMessage is the body of id-forward stubs. The first %s is the
	// link target, the second the page title; other verbs are kept literally.
	// Empty selects the built-in message.
	ForwardMessage string

	// CacheDSN selects the incremental cache: a path, sqlite://, postgres:// or memory://.
	// Empty means a SQLite file under the XDG data directory.
	CacheDSN string

	// RequestsPerSecond limits the request rate. Zero disables the limiter.
	RequestsPerSecond float64

	// Retries is the number of retries of idempotent requests on 429 and 5xx.
	// Zero, the default, never retries.
	Retries uint64

	Timeout time.Duration

	// Run options, set from flags only.
	Mode           Mode
	Force          bool
	Full           bool
	Verbose        bool
	LogJSON        bool
	JSONReport     bool
	ReportFile     string
	ConfigFilePath string
}

// SpaceSelection is one configured space and its optional root page ids.
type SpaceSelection struct {
	Key     string
	PageIDs []string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		VerifyPeerCertificate:   true,
		ExportFolder:            DefaultExportFolder,
		DownloadSubFolder:       DefaultDownloadSubFolder,
		ThumbnailFormats:        append([]string(nil), DefaultThumbnailFormats...),
		GeneratedPreviewFormats: append([]string(nil), DefaultGeneratedPreviewFormats...),
		Timeout:                 DefaultTimeout,
		Mode:                    ModeSpace,
	}
}

// XDGDataDir returns the XDG data directory for wikidump.
// On Linux: ~/.local/share/wikidump
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// CacheDir returns the directory of the default SQLite cache.
func (c *Config) CacheDir() string {
	return XDGDataDir()
}

// SpaceKeys returns the configured space keys in file order.
func (c *Config) SpaceKeys() []string {
	keys := make([]string, 0, len(c.Spaces))
	for _, s := range c.Spaces {
		keys = append(keys, s.Key)
	}
	return keys
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	switch c.Mode {
	case ModeSpace:
	case ModePage:
		if len(c.Pages) == 0 {
			return ErrNoPages
		}
	default:
		return ErrInvalidMode
	}

	if c.ExportFolder == "" {
		return ErrNoExportFolder
	}
	if !validSubFolder(c.DownloadSubFolder) {
		return ErrInvalidDownloadSubFolder
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRequestsPerSecond
	}
	if c.JSONReport && c.ReportFile != "" {
		return ErrConflictingReportFormats
	}
	return nil
}

func validSubFolder(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
