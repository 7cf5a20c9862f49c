package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoBaseURL is returned when the wiki base URL is missing.
	ErrNoBaseURL = errors.New("no base URL specified: set baseURL in the configuration file")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidMode is returned for an export mode other than space or page.
	ErrInvalidMode = errors.New("invalid export mode: must be \"space\" or \"page\"")

	// ErrNoPages is returned when page mode is selected without page ids.
	ErrNoPages = errors.New("no pages specified: page mode requires at least one page id")

	// ErrNoExportFolder is returned when the export folder is empty.
	ErrNoExportFolder = errors.New("no export folder specified")

	// ErrInvalidDownloadSubFolder is returned when the attachment folder is
	// empty or escapes the space folder.
	ErrInvalidDownloadSubFolder = errors.New("invalid download sub folder: must be a single relative folder name")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRequestsPerSecond is returned when the rate limit is negative.
	ErrInvalidRequestsPerSecond = errors.New("invalid requests per second: must be non-negative")

	// ErrConflictingReportFormats is returned when a JSON summary and a
	// Markdown report file are requested together.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --report cannot be used together")
)
