package export

import "errors"

var (
	// ErrSpaceFolderExists is returned when a space is exported twice in one run.
	ErrSpaceFolderExists = errors.New("space has been exported already")

	// ErrInvalidSpaceKey is returned for keys that cannot name a folder.
	ErrInvalidSpaceKey = errors.New("invalid space key")

	// ErrNoTinyResolver is returned when a tiny link is met and no resolver is configured.
	ErrNoTinyResolver = errors.New("tiny link resolution is not available")
)
