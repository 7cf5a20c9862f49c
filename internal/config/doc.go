// Package config provides the configuration of a wikidump run: the wiki
// connection, the export layout, the selection of spaces and pages, and the
// incremental cache location. Values come from a YAML file (.wikidump) and
// are overridden by command-line flags.
package config
