package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/wikidump/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/wikidump.yaml
var configTemplate embed.FS

const (
	configFileName = config.DefaultConfigFile
	templatePath   = "templates/wikidump.yaml"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented wikidump configuration file",
		Long: `Init writes a .wikidump file that documents every option, with samples
for the wiki credentials, the spaces to export and the incremental cache.

The export command looks for .wikidump in the current directory first and
in the home directory second, so --home creates a per-user default.

Examples:
  # Create .wikidump in the current directory
  wikidump init

  # Create a per-user default in the home directory
  wikidump init --home

  # Replace an existing file at a custom path
  wikidump init -f -o conf/wiki.yaml`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Path of the file to create")
	cmd.Flags().BoolP("force", "f", false,
		"Replace the file if it exists")
	cmd.Flags().Bool("home", false,
		"Create the file in the home directory (ignores --output)")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	home, err := cmd.Flags().GetBool("home")
	if err != nil {
		return err
	}
	if home {
		dir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
		path = filepath.Join(dir, configFileName)
	}

	if err := writeConfigTemplate(path, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n\n", path)
	fmt.Fprintln(out, "Set baseURL and the credentials, list the spaces or pages to export, then run:")
	fmt.Fprintf(out, "  wikidump export -c %s\n", path)
	return nil
}

// writeConfigTemplate stores the embedded template at path with owner-only
// permissions. Without force an existing file is an error.
func writeConfigTemplate(path string, force bool) error {
	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}
