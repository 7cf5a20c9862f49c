package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/wikidump/internal/config"
	"github.com/nao1215/wikidump/internal/database"
	"github.com/nao1215/wikidump/internal/export"
	"github.com/nao1215/wikidump/internal/htmlpage"
	wlog "github.com/nao1215/wikidump/internal/log"
	"github.com/nao1215/wikidump/internal/model"
	"github.com/nao1215/wikidump/internal/remote"
	"github.com/nao1215/wikidump/internal/report"
	"github.com/spf13/cobra"
)

// errInterrupted is returned after a run was cancelled by a signal.
var errInterrupted = errors.New("interrupted")

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [space-key|page-id...]",
		Short: "Export wiki spaces or pages to static HTML",
		Long: `Export walks the page trees of wiki spaces and writes them as static HTML.

In space mode the arguments are space keys. Without arguments the spaces of
the configuration file are exported, or every space of the wiki when the
file lists none. In page mode the arguments are page ids; the pages are
grouped by their spaces and exported together with their descendants.

Pages whose modification time did not change since the previous run are
skipped. Use --force to render them anyway or --full to start from an empty
export folder without the cache.

Examples:
  # Export the spaces of .wikidump
  wikidump export

  # Export two spaces into ./site
  wikidump export -o site ENG OPS

  # Export single pages and their descendants
  wikidump export --mode page 65537 98305

  # Re-render everything and write a Markdown report
  wikidump export --force --report reports/export.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .wikidump in current or home directory)")
	cmd.Flags().StringP("mode", "m", string(config.ModeSpace),
		"What the arguments name: space or page")
	cmd.Flags().StringP("output", "o", "",
		"Export folder (overrides exportFolder)")
	cmd.Flags().String("base-url", "",
		"Wiki base URL (overrides baseURL)")
	cmd.Flags().String("cache", "",
		"Incremental cache DSN (overrides cacheDSN)")
	cmd.Flags().BoolP("force", "f", false,
		"Render unchanged pages as well")
	cmd.Flags().Bool("full", false,
		"Delete each space folder first and bypass the cache")
	cmd.Flags().BoolP("json", "j", false,
		"Print the summary as JSON (mutually exclusive with --report)")
	cmd.Flags().StringP("report", "r", "",
		"Write a Markdown report to the given file (creates directories if needed)")

	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON, configSecrets(cfg)...)
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runExport(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// getFlag reads a boolean flag from the command or its parent.
func getFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// buildConfig loads the configuration file and applies the command-line flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	mode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return nil, err
	}
	cfg.Mode = config.Mode(mode)

	if err := overrideString(cmd, "output", &cfg.ExportFolder); err != nil {
		return nil, err
	}
	if err := overrideString(cmd, "base-url", &cfg.BaseURL); err != nil {
		return nil, err
	}
	if err := overrideString(cmd, "cache", &cfg.CacheDSN); err != nil {
		return nil, err
	}

	if cfg.Force, err = cmd.Flags().GetBool("force"); err != nil {
		return nil, err
	}
	if cfg.Full, err = cmd.Flags().GetBool("full"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("report"); err != nil {
		return nil, err
	}
	cfg.Verbose = getFlag(cmd, "verbose")
	cfg.LogJSON = getFlag(cmd, "log-json")

	if len(args) > 0 {
		switch cfg.Mode {
		case config.ModePage:
			cfg.Pages = append([]string(nil), args...)
		default:
			cfg.Spaces = make([]config.SpaceSelection, 0, len(args))
			for _, key := range args {
				cfg.Spaces = append(cfg.Spaces, config.SpaceSelection{Key: key})
			}
		}
	}

	return cfg, nil
}

// overrideString replaces *dst with the flag value when the flag was given.
func overrideString(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// setupLogger creates the diagnostic logger. Progress output is separate.
func setupLogger(w io.Writer, verbose, asJSON bool, secrets ...string) *slog.Logger {
	if asJSON {
		return wlog.NewSecureJSONLogger(w, verbose, secrets...)
	}
	return wlog.NewSecureLogger(w, verbose, secrets...)
}

// configSecrets lists the configured values the logger must never print.
func configSecrets(cfg *config.Config) []string {
	secrets := []string{cfg.Password}
	for _, v := range cfg.Headers {
		secrets = append(secrets, v)
	}
	return secrets
}

// runExport wires the components of a run and prints its summary.
func runExport(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	httpClient, err := remote.NewHTTPClient(remote.TransportOptions{
		Username:           cfg.Username,
		Password:           cfg.Password,
		Headers:            cfg.Headers,
		InsecureSkipVerify: !cfg.VerifyPeerCertificate,
		ProxyURL:           cfg.Proxy,
		Timeout:            cfg.Timeout,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		Retries:            cfg.Retries,
	})
	if err != nil {
		return fmt.Errorf("failed to configure HTTP transport: %w", err)
	}

	client, err := remote.NewClient(cfg.BaseURL, remote.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("failed to create wiki client: %w", err)
	}

	renderer, err := htmlpage.LoadRenderer(cfg.TemplateFile, htmlpage.WithForwardMessage(cfg.ForwardMessage))
	if err != nil {
		return fmt.Errorf("failed to load page template: %w", err)
	}

	progress := wlog.NewProgress(stdout, stderr)
	opts := []export.Option{
		export.WithForce(cfg.Force),
		export.WithRenderer(renderer),
		export.WithDownloadSubFolder(cfg.DownloadSubFolder),
		export.WithThumbnailFormats(cfg.ThumbnailFormats),
		export.WithPreviewFormats(cfg.GeneratedPreviewFormats),
		export.WithProgress(progress),
		export.WithLogger(logger),
	}

	if cfg.Full {
		opts = append(opts, export.WithMode(export.Full))
	} else {
		store, err := database.Open(cfg.CacheDSN, cfg.CacheDir())
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close cache", "error", err)
			}
		}()
		opts = append(opts, export.WithMode(export.Incremental), export.WithStore(store))
	}

	exporter, err := export.New(client, cfg.ExportFolder, opts...)
	if err != nil {
		return err
	}

	targets, err := resolveTargets(ctx, exporter, cfg)
	if err != nil {
		if ctx.Err() != nil {
			progress.Error(-1, "Keyboard Interrupt.")
			return errInterrupted
		}
		return err
	}

	summary, runErr := exporter.Run(ctx, targets)
	if summary != nil && (runErr == nil || summary.Interrupted) {
		if err := outputReport(cfg, summary, stdout); err != nil {
			return err
		}
	}
	if runErr != nil {
		if summary != nil && summary.Interrupted {
			progress.Error(-1, "Keyboard Interrupt.")
			return errInterrupted
		}
		return runErr
	}
	return nil
}

// resolveTargets turns the configured selection into export targets.
func resolveTargets(ctx context.Context, e *export.Exporter, cfg *config.Config) ([]export.Target, error) {
	if cfg.Mode == config.ModePage {
		return e.PageTargets(ctx, cfg.Pages)
	}
	configured := make([]export.Target, 0, len(cfg.Spaces))
	for _, s := range cfg.Spaces {
		configured = append(configured, export.Target{Key: s.Key, PageIDs: s.PageIDs})
	}
	return e.SpaceTargets(ctx, configured)
}

// outputReport prints the run summary and writes the optional report file.
func outputReport(cfg *config.Config, summary *model.ExportSummary, stdout io.Writer) error {
	if cfg.JSONReport {
		_, err := report.NewJSONWriter(stdout,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		).Write(summary)
		return err
	}

	if _, err := report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose)).Write(summary); err != nil {
		return err
	}

	if cfg.ReportFile == "" {
		return nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := report.NewMarkdownWriter(f).Write(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
