package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/wikidump/internal/config"
	"github.com/nao1215/wikidump/internal/model"
)

// newDocsWiki serves a space DOC with a homepage and one child page.
func newDocsWiki(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]map[string]any{
		"10": {
			"id": "10", "title": "Welcome",
			"space":   map[string]any{"key": "DOC"},
			"version": map[string]any{"when": "2026-03-01T08:00:00.000Z"},
			"body":    map[string]any{"view": map[string]any{"value": `<p><a href="/display/DOC/Setup+Guide">setup</a></p>`}},
			"_links":  map[string]any{},
		},
		"11": {
			"id": "11", "title": "Setup Guide",
			"space":   map[string]any{"key": "DOC"},
			"version": map[string]any{"when": "2026-03-01T09:00:00.000Z"},
			"body":    map[string]any{"view": map[string]any{"value": "<p>steps</p>"}},
			"_links":  map[string]any{},
		},
	}
	children := map[string][]map[string]any{
		"10": {{"id": "11", "title": "Setup Guide"}},
	}

	writeJSON := func(rw http.ResponseWriter, v any) {
		rw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(rw).Encode(v); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
	list := func(results any) map[string]any {
		return map[string]any{"results": results, "_links": map[string]any{}}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/space", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, list([]map[string]any{{"key": "DOC", "name": "Documentation"}}))
	})
	mux.HandleFunc("GET /rest/api/space/{key}", func(rw http.ResponseWriter, r *http.Request) {
		if r.PathValue("key") != "DOC" {
			http.NotFound(rw, r)
			return
		}
		writeJSON(rw, map[string]any{"key": "DOC", "name": "Documentation", "homepage": map[string]any{"id": "10"}})
	})
	mux.HandleFunc("GET /rest/api/content/{id}", func(rw http.ResponseWriter, r *http.Request) {
		p, ok := pages[r.PathValue("id")]
		if !ok {
			http.NotFound(rw, r)
			return
		}
		writeJSON(rw, p)
	})
	mux.HandleFunc("GET /rest/api/content/{id}/child/page", func(rw http.ResponseWriter, r *http.Request) {
		results := children[r.PathValue("id")]
		if results == nil {
			results = []map[string]any{}
		}
		writeJSON(rw, list(results))
	})
	mux.HandleFunc("GET /rest/api/content/{id}/child/attachment", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, list([]map[string]any{}))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wikidump.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestNewExportCmd(t *testing.T) {
	t.Parallel()

	cmd := NewExportCmd()
	if !strings.HasPrefix(cmd.Use, "export") {
		t.Errorf("unexpected use %q", cmd.Use)
	}

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "config", shorthand: "c", defValue: ""},
		{name: "mode", shorthand: "m", defValue: "space"},
		{name: "output", shorthand: "o", defValue: ""},
		{name: "force", shorthand: "f", defValue: "false"},
		{name: "full", shorthand: "", defValue: "false"},
		{name: "json", shorthand: "j", defValue: "false"},
		{name: "report", shorthand: "r", defValue: ""},
		{name: "cache", shorthand: "", defValue: ""},
		{name: "base-url", shorthand: "", defValue: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestGetFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		if getFlag(NewExportCmd(), "verbose") {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent flag", func(t *testing.T) {
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		exportCmd, _, err := root.Find([]string{"export"})
		if err != nil {
			t.Fatalf("failed to find export command: %v", err)
		}
		if !getFlag(exportCmd, "verbose") {
			t.Error("expected true from parent verbose flag")
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t, `
baseURL: https://wiki.example.com
exportFolder: from-file
spaces:
  ENG: [1, 2]
  OPS:
pages: [7]
`)

	t.Run("loads the configuration file", func(t *testing.T) {
		t.Parallel()
		cmd := NewExportCmd()
		_ = cmd.Flags().Set("config", configPath)

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.BaseURL != "https://wiki.example.com" || cfg.ExportFolder != "from-file" {
			t.Errorf("file values not applied: %+v", cfg)
		}
		if cfg.Mode != config.ModeSpace {
			t.Errorf("expected space mode, got %q", cfg.Mode)
		}
		if len(cfg.Spaces) != 2 || cfg.Spaces[0].Key != "ENG" || len(cfg.Spaces[0].PageIDs) != 2 {
			t.Errorf("unexpected spaces %+v", cfg.Spaces)
		}
	})

	t.Run("flags override the file", func(t *testing.T) {
		t.Parallel()
		cmd := NewExportCmd()
		_ = cmd.Flags().Set("config", configPath)
		_ = cmd.Flags().Set("output", "from-flag")
		_ = cmd.Flags().Set("base-url", "https://other.example.com/wiki")
		_ = cmd.Flags().Set("cache", "memory://")
		_ = cmd.Flags().Set("force", "true")
		_ = cmd.Flags().Set("full", "true")
		_ = cmd.Flags().Set("report", "out/report.md")

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ExportFolder != "from-flag" {
			t.Errorf("expected export folder from flag, got %q", cfg.ExportFolder)
		}
		if cfg.BaseURL != "https://other.example.com/wiki" {
			t.Errorf("unexpected base URL %q", cfg.BaseURL)
		}
		if cfg.CacheDSN != "memory://" || !cfg.Force || !cfg.Full || cfg.ReportFile != "out/report.md" {
			t.Errorf("flags not applied: %+v", cfg)
		}
	})

	t.Run("space keys as arguments replace the file selection", func(t *testing.T) {
		t.Parallel()
		cmd := NewExportCmd()
		_ = cmd.Flags().Set("config", configPath)

		cfg, err := buildConfig(cmd, []string{"HR"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := cfg.SpaceKeys(); len(got) != 1 || got[0] != "HR" {
			t.Errorf("unexpected spaces %v", got)
		}
	})

	t.Run("page ids as arguments in page mode", func(t *testing.T) {
		t.Parallel()
		cmd := NewExportCmd()
		_ = cmd.Flags().Set("config", configPath)
		_ = cmd.Flags().Set("mode", "page")

		cfg, err := buildConfig(cmd, []string{"65537", "98305"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Mode != config.ModePage {
			t.Errorf("expected page mode, got %q", cfg.Mode)
		}
		if len(cfg.Pages) != 2 || cfg.Pages[0] != "65537" {
			t.Errorf("unexpected pages %v", cfg.Pages)
		}
		if len(cfg.Spaces) != 2 {
			t.Errorf("page arguments must not touch spaces, got %+v", cfg.Spaces)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewExportCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := buildConfig(cmd, nil)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid config file", func(t *testing.T) {
		t.Parallel()
		cmd := NewExportCmd()
		_ = cmd.Flags().Set("config", writeConfig(t, `{invalid yaml`))

		if _, err := buildConfig(cmd, nil); err == nil {
			t.Fatal("expected error for invalid config file")
		}
	})
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	setupLogger(&buf, false, true).Warn("cache unavailable", "password", "hunter2")
	out := buf.String()
	if !strings.HasPrefix(out, "{") {
		t.Errorf("expected JSON log line, got %q", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked into log: %q", out)
	}

	buf.Reset()
	setupLogger(&buf, false, false).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info must be filtered without verbose, got %q", buf.String())
	}

	cfg := &config.Config{Password: "pw-123", Headers: map[string]string{"X-Team": "team-secret"}}
	buf.Reset()
	setupLogger(&buf, false, false, configSecrets(cfg)...).
		Error("request failed", "detail", "sent pw-123 and team-secret")
	if out := buf.String(); strings.Contains(out, "pw-123") || strings.Contains(out, "team-secret") {
		t.Errorf("configured secrets leaked into log: %q", out)
	}
}

// executeExport runs the root command with the export subcommand.
func executeExport(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"export"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestExportCmd(t *testing.T) {
	t.Parallel()

	srv := newDocsWiki(t)

	t.Run("exports a space and prints the summary", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		configPath := writeConfig(t, "baseURL: "+srv.URL+"\nspaces: [DOC]\n")
		reportPath := filepath.Join(dir, "reports", "export.md")

		stdout, _, err := executeExport(t,
			"-c", configPath,
			"-o", filepath.Join(dir, "site"),
			"--cache", filepath.Join(dir, "cache"),
			"--report", reportPath,
		)
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}

		for _, want := range []string{
			"Exporting 1 space(s): DOC",
			"SPACE (1/1): Documentation (DOC)",
			"PAGE: Welcome (10)",
			"PAGE: Setup Guide (11)",
			"Finished!",
			"EXPORT SUMMARY",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}

		space := filepath.Join(dir, "site", "DOC")
		for _, name := range []string{"index.html", "welcome.html", "setup guide.html", "10.html", "11.html"} {
			if _, err := os.Stat(filepath.Join(space, name)); err != nil {
				t.Errorf("expected %s: %v", name, err)
			}
		}
		welcome, err := os.ReadFile(filepath.Join(space, "welcome.html"))
		if err != nil {
			t.Fatalf("failed to read page: %v", err)
		}
		if !strings.Contains(string(welcome), `href="setup%20guide.html"`) {
			t.Errorf("link not rewritten:\n%s", welcome)
		}

		md, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("expected markdown report: %v", err)
		}
		if !strings.Contains(string(md), "Wiki Export Report") {
			t.Errorf("unexpected report:\n%s", md)
		}

		// A second run reuses the cache and skips both pages.
		stdout, _, err = executeExport(t,
			"-c", configPath,
			"-o", filepath.Join(dir, "site"),
			"--cache", filepath.Join(dir, "cache"),
		)
		if err != nil {
			t.Fatalf("second export failed: %v", err)
		}
		if !strings.Contains(stdout, "PAGE: Welcome (10) SKIP") {
			t.Errorf("expected unchanged page to be skipped:\n%s", stdout)
		}
	})

	t.Run("prints a JSON summary", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		configPath := writeConfig(t, "baseURL: "+srv.URL+"\n")

		stdout, _, err := executeExport(t,
			"-c", configPath,
			"-o", filepath.Join(dir, "site"),
			"--full",
			"--json",
			"DOC",
		)
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}

		start := strings.Index(stdout, "{")
		if start < 0 {
			t.Fatalf("no JSON in output:\n%s", stdout)
		}
		var got struct {
			Status  string              `json:"status"`
			Summary model.ExportSummary `json:"summary"`
		}
		if err := json.Unmarshal([]byte(stdout[start:]), &got); err != nil {
			t.Fatalf("invalid JSON summary: %v\n%s", err, stdout[start:])
		}
		if got.Summary.Mode != "full" {
			t.Errorf("expected full mode, got %q", got.Summary.Mode)
		}
		if len(got.Summary.Spaces) != 1 || got.Summary.Spaces[0].PagesRendered != 2 {
			t.Errorf("unexpected summary %+v", got.Summary)
		}
	})

	t.Run("page mode exports the page subtree", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		configPath := writeConfig(t, "baseURL: "+srv.URL+"\n")

		stdout, _, err := executeExport(t,
			"-c", configPath,
			"-o", dir,
			"--cache", "memory://",
			"--mode", "page",
			"11",
		)
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if strings.Contains(stdout, "PAGE: Welcome") {
			t.Errorf("homepage must not be exported in page mode:\n%s", stdout)
		}
		if _, err := os.Stat(filepath.Join(dir, "DOC", "setup guide.html")); err != nil {
			t.Errorf("expected page file: %v", err)
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name    string
			config  string
			args    []string
			wantErr error
		}{
			{name: "no base URL", config: "exportFolder: x\n", wantErr: config.ErrNoBaseURL},
			{name: "bad mode", config: "baseURL: " + srv.URL + "\n", args: []string{"--mode", "tree"}, wantErr: config.ErrInvalidMode},
			{name: "page mode without pages", config: "baseURL: " + srv.URL + "\n", args: []string{"--mode", "page"}, wantErr: config.ErrNoPages},
			{name: "json and report", config: "baseURL: " + srv.URL + "\n", args: []string{"--json", "--report", "r.md"}, wantErr: config.ErrConflictingReportFormats},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				args := append([]string{"-c", writeConfig(t, tt.config)}, tt.args...)
				_, _, err := executeExport(t, args...)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})
}
