package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagview.yaml")
	data := "server:\n  addr: \":9000\"\ntemplates:\n  dir: site\n  strict: true\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Templates.Dir != "site" || !cfg.Templates.Strict {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Templates.Index != "index" || len(cfg.Templates.Extensions) == 0 {
		t.Fatalf("expected defaults for unset template fields, got %+v", cfg.Templates)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Server.Addr = "127.0.0.1:7000"
	cfg.Templates.Extensions = []string{".html", ".tpl"}
	cfg.Templates.Globals = map[string]any{"site": "Docs"}

	for _, name := range []string{"tagview.json", "nested/tagview.yaml"} {
		path := filepath.Join(dir, name)
		if err := Save(path, cfg); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if diff := cmp.Diff(cfg, loaded); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	var cfg Config
	if err := Parse([]byte("   "), "empty", &cfg); err == nil {
		t.Fatalf("expected error for empty file")
	}
	if err := Parse([]byte("server: [unterminated"), "bad", &cfg); err == nil {
		t.Fatalf("expected error for malformed file")
	}
}

func TestLoad_PongoExtensionAndGlobals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagview.yaml")
	data := "templates:\n  extensions: [.html]\n  pongo_extension: j2\n  globals:\n    site: Docs\n    nav:\n      home: /\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Templates.PongoExtension != ".j2" {
		t.Fatalf("expected normalized extension, got %q", cfg.Templates.PongoExtension)
	}
	if diff := cmp.Diff([]string{".html", ".j2"}, cfg.Templates.Extensions); diff != "" {
		t.Fatalf("extensions mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{"site": "Docs", "nav": map[string]any{"home": "/"}}
	if diff := cmp.Diff(want, cfg.Templates.Globals); diff != "" {
		t.Fatalf("globals mismatch (-want +got):\n%s", diff)
	}
}
