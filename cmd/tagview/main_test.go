package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-tagview/internal/config"
)

func run(t *testing.T, args ...string) error {
	t.Helper()

	var cli CLI
	parser, err := kong.New(&cli, kong.Name("tagview"), kong.Exit(func(int) {}))
	if err != nil {
		t.Fatalf("kong: %v", err)
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return ctx.Run(&cli)
}

func TestRenderCmd_WritesOutput(t *testing.T) {
	dir := t.TempDir()
	views := filepath.Join(dir, "views")
	if err := os.MkdirAll(views, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(views, "hello.tpl"), []byte("Hi {{ name }}"), 0o644); err != nil {
		t.Fatalf("write view: %v", err)
	}
	out := filepath.Join(dir, "out.html")

	err := run(t,
		"--config", filepath.Join(dir, "missing.yaml"),
		"--log-level", "error",
		"render", "hello",
		"--dir", views,
		"-s", "name=<Ada>",
		"-o", out,
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "Hi &lt;Ada&gt;" {
		t.Fatalf("unexpected output %q", data)
	}
}

func TestRenderCmd_MissingView(t *testing.T) {
	dir := t.TempDir()
	err := run(t, "--config", filepath.Join(dir, "missing.yaml"), "--log-level", "error", "render", "nope", "--dir", dir)
	if err == nil {
		t.Fatalf("expected error for missing view")
	}
}

type stubPrompter struct {
	answer   bool
	err      error
	messages []string
}

func (s *stubPrompter) Confirm(_ context.Context, message string, _ bool) (bool, error) {
	s.messages = append(s.messages, message)
	return s.answer, s.err
}

func withPrompt(t *testing.T, tty bool, p Prompter) {
	t.Helper()
	prevPrompter, prevInteractive := prompter, interactive
	prompter = p
	interactive = func() bool { return tty }
	t.Cleanup(func() {
		prompter, interactive = prevPrompter, prevInteractive
	})
}

func TestInitCmd(t *testing.T) {
	withPrompt(t, false, &stubPrompter{answer: true})
	path := filepath.Join(t.TempDir(), "tagview.yaml")

	if err := run(t, "--config", path, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != config.Default().Server.Addr {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if err := run(t, "--config", path, "init"); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if err := run(t, "--config", path, "init", "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestInitCmd_ConfirmsOverwriteAtTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagview.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	declined := &stubPrompter{answer: false}
	withPrompt(t, true, declined)
	if err := run(t, "--config", path, "init"); err != nil {
		t.Fatalf("init declined: %v", err)
	}
	if len(declined.messages) != 1 {
		t.Fatalf("expected one prompt, got %v", declined.messages)
	}
	if cfg, _ := config.Load(path); cfg.Log.Level != "debug" {
		t.Fatalf("declined overwrite replaced the file: %+v", cfg.Log)
	}

	accepted := &stubPrompter{answer: true}
	withPrompt(t, true, accepted)
	if err := run(t, "--config", path, "init"); err != nil {
		t.Fatalf("init accepted: %v", err)
	}
	if cfg, _ := config.Load(path); cfg.Log.Level != config.Default().Log.Level {
		t.Fatalf("accepted overwrite kept the old file: %+v", cfg.Log)
	}

	aborted := &stubPrompter{err: ErrAborted}
	withPrompt(t, true, aborted)
	if err := run(t, "--config", path, "init"); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	forced := &stubPrompter{}
	withPrompt(t, true, forced)
	if err := run(t, "--config", path, "init", "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	if len(forced.messages) != 0 {
		t.Fatalf("--force should not prompt, got %v", forced.messages)
	}
}

func TestRenderCmd_PongoSettingsFromConfig(t *testing.T) {
	dir := t.TempDir()
	views := filepath.Join(dir, "views")
	if err := os.MkdirAll(views, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	page := "{{ site }} {{ version() }} {{ escape_tags(raw)|safe }} {{ name }}"
	if err := os.WriteFile(filepath.Join(views, "page.j2"), []byte(page), 0o644); err != nil {
		t.Fatalf("write view: %v", err)
	}
	cfgPath := filepath.Join(dir, "tagview.yaml")
	cfgData := "templates:\n  pongo_extension: .j2\n  globals:\n    site: Docs\n"
	if err := os.WriteFile(cfgPath, []byte(cfgData), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out := filepath.Join(dir, "page.html")

	err := run(t,
		"--config", cfgPath,
		"--log-level", "error",
		"render", "page",
		"--dir", views,
		"-s", "name=<Ada>",
		"-s", "raw=<b>",
		"-o", out,
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "Docs " + version + " &lt;b&gt; &lt;Ada&gt;"
	if string(data) != want {
		t.Fatalf("want %q, got %q", want, data)
	}
}
