// Command tagview serves and renders file based views.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/natefinch/atomic"

	"github.com/goliatone/go-tagview/internal/config"
	"github.com/goliatone/go-tagview/internal/logging"
	"github.com/goliatone/go-tagview/pkg/engine"
	"github.com/goliatone/go-tagview/pkg/html"
	"github.com/goliatone/go-tagview/pkg/httpview"
	"github.com/goliatone/go-tagview/pkg/render/template/gotemplate"
	"github.com/goliatone/go-tagview/pkg/watch"
)

const version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	Config    string `short:"c" help:"Configuration file (JSON or YAML)" default:"tagview.yaml" type:"path"`
	LogLevel  string `name:"log-level" help:"Override the configured log level"`
	LogFormat string `name:"log-format" help:"Override the configured log format (text or json)"`

	Serve   ServeCmd   `cmd:"" help:"Serve a directory of views over HTTP"`
	Render  RenderCmd  `cmd:"" help:"Render one view to stdout or a file"`
	Init    InitCmd    `cmd:"" help:"Write a default configuration file"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// runtime carries what every command needs after flags are parsed.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
}

func (c *CLI) load() (*runtime, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}
	logger := logging.Init(logging.Options{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
	})
	return &runtime{cfg: cfg, logger: logger}, nil
}

func (rt *runtime) engine(dir string) (*engine.Engine, error) {
	tpl := rt.cfg.Templates
	pongo, err := gotemplate.New(
		gotemplate.WithBaseDir(dir),
		gotemplate.WithExtension(tpl.PongoExtension),
		gotemplate.WithGlobalData(tpl.Globals),
		gotemplate.WithTemplateFunc(templateFuncs()),
	)
	if err != nil {
		return nil, fmt.Errorf("views %s: %w", dir, err)
	}
	loader := engine.NewFSLoader(os.DirFS(dir),
		engine.WithExtensions(tpl.Extensions...),
		engine.WithPongo(pongo),
	)
	return engine.New(
		engine.WithLogger(rt.logger),
		engine.WithStrict(tpl.Strict),
		engine.WithLoader(loader),
	), nil
}

// templateFuncs are callable from pongo2 views.
func templateFuncs() map[string]any {
	return map[string]any{
		"version":     func() string { return version },
		"escape_tags": html.Escape,
	}
}

// ServeCmd serves views from the templates directory.
type ServeCmd struct {
	Addr         string `help:"Listen address (overrides config)"`
	Dir          string `help:"Views directory (overrides config)" type:"path"`
	NoWatch      bool   `name:"no-watch" help:"Disable the file watcher"`
	NoLiveReload bool   `name:"no-live-reload" help:"Do not inject the live reload client"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	rt, err := cli.load()
	if err != nil {
		return err
	}
	addr := firstNonEmpty(c.Addr, rt.cfg.Server.Addr)
	dir := firstNonEmpty(c.Dir, rt.cfg.Templates.Dir)
	liveReload := rt.cfg.Server.LiveReload && !c.NoLiveReload
	watching := rt.cfg.Server.Watch && !c.NoWatch

	eng, err := rt.engine(dir)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()

	viewOpts := []httpview.Option{
		httpview.WithLogger(rt.logger),
		httpview.WithIndex(rt.cfg.Templates.Index),
	}
	var hub *httpview.LiveReload
	if liveReload && watching {
		hub = httpview.NewLiveReload(rt.logger)
		defer hub.Close()
		mux.Handle(httpview.LiveReloadPath, hub)
		viewOpts = append(viewOpts, httpview.WithInjection(httpview.Snippet(httpview.LiveReloadPath)))
	}
	mux.Handle("/", httpview.New(eng, viewOpts...).Dir())

	if watching {
		watchOpts := []watch.Option{watch.WithLogger(rt.logger)}
		if hub != nil {
			watchOpts = append(watchOpts, watch.OnChange(hub.Notify))
		}
		w, err := watch.New(dir, eng, watchOpts...)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpview.RequestID(rt.logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("listening", "addr", addr, "dir", dir, "watch", watching, "live_reload", hub != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		rt.logger.Warn("shutdown", "error", err)
	}
	return nil
}

// RenderCmd renders one view.
type RenderCmd struct {
	Path   string            `arg:"" help:"View path relative to the views directory"`
	Dir    string            `help:"Views directory (overrides config)" type:"path"`
	Set    map[string]string `short:"s" help:"Render option as key=value (repeatable)"`
	Output string            `short:"o" help:"Output file (stdout if empty)" type:"path"`
}

func (c *RenderCmd) Run(cli *CLI) error {
	rt, err := cli.load()
	if err != nil {
		return err
	}
	eng, err := rt.engine(firstNonEmpty(c.Dir, rt.cfg.Templates.Dir))
	if err != nil {
		return err
	}

	opts := make(engine.Options, len(c.Set))
	for key, value := range c.Set {
		opts[key] = value
	}

	rendered, err := eng.Render(context.Background(), c.Path, opts)
	if err != nil {
		return err
	}

	if c.Output == "" {
		_, err := fmt.Fprint(os.Stdout, rendered)
		return err
	}
	if err := atomic.WriteFile(c.Output, bytes.NewReader([]byte(rendered))); err != nil {
		return fmt.Errorf("write %s: %w", c.Output, err)
	}
	rt.logger.Info("view written", "path", c.Path, "output", c.Output, "bytes", len(rendered))
	return nil
}

// InitCmd writes the default configuration. An existing file is only
// replaced with --force or after confirming at a terminal.
type InitCmd struct {
	Force bool `short:"f" help:"Overwrite an existing file"`
}

func (c *InitCmd) Run(cli *CLI) error {
	if _, err := os.Stat(cli.Config); err == nil && !c.Force {
		if !interactive() {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cli.Config)
		}
		ok, err := prompter.Confirm(context.Background(), fmt.Sprintf("%s already exists. Overwrite it?", cli.Config), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("Kept existing %s\n", cli.Config)
			return nil
		}
	}
	if err := config.Save(cli.Config, config.Default()); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", cli.Config)
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("tagview %s\n", version)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tagview"),
		kong.Description("Render HTML views with escaped-by-default interpolation."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
