// Package cmd provides CLI command implementations for sarex.
package cmd

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

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sarex-dev/sarex-go/internal/config"
	"github.com/sarex-dev/sarex-go/internal/conn"
	"github.com/sarex-dev/sarex-go/internal/deps"
	"github.com/sarex-dev/sarex-go/internal/logging"
	"github.com/sarex-dev/sarex-go/internal/render"
	"github.com/sarex-dev/sarex-go/internal/storage"
	"github.com/sarex-dev/sarex-go/internal/watch"
	"github.com/sarex-dev/sarex-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Command errors.
var (
	ErrNotEnoughArguments = errors.New("not enough arguments")
	ErrNoSuchProject      = errors.New("no such project")
	ErrNoSuchFile         = errors.New("no such file")
	ErrNoProject          = errors.New("no project selected, run `sarex set-project` first")
)

// Runtime is bound into every command's Run method.
type Runtime struct {
	Logger *slog.Logger
	Out    io.Writer

	// Quiet drops status lines; requested data such as get-store output is
	// still printed.
	Quiet bool
}

func (rt *Runtime) ctx() context.Context {
	return logging.WithLogger(context.Background(), rt.Logger)
}

func (rt *Runtime) success(format string, args ...any) {
	if rt.Quiet {
		return
	}
	color.New(color.FgGreen).Fprintf(rt.Out, format+"\n", args...)
}

// status prints a non-essential line.
func (rt *Runtime) status(format string, args ...any) {
	if rt.Quiet {
		return
	}
	fmt.Fprintf(rt.Out, format+"\n", args...)
}

// ConnCmd builds an execution view model from connector instances.
type ConnCmd struct {
	CIFile     string `name:"ci-file" short:"i" required:"" help:"File containing connector instances"`
	OutputFile string `name:"output-file" short:"o" required:"" help:"File to write the execution view model to"`
	Format     string `short:"f" default:"json" help:"Output format (json|dot|png); anything else produces json"`
	Watch      bool   `short:"w" help:"Rebuild whenever the connector-instance file changes"`
}

// Run executes the conn command.
func (c *ConnCmd) Run(rt *Runtime) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	converter := conn.NewConverter(conn.WithEngine(render.NewDotEngine(cfg.DotBinary)))

	build := func(ctx context.Context) error {
		result, err := converter.Convert(ctx, c.CIFile, c.OutputFile, c.Format)
		if err != nil {
			return err
		}
		rt.success("✓ Wrote %s (%s)", c.OutputFile, result.Format)
		rt.status("  Connector instances: %d", result.Instances)
		rt.status("  Components:          %d", result.Components)
		rt.status("  Connectors:          %d", result.Connectors)
		return nil
	}

	if !c.Watch {
		if err := build(rt.ctx()); err != nil {
			return fmt.Errorf("building model: %w", err)
		}
		return nil
	}

	return c.watch(rt, build)
}

func (c *ConnCmd) watch(rt *Runtime, build watch.Func) error {
	ctx, cancel := context.WithCancel(rt.ctx())
	defer cancel()

	w, err := watch.New(c.CIFile)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	// The first build may fail while the file is being edited
	if err := build(ctx); err != nil {
		rt.Logger.Error("build failed", "file", c.CIFile, "error", err)
	}

	rt.status("Watching %s for changes (Ctrl+C to stop)", w.Path())

	// Handle Ctrl+C
	go func() {
		select {
		case <-osSignalChannel():
			cancel()
		case <-ctx.Done():
		}
	}()

	err = w.Run(ctx, build)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	rt.status("Watch mode stopped.")
	return nil
}

// DrCmd filters dependency relations from source code to external libraries.
type DrCmd struct {
	File   string `short:"f" required:"" help:"JSON-lines file containing all dependency relations"`
	Source string `short:"s" required:"" help:"Root package or directory of the target software"`
}

// Run executes the dr command.
func (c *DrCmd) Run(rt *Runtime) error {
	if _, err := os.Stat(c.File); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoSuchFile, c.File)
		}
		return fmt.Errorf("accessing %s: %w", c.File, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.ProjectID == "" {
		return ErrNoProject
	}

	rels, err := deps.Read(c.File)
	if err != nil {
		return err
	}
	kept := deps.Filter(rels, c.Source)

	store, err := openStore(rt, cfg.StorePath, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := rt.ctx()
	if err := store.AddRelations(ctx, cfg.ProjectID, kept); err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			return fmt.Errorf("%w: %s", ErrNoSuchProject, cfg.ProjectID)
		}
		return fmt.Errorf("storing relations: %w", err)
	}

	rt.Logger.Debug("filtered dependency relations", "read", len(rels), "kept", len(kept), "source", c.Source)
	rt.success("✓ Stored %d of %d dependency relations", len(kept), len(rels))
	return nil
}

// SetStoreCmd sets the local store directory.
type SetStoreCmd struct {
	Path string `arg:"" help:"Store directory"`
}

// Run executes the set-store command.
func (c *SetStoreCmd) Run(rt *Runtime) error {
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	// Check that the store can be opened
	store, err := openStore(rt, path, false)
	if err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	cfg, err := config.Read()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg.StorePath = path
	if err := config.Write(cfg); err != nil {
		return err
	}

	rt.success("✓ Store set to %s", path)
	return nil
}

// GetStoreCmd prints the store path, the current project and all projects.
type GetStoreCmd struct{}

// Run executes the get-store command.
func (c *GetStoreCmd) Run(rt *Runtime) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.StorePath != "" {
		fmt.Fprintf(rt.Out, "store_path: %s\n", cfg.StorePath)
	} else {
		fmt.Fprintln(rt.Out, "store_path: <NOT SET>")
	}
	fmt.Fprintf(rt.Out, "project_id: %s\n", cfg.ProjectID)

	if cfg.StorePath == "" {
		return nil
	}
	if _, err := os.Stat(cfg.StorePath); os.IsNotExist(err) {
		fmt.Fprintln(rt.Out, "projects: <none>")
		return nil
	}

	store, err := openStore(rt, cfg.StorePath, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projects, err := store.ListProjects(rt.ctx())
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	fmt.Fprintln(rt.Out, "projects:")
	for _, p := range projects {
		checked := "-"
		if p.ID == cfg.ProjectID {
			checked = "V"
		}
		fmt.Fprintf(rt.Out, "    %s %s: %s, %s\n", checked, p.ID, p.Name, p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	return nil
}

// SetProjectCmd selects, renames or creates the current project.
type SetProjectCmd struct {
	ProjectID string `arg:"" optional:"" name:"project-id" help:"Project ID. If omitted, a new project is created"`
	Name      string `short:"n" help:"Project name. Creates a project when no ID is given, otherwise renames it"`
}

// Run executes the set-project command.
func (c *SetProjectCmd) Run(rt *Runtime) error {
	if c.ProjectID == "" && c.Name == "" {
		return ErrNotEnoughArguments
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(rt, cfg.StorePath, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := rt.ctx()
	id := c.ProjectID

	switch {
	case id != "" && c.Name != "":
		if err := store.RenameProject(ctx, id, c.Name); err != nil {
			if errors.Is(err, storage.ErrProjectNotFound) {
				return fmt.Errorf("%w: %s", ErrNoSuchProject, id)
			}
			return fmt.Errorf("renaming project: %w", err)
		}
	case id != "":
		p, err := store.GetProject(ctx, id)
		if err != nil {
			return fmt.Errorf("getting project: %w", err)
		}
		if p == nil {
			return fmt.Errorf("%w: %s", ErrNoSuchProject, id)
		}
	default:
		p, err := store.CreateProject(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		id = p.ID
	}

	// Persist without the environment overrides applied by Load
	saved, err := config.Read()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	saved.ProjectID = id
	if err := config.Write(saved); err != nil {
		return err
	}

	rt.success("✓ Current project: %s", id)
	return nil
}

// ServeCmd starts the MCP server (stdio transport).
type ServeCmd struct{}

// Run executes the serve command.
func (c *ServeCmd) Run(rt *Runtime) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithCancel(rt.ctx())
	defer cancel()

	opts := []mcp.Option{
		mcp.WithProject(cfg.ProjectID),
		mcp.WithConverter(conn.NewConverter(conn.WithEngine(render.NewDotEngine(cfg.DotBinary)))),
	}

	var backend mcp.StorageBackend
	if _, err := os.Stat(cfg.StorePath); err == nil {
		store, err := openStore(rt, cfg.StorePath, true)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		backend = store
	}

	mcp.Version = Version
	server := mcp.NewServer(backend, opts...)

	// Note: No output to stdout - MCP server uses stdio for JSON-RPC only
	rt.Logger.Info("starting MCP server", "store", cfg.StorePath)
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func openStore(rt *Runtime, path string, readOnly bool) (*storage.BadgerBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("no store configured, run `sarex set-store <path>` first")
	}

	store := storage.NewBadgerBackend(storage.WithLogger(rt.Logger))
	if err := store.Initialize(path, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return store, nil
}

// CLI defines the command-line interface structure.
type CLI struct {
	Version   kong.VersionFlag `help:"Show version information"`
	Verbose   bool             `short:"v" help:"Enable verbose output"`
	Quiet     bool             `short:"q" help:"Only print errors and requested data"`
	LogLevel  string           `help:"Log level (debug|info|warn|error)" env:"SAREX_LOG_LEVEL"`
	LogFormat string           `help:"Log format (text|json)" env:"SAREX_LOG_FORMAT"`

	// Commands
	Conn       ConnCmd       `cmd:"" help:"Build an execution view model from connector instances"`
	Dr         DrCmd         `cmd:"" help:"Filter dependency relations from source code to external libraries"`
	SetStore   SetStoreCmd   `cmd:"" help:"Set the local store directory"`
	GetStore   GetStoreCmd   `cmd:"" help:"Show the store, the current project and all projects"`
	SetProject SetProjectCmd `cmd:"" help:"Select, rename or create the current project"`
	Serve      ServeCmd      `cmd:"" help:"Start MCP server (stdio transport)"`

	out    io.Writer `kong:"-"`
	logOut io.Writer `kong:"-"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{out: os.Stdout, logOut: os.Stderr}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("sarex"),
		kong.Description("Build execution view models from connector instances"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return kongCtx.Run(&Runtime{
		Logger: c.logger(),
		Out:    c.out,
		Quiet:  c.Quiet,
	})
}

// logger builds the command logger. Flags win over the persisted config.
func (c *CLI) logger() *slog.Logger {
	level, format := c.LogLevel, c.LogFormat
	if level == "" || format == "" {
		if cfg, err := config.Read(); err == nil {
			if level == "" {
				level = cfg.LogLevel
			}
			if format == "" {
				format = cfg.LogFormat
			}
		}
	}

	switch {
	case c.Verbose:
		level = "debug"
	case c.Quiet:
		level = "error"
	}

	return logging.New(level, format, c.logOut)
}
