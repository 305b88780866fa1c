// Package cli implements the objgraph command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/internal/config"
	"github.com/matzehuels/objgraph/pkg/buildinfo"
	"github.com/matzehuels/objgraph/pkg/docstore"
	"github.com/matzehuels/objgraph/pkg/store"
)

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	logw    io.Writer
	closers []io.Closer
}

// New creates a new CLI instance with a default logger and default
// configuration. The configuration file is read when a command runs.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		logw:   w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Close releases resources opened while running a command, such as the
// rotating log file.
func (c *CLI) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:           appName,
		Short:         "objgraph converts, inspects and stores object-graph trees",
		Long:          `objgraph works with the primitive trees produced by the objgraph marshaller: it converts them between JSON, YAML, TOML and CBOR, summarizes and draws their record graphs, and keeps named snapshots in a file, Redis or SQLite store or as MongoDB node documents.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.configure(configPath, verbose); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.Close()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/objgraph/config.toml)")

	root.AddCommand(c.convertCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.docsCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// configure loads the configuration and applies its logging settings.
func (c *CLI) configure(path string, verbose bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.Config = cfg

	level := cfg.LogLevel()
	if verbose {
		level = log.DebugLevel
	}
	if cfg.Log.File != "" {
		lf := newLogFile(cfg.Log)
		c.closers = append(c.closers, lf)
		c.Logger = newLogger(io.MultiWriter(c.logw, lf), level)
	} else {
		c.SetLogLevel(level)
	}

	if cfg.File != "" {
		c.Logger.Debug("loaded config", "file", cfg.File)
	}
	return nil
}

// =============================================================================
// Backends
// =============================================================================

// openStore opens the snapshot store named by the configuration.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	sc := c.Config.Store
	switch sc.Backend {
	case config.BackendFile:
		return store.NewFileStore(sc.Dir)
	case config.BackendRedis:
		return store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
			Prefix:   sc.Prefix,
		})
	case config.BackendSQLite:
		return store.NewSQLiteStore(ctx, sc.SQLitePath)
	case config.BackendNull:
		return store.NewNullStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
}

// storeLocation describes where the configured backend keeps its data.
func (c *CLI) storeLocation() string {
	sc := c.Config.Store
	switch sc.Backend {
	case config.BackendFile:
		return sc.Dir
	case config.BackendRedis:
		return fmt.Sprintf("redis://%s/%d (prefix %q)", sc.RedisAddr, sc.RedisDB, sc.Prefix)
	case config.BackendSQLite:
		return sc.SQLitePath
	}
	return "(" + sc.Backend + ")"
}

// openDocs connects to the configured MongoDB document store.
func (c *CLI) openDocs(ctx context.Context) (*docstore.MongoStore, error) {
	mc := c.Config.Mongo
	if mc.URI == "" {
		return nil, fmt.Errorf("mongo.uri is not configured (set it in the config file or OBJGRAPH_MONGO_URI)")
	}
	return docstore.Connect(ctx, mc.URI, mc.Database)
}
