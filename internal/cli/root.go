// Package cli implements the shopctl command line. Every invocation restores
// the persisted session, runs one command against it and exits, so the cart
// and login survive between invocations.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"shop-session/internal/config"
	"shop-session/internal/session"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Env is what a command runs against.
type Env struct {
	Engine      *session.Engine
	Credentials config.Credentials
	Close       func() error
}

// Opener builds the Env for one invocation.
type Opener func(ctx context.Context, opts *RootOptions, stderr io.Writer) (*Env, error)

// NewRootCommand creates the root command for shopctl.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(openFromConfig)
}

// NewRootCommandWith creates the root command with a custom Opener.
func NewRootCommandWith(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "shopctl",
		Short: "shopctl - shop from the terminal",
		Long: "Browse the catalog, manage a persistent cart and check out against the\n" +
			"remote shop service. Session state survives between invocations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (JSON or YAML); defaults to environment variables")

	// Add subcommands
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewProductsCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openFromConfig loads configuration and opens the persisted session.
// Logs go to stderr: warnings by default, everything with --verbose.
func openFromConfig(ctx context.Context, opts *RootOptions, stderr io.Writer) (*Env, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.LoadFile(opts.ConfigFile)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	engine, store, err := session.Open(ctx, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening session", err)
	}
	return &Env{
		Engine:      engine,
		Credentials: cfg.Credentials,
		Close:       store.Close,
	}, nil
}

// runWithEnv opens the session, runs fn and reports its result through the
// formatter. Errors are printed once here and returned as ExitError.
func runWithEnv(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, env *Env, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	open := opts.open
	if open == nil {
		open = openFromConfig
	}
	env, err := open(ctx, opts, out.GetErrWriter())
	if err != nil {
		out.Error("E_CONFIG", err.Error(), nil)
		return asExitError(err, ExitCommandError)
	}
	defer func() {
		if env.Close != nil {
			if cerr := env.Close(); cerr != nil {
				out.VerboseLog("closing storage: %v", cerr)
			}
		}
	}()

	if err := fn(ctx, env, out); err != nil {
		code, message, details := describeError(err)
		out.Error(code, message, details)
		return asExitError(err, exitCodeFor(err))
	}
	return nil
}

// stdin is swapped in tests.
var stdin io.Reader = os.Stdin
