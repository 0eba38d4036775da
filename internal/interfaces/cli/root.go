// Package cli implements the famscope command line.  Commands run the
// pipeline in-process against the configured collection store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/FamilyScope/internal/application/acquisition"
	"github.com/turtacn/FamilyScope/internal/application/analysis"
	appFamily "github.com/turtacn/FamilyScope/internal/application/family"
	"github.com/turtacn/FamilyScope/internal/application/importer"
	"github.com/turtacn/FamilyScope/internal/bootstrap"
	"github.com/turtacn/FamilyScope/internal/config"
	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// FamilyService is the part of the family service the commands use.
type FamilyService interface {
	Add(ctx context.Context, raw string) (*appFamily.AddResult, error)
	Import(ctx context.Context, ids []string, progress func(done, total int)) (*importer.Report, error)
	List(ctx context.Context) (*family.Collection, error)
	Get(ctx context.Context, ref string) (family.Record, error)
	Remove(ctx context.Context, id string) (family.Record, error)
	Retry(ctx context.Context, id string) (family.Record, error)
	Clear(ctx context.Context) error
	Candidates(ctx context.Context, raw string) (*acquisition.Result, error)
}

// Analyzer runs the family-wide analyses.
type Analyzer interface {
	AnalyzeFamily(ctx context.Context) (*analysis.FamilyResult, error)
	CompareClaims(ctx context.Context, refA, refB string) (*analysis.Comparison, error)
}

// Services are the dependencies built once per invocation.
type Services struct {
	Family   FamilyService
	Analysis Analyzer
	Close    func() error
}

// Builder creates Services from the loaded configuration.
type Builder func(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Services, error)

// DefaultBuilder builds the full pipeline through bootstrap.
func DefaultBuilder(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Services, error) {
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Services{Family: app.Family, Analysis: app.Analysis, Close: app.Close}, nil
}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
// Services are built on first use so that commands like version need no
// configured backend.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	builder  Builder
	once     sync.Once
	services *Services
	err      error
	closed   bool
}

// Services builds the pipeline on first call.
func (c *CLIContext) Services(ctx context.Context) (*Services, error) {
	c.once.Do(func() {
		c.services, c.err = c.builder(ctx, c.Config, c.Logger)
	})
	return c.services, c.err
}

// close releases the services once; later calls are no-ops.
func (c *CLIContext) close() error {
	if c.services == nil || c.services.Close == nil || c.closed {
		return nil
	}
	c.closed = true
	return c.services.Close()
}

// NewRootCommand creates the root command with all global flags and
// subcommands.  A nil builder uses DefaultBuilder.
func NewRootCommand(builder Builder) *cobra.Command {
	if builder == nil {
		builder = DefaultBuilder
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "famscope",
		Short: "FamilyScope: patent family acquisition and enrichment",
		Long: "FamilyScope resolves US patents, discovers related family members and enriches\n" +
			"each member with its first independent claim, inventive concept and relationship.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, builder)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				return cliCtx.close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./famscope.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "overall operation timeout, 0 for none")

	cmd.AddCommand(
		newAddCmd(),
		newImportCmd(),
		newListCmd(),
		newShowCmd(),
		newRemoveCmd(),
		newRetryCmd(),
		newClearCmd(),
		newAnalyzeCmd(),
		newCompareCmd(),
		newCandidatesCmd(),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun loads config and logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, builder Builder) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.InvalidParam(fmt.Sprintf("unknown output format %q", opts.OutputFormat))
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Timeout:      opts.Timeout,
		builder:      builder,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads configuration with priority: flags > env > file > defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./famscope.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".famscope", "config.yaml"))
	}
	for _, p := range searchPaths {
		if _, statErr := os.Stat(p); statErr == nil {
			return config.Load(p)
		}
	}

	// No config file; defaults plus FAMSCOPE_* variables.
	return config.LoadFromEnv()
}

// initLogger creates a console logger on stderr so stdout stays clean for
// results.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.InvalidState("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.InvalidState("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// runContext returns the command context bounded by --timeout together with
// the built services.  The returned cancel also closes the services, since
// cobra skips PersistentPostRunE when RunE fails.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc, *Services, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, stop := cmd.Context(), context.CancelFunc(func() {})
	if cliCtx.Timeout > 0 {
		ctx, stop = context.WithTimeout(ctx, cliCtx.Timeout)
	}
	svc, err := cliCtx.Services(ctx)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	cancel := func() {
		stop()
		if cerr := cliCtx.close(); cerr != nil {
			cliCtx.Logger.Warn("closing services", logging.Err(cerr))
		}
	}
	return ctx, cancel, svc, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand(nil)
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}

	switch cliCtx.OutputFormat {
	case "json":
		return printJSON(cmd, data)
	case "table":
		return printTable(cmd, data)
	default:
		return printText(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprint(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// printTable outputs data as a table if it provides one, otherwise falls
// back to text.
func printTable(cmd *cobra.Command, data interface{}) error {
	type tableProvider interface {
		TableHeaders() []string
		TableRows() [][]string
	}

	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	return printText(cmd, data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	for i, h := range headers {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(padRight(h, colWidths[i]))
	}
	sb.WriteString("\n")

	for i, w := range colWidths {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteString("\n")

	for _, row := range rows {
		for i := 0; i < len(headers); i++ {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			sb.WriteString(padRight(val, colWidths[i]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// padRight pads s with spaces to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

//Personal.AI order the ending
