package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/csvinsight-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/csvinsight-cli/internal/config"
	"github.com/KaramelBytes/csvinsight-cli/internal/logging"
	"github.com/KaramelBytes/csvinsight-cli/internal/report"
	"github.com/KaramelBytes/csvinsight-cli/internal/utils"
)

const usageMessage = "Usage: csvinsight <csv_file_path>"

var (
	// Global flags
	cfgFile string
	debug   bool
	// Pipeline flags (override config if set)
	flagOutputDir string
	flagLabel     string
	flagMaxIter   int
	flagDelimiter string

	// Loaded configuration
	cfg *cfgpkg.Global
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "csvinsight [csv_file_path]",
	Short: "Summarize a CSV file and optionally fit a classifier on its success column",
	Long: `csvinsight loads a CSV file, summarizes every numeric and categorical column,
fits a logistic regression when a "success" column is present, and writes the
result to output/<name>_results.json. The same document is printed on stdout.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) < 1 {
			return report.Encode(out, report.ErrorDocument(usageMessage), report.StdoutIndent)
		}
		c := currentConfig()
		if err := utils.EnsureDir(c.OutputDir); err != nil {
			return err
		}

		opt, err := pipelineOptions(c)
		if err != nil {
			return err
		}
		doc, written, err := analysis.AnalyzeFile(args[0], c.OutputDir, opt)
		if analysis.IsValidationError(err) {
			return report.Encode(out, report.ErrorDocument(err.Error()), report.StdoutIndent)
		}
		if err != nil {
			return fmt.Errorf("analyze %s: %w", args[0], err)
		}
		logger().Debug("result written", "path", written)
		return report.Encode(out, doc, report.StdoutIndent)
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.csvinsight/config.yaml)")
	f.BoolVar(&debug, "debug", false, "enable debug logging on stderr")
	f.StringVar(&flagOutputDir, "output-dir", "", "directory for result files (overrides config)")
	f.StringVar(&flagLabel, "label", "", "label column for the classifier (overrides config)")
	f.IntVar(&flagMaxIter, "max-iter", 0, "max solver iterations (overrides config)")
	f.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter; detected from the extension when empty")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("output-dir") && flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	if f.Changed("label") && flagLabel != "" {
		cfg.LabelColumn = flagLabel
	}
	if f.Changed("max-iter") && flagMaxIter > 0 {
		cfg.MaxIter = flagMaxIter
	}
	if f.Changed("delimiter") {
		cfg.Delimiter = flagDelimiter
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if debug {
		level = slog.LevelDebug
	}
	log = logging.Init(cfg.LogFormat, level)
}

func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Defaults()
	}
	return cfg
}

func logger() *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

func pipelineOptions(c *cfgpkg.Global) (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	opt.Logger = logger()
	if c.LabelColumn != "" {
		opt.Label = c.LabelColumn
	}
	if c.MaxIter > 0 {
		opt.MaxIter = c.MaxIter
	}
	if c.RegularizationC > 0 {
		opt.C = c.RegularizationC
	}
	if c.Tol > 0 {
		opt.Tol = c.Tol
	}
	if c.Delimiter != "" {
		d, err := parseDelimiter(c.Delimiter)
		if err != nil {
			return opt, err
		}
		opt.Delimiter = d
	}
	return opt, nil
}

// parseDelimiter accepts a single character or one of the names "tab",
// "comma", "semicolon" and "pipe".
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, errors.New("delimiter must be a single character")
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}
