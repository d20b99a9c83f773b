package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/runtime/compiler"
	"github.com/aledsdavies/quire/runtime/files"
	"github.com/aledsdavies/quire/runtime/script"
)

type options struct {
	configFile       string
	outFile          string
	dumpIDs          string
	compat           string
	maxIDLength      int
	maxTemplateDepth int
	debug            bool
	noColor          bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		FormatError(os.Stderr, err, ShouldUseColor(noColorRequested(rootCmd)))
		os.Exit(1)
	}
}

func noColorRequested(cmd *cobra.Command) bool {
	noColor, _ := cmd.PersistentFlags().GetBool("no-color")
	return noColor
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "quire [command]",
		Short:         "Compile event scripts into documents with resolved ids",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to a JSON config file")
	flags.StringVarP(&opts.outFile, "out", "o", "", "Write output to a file instead of stdout")
	flags.StringVar(&opts.dumpIDs, "dump-ids", "", "Write the CBOR id resolution report to a file")
	flags.StringVar(&opts.compat, "compat", "", "Compatibility version for id generation (e.g. 1.5)")
	flags.IntVar(&opts.maxIDLength, "max-id-length", config.DefaultMaxIDLength, "Maximum length of generated ids")
	flags.IntVar(&opts.maxTemplateDepth, "max-template-depth", config.DefaultMaxTemplateDepth, "Maximum template nesting")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug output")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "build <script>",
		Short: "Compile a script once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &opts)
			if err != nil {
				return err
			}
			logger := config.NewLogger(stderr, opts.debug || cfg.Debug)
			return runBuild(cmd.OutOrStdout(), stderr, cfg, &opts, files.NewLoader(logger), logger, args[0])
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "watch <script>",
		Short: "Compile a script and rebuild whenever a file it uses changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &opts)
			if err != nil {
				return err
			}
			logger := config.NewLogger(stderr, opts.debug || cfg.Debug)
			return runWatch(cmd.Context(), cmd.OutOrStdout(), stderr, cfg, &opts, logger, args[0])
		},
	})

	return rootCmd
}

// resolveConfig layers the config file, then explicitly set flags, over the
// defaults.
func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.Load(opts.configFile); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if opts.compat != "" {
		v, err := config.ParseVersion(opts.compat)
		if err != nil {
			return cfg, &CLIError{
				Message: fmt.Sprintf("invalid --compat value %q", opts.compat),
				Details: err.Error(),
				Hint:    "Use a version such as 1.5 or 1.6",
			}
		}
		cfg.CompatibilityVersion = v
	}
	if flags.Changed("max-id-length") {
		cfg.MaxIDLength = opts.maxIDLength
	}
	if flags.Changed("max-template-depth") {
		cfg.MaxTemplateDepth = opts.maxTemplateDepth
	}
	if err := cfg.Validate(); err != nil {
		return cfg, &CLIError{Message: "invalid configuration", Details: err.Error()}
	}
	return cfg, nil
}

func runBuild(stdout, stderr io.Writer, cfg config.Config, opts *options,
	loader *files.Loader, logger *slog.Logger, path string) error {

	c := compiler.New(compiler.Options{Config: cfg, Loader: loader, Logger: logger})
	res, err := script.Build(c, path)
	if err != nil {
		return err
	}

	useColor := ShouldUseColor(opts.noColor)
	for _, d := range res.Diagnostics {
		FormatWarning(stderr, d, useColor)
	}

	if opts.outFile != "" {
		if err := os.WriteFile(opts.outFile, []byte(res.Output), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.outFile, err)
		}
	} else if _, err := io.WriteString(stdout, res.Output); err != nil {
		return err
	}

	if opts.dumpIDs != "" {
		data, err := res.Report.MarshalBinary()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.dumpIDs, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.dumpIDs, err)
		}
		digest, err := res.Report.Digest()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stderr, "%s %s (%d ids)\n",
			Colorize("ids:", ColorCyan, useColor), digest, len(res.Report.Entries))
	}
	return nil
}

func runWatch(ctx context.Context, stdout, stderr io.Writer, cfg config.Config, opts *options,
	logger *slog.Logger, path string) error {

	loader := files.NewLoader(logger)
	useColor := ShouldUseColor(opts.noColor)
	rebuild := func() {
		if err := runBuild(stdout, stderr, cfg, opts, loader, logger, path); err != nil {
			FormatError(stderr, err, useColor)
			return
		}
		_, _ = fmt.Fprintf(stderr, "%s\n", Colorize("build succeeded", ColorGreen, useColor))
	}

	rebuild()
	if len(loader.Paths()) == 0 {
		return fmt.Errorf("nothing to watch: %s could not be loaded", path)
	}
	return loader.Watch(ctx, func(changed string) {
		logger.Info("rebuilding", "changed", changed)
		rebuild()
	})
}
