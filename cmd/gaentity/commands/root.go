package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/browser"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/chrono"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/config"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/diagnostics"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/result"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/scrapers/ecorp"

	"github.com/spf13/cobra"
)

const serviceName = "gaentity"

var (
	configPath    string
	dotenvPath    string
	verbose       bool
	maxAttempts   int
	outputDir     string
	noDiagnostics bool
	headful       bool
)

// swapped out by tests, runs always use chrome and the wall clock
var (
	newLauncher = func(opts browser.ChromedpOptions, tel telemetry.API) browser.Launcher {
		return browser.NewChromedpLauncher(opts, tel)
	}
	clock chrono.API = chrono.StandardImpl{}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "gaentity.json5", "The json5 config file, a missing file means defaults.")
	rootCmd.PersistentFlags().StringVar(&dotenvPath, "dotenv", ".env", "A dotenv file read for variables the environment does not set.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")

	rootCmd.Flags().IntVar(&maxAttempts, "attempts", 0, "Overrides the maximum number of browser sessions to try.")
	rootCmd.Flags().StringVar(&outputDir, "out", "", "Overrides the directory the result file is written to.")
	rootCmd.Flags().BoolVar(&noDiagnostics, "no-diagnostics", false, "Skip writing screenshots and html dumps.")
	rootCmd.Flags().BoolVar(&headful, "headful", false, "Show the browser window.")
}

var rootCmd = &cobra.Command{
	Use:   "gaentity <control-number>",
	Short: "gaentity looks up a Georgia business entity by control number and writes its details as JSON.",
	Args:  cobra.ExactArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ecorp.NewSearchKey(args[0])
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		cfg, env, err := loadConfig(cmd)
		if err != nil {
			return failBeforeRun(cmd, key, err)
		}
		return scrape(cmd.Context(), cmd.OutOrStdout(), cfg, env, key)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, config.Env, error) {
	cfg, env, err := config.Load(configPath, dotenvPath)
	if err != nil {
		return cfg, env, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("attempts") {
		cfg.MaxAttempts = maxAttempts
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = outputDir
	}
	if noDiagnostics {
		cfg.Diagnostics.Disabled = true
	}
	if headful {
		cfg.Browser.Headful = true
	}
	err = cfg.Validate()
	if err != nil {
		return cfg, env, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, env, nil
}

// failBeforeRun writes the failure artifact of a run that could not start, the
// request id and output directory come from the environment and flags alone.
func failBeforeRun(cmd *cobra.Command, key ecorp.SearchKey, cause error) error {
	tel := telemetry.SlogAPI{}
	env, dir := config.Fallback(dotenvPath)
	if cmd.Flags().Changed("out") {
		dir = outputDir
	}

	res := result.Failure(newMeta(key, env), cause)
	path, err := res.Write(dir)
	if err != nil {
		tel.ReportBroken("result.write", err)
	}
	renderSummary(cmd.OutOrStdout(), res, path)
	return errors.Join(cause, err)
}

// newMeta describes the run as of now, it is called once the outcome is known.
func newMeta(key ecorp.SearchKey, env config.Env) result.Meta {
	return result.Meta{
		ControlNumber:    key.String(),
		RequestID:        env.RequestID,
		ExtractionMethod: result.MethodBrowser,
		Platform:         result.Platform(),
		Time:             clock.Now(),
	}
}

// setupOtel installs the exporters from the config and returns a function that
// flushes them.
func setupOtel(ctx context.Context, cfg config.Config, tel telemetry.API) func() {
	otelTel, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		tel.ReportWarning("otel.setup", err)
	}
	if otelTel.MeterProvider != nil {
		telemetry.InstrumentPerfStats(ctx, 5*time.Second, tel)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := otelTel.Shutdown(ctx)
		if err != nil {
			tel.ReportWarning("otel.shutdown", err)
		}
	}
}

func scrape(ctx context.Context, out io.Writer, cfg config.Config, env config.Env, key ecorp.SearchKey) error {
	tel := telemetry.SlogAPI{}
	shutdown := setupOtel(ctx, cfg, tel)
	defer shutdown()

	tel.ReportInfo("starting run", key.String(), env.RequestID)

	var checkpoints diagnostics.Output = diagnostics.Nop{}
	if cfg.DiagnosticsEnabled(env) {
		checkpoints = diagnostics.NewFilesystemOutput(cfg.Diagnostics.Directory, tel)
	}

	driver := ecorp.NewDriver(
		newLauncher(cfg.ChromedpOptions(), tel),
		ecorp.NewExtractor(tel),
		checkpoints,
		clock,
		tel,
		cfg.DriverOptions(),
	)
	record, runErr := driver.Run(ctx, key)

	meta := newMeta(key, env)
	var res result.RunResult
	if runErr != nil {
		res = result.Failure(meta, runErr)
	} else {
		res = result.Success(meta, record)
	}

	path, writeErr := res.Write(cfg.OutputDir)
	if writeErr != nil {
		tel.ReportBroken("result.write", writeErr)
	} else {
		tel.ReportInfo("result saved", path)
	}

	renderSummary(out, res, path)
	if runErr == nil {
		err := printRecord(out, res)
		if err != nil {
			tel.ReportWarning("result.print", err)
		}
	}

	return errors.Join(runErr, writeErr)
}
