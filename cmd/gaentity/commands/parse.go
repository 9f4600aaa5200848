package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/config"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/result"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/scrapers/ecorp"

	"github.com/spf13/cobra"
)

var writeResult bool

func init() {
	parseCmd.Flags().BoolVar(&writeResult, "write", false, "Also write the result file, as a browser run would.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <file-or-url>",
	Short: "Extracts a record from a saved business details page or a details page url.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		tel := telemetry.SlogAPI{}

		markup, err := readPage(cmd.Context(), tel, args[0])
		if err != nil {
			return err
		}
		record := ecorp.NewExtractor(tel).Extract(markup)

		cfg, env, err := config.Load(configPath, dotenvPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		meta := result.Meta{
			ControlNumber:    record.ControlNumber(),
			RequestID:        env.RequestID,
			ExtractionMethod: result.MethodParse,
			Platform:         result.Platform(),
			Time:             clock.Now(),
		}

		res := result.Success(meta, record)
		var parseErr error
		if !record.Complete() {
			parseErr = ecorp.ErrIncompleteRecord
			res = result.Failure(meta, parseErr)
		}

		var path string
		if writeResult {
			path, err = res.Write(cfg.OutputDir)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		renderSummary(out, res, path)
		if parseErr != nil {
			return parseErr
		}
		return printRecord(out, res)
	},
}

func readPage(ctx context.Context, tel telemetry.API, source string) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		fetcher, err := ecorp.NewFetcher(tel)
		if err != nil {
			return "", err
		}
		return fetcher.Fetch(ctx, source)
	}
	contents, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}
	return string(contents), nil
}
