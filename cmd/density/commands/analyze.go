package commands

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/enzo-prism/density/internal/adapter"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/spf13/cobra"
)

const (
	formatJSON = "json"
	formatText = "text"
)

var (
	analyzeTimezone string
	analyzeDays     int
	analyzeLifetime bool
	analyzeFormat   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <channel>",
	Short: "Run one analysis and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(analyzeFormat); err != nil {
			return err
		}

		container, err := bootstrap()
		if err != nil {
			return err
		}
		defer container.Close()
		defer container.Logger.Sync()

		req := domain.AnalyzeRequest{
			ChannelReference: args[0],
			Timezone:         analyzeTimezone,
			Range:            domain.RangeDays,
			Days:             analyzeDays,
			ClientID:         "cli",
		}
		if analyzeLifetime {
			req.Range = domain.RangeLifetime
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		resp, err := container.Coordinator.Analyze(ctx, req)
		if analyzeFormat == formatText {
			formatter := adapter.NewReportFormatter(48)
			if err != nil {
				return stderrors.New(formatter.FormatError(err))
			}
			_, err := fmt.Fprintln(os.Stdout, formatter.FormatReport(resp))
			return err
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTimezone, "tz", "UTC", "IANA timezone used for calendar days")
	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 365, "lookback window in days (30-3650)")
	analyzeCmd.Flags().BoolVar(&analyzeLifetime, "lifetime", false, "analyze since the channel was created")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", formatJSON, "output format: json or text")
}

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatText:
		return nil
	default:
		return fmt.Errorf("unknown --format %q (want %s or %s)", format, formatJSON, formatText)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
