package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/casechat-backend/internal/app"
	"github.com/yungbote/casechat-backend/internal/modules/indexing"
)

var (
	pollJobID    string
	pollTimeout  time.Duration
	pollInterval time.Duration
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Wait for an index job to finish",
	Long: `Polls an index job (the latest one unless --job is given) until it
succeeds, fails, is reset, or --timeout passes. Exits non-zero unless the
job succeeded or was reset.`,
	Args: cobra.NoArgs,
	RunE: runPoll,
}

func init() {
	pollCmd.Flags().StringVar(&pollJobID, "job", "", "index job id (default: latest job)")
	pollCmd.Flags().DurationVar(&pollTimeout, "timeout", 300*time.Second, "give up after this long")
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 0, "time between status reads (default: INDEX_POLL_INTERVAL_SECONDS)")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := buildApp(ctx, app.Components{Indexing: true})
	if err != nil {
		return err
	}
	defer a.Close()

	interval := pollInterval
	if interval <= 0 {
		interval = a.Cfg.Index.PollInterval
	}
	st, err := a.Services.Poller.Poll(ctx, pollJobID, pollTimeout, interval)
	if err != nil {
		return err
	}
	printStatus(cmd, st)
	return statusExitError(st)
}

func printStatus(cmd *cobra.Command, st indexing.Status) {
	cmd.Printf("job=%s status=%s elapsed=%s", st.JobID, st.State, st.Elapsed.Round(time.Millisecond))
	if st.ItemsProcessed != nil {
		cmd.Printf(" processed=%d", *st.ItemsProcessed)
	}
	if st.ItemsFailed != nil {
		cmd.Printf(" failed=%d", *st.ItemsFailed)
	}
	if st.ErrorMessage != "" {
		cmd.Printf(" error=%q", st.ErrorMessage)
	}
	cmd.Println()
}

func statusExitError(st indexing.Status) error {
	switch st.State {
	case indexing.StateSucceeded, indexing.StateReset:
		return nil
	default:
		return fmt.Errorf("index job %s ended %s", st.JobID, st.State)
	}
}
