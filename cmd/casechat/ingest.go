package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/casechat-backend/internal/app"
	"github.com/yungbote/casechat-backend/internal/modules/ingestion"
)

var (
	ingestWait    bool
	ingestTimeout time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <caseNumber> <file.pdf>...",
	Short: "Store, extract and chunk local case PDFs",
	Long: `Uploads local PDFs for a case the same way POST /api/cases/upload does,
then asks for an index run. With --wait the command polls the index job
until it finishes or --timeout passes.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWait, "wait", false, "wait for the triggered index job")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 5*time.Minute, "how long --wait polls")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	caseNumber, paths := args[0], args[1:]
	files := make([]ingestion.UploadedFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, ingestion.FileFromBytes(filepath.Base(p), data))
	}
	if err := ingestion.ValidateUpload(caseNumber, files); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := buildApp(ctx, app.Components{Ingestion: true, Indexing: true})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Services.Ingestion.Ingest(ctx, caseNumber, files)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		cmd.Printf("%s: %d chunks (%s)\n", f.Name, f.Chunks, f.SourceKey)
	}
	cmd.Printf("index trigger: %s", res.Index.Result)
	if res.Index.JobID != "" {
		cmd.Printf(" job=%s", res.Index.JobID)
	}
	if res.Index.Err != nil {
		cmd.Printf(" error=%v", res.Index.Err)
	}
	cmd.Println()

	if !ingestWait || res.Index.JobID == "" {
		return nil
	}
	st, err := a.Services.Poller.Poll(ctx, res.Index.JobID, ingestTimeout, a.Cfg.Index.PollInterval)
	if err != nil {
		return err
	}
	printStatus(cmd, st)
	return statusExitError(st)
}
