package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yomu-app/yomu/internal/config"
	"github.com/yomu-app/yomu/internal/fetch"
	"github.com/yomu-app/yomu/internal/uilog"
)

var (
	queueAddr string
	queueDir  string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the companion download queue",
	Long: `The queue downloads chapters into the library so the viewer can open
them. Chapters are described by manifest files listing one image URL per
line; producing manifests is out of scope for yomu.

  yomu queue serve                # run the queue API
  yomu queue add chapter.urls    # enqueue a chapter manifest
  yomu queue list                # show jobs
  yomu queue cancel <job-id>     # cancel a queued or running job`,
}

var queueServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download queue API server",
	RunE:  runQueueServe,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <manifest>",
	Short: "Enqueue a chapter manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueAdd,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queue jobs",
	RunE:  runQueueList,
}

var queueCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueCancel,
}

func init() {
	queueCmd.PersistentFlags().StringVar(&queueAddr, "addr", "", "queue API address (overrides config)")
	queueServeCmd.Flags().StringVar(&queueDir, "dir", "", "download directory (default: library root)")

	queueCmd.AddCommand(queueServeCmd)
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueCancelCmd)
}

func queueBaseURL(cfg config.Config) string {
	addr := cfg.Fetch.Addr
	if queueAddr != "" {
		addr = queueAddr
	}
	return "http://" + addr
}

func runQueueServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.LogFile != "" {
		if err := uilog.Init(cfg.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: log init failed: %v\n", err)
		}
		defer uilog.Log.Close()
	}

	dir := queueDir
	if dir == "" {
		dir = cfg.Library.Root
	}
	addr := cfg.Fetch.Addr
	if queueAddr != "" {
		addr = queueAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := fetch.NewQueue(fetch.NewURLListSource(), dir, cfg.Fetch.Parallel)
	queue.Start(ctx)
	defer queue.Stop()

	srv := fetch.NewServer(queue, addr)
	fmt.Printf("queue API listening on %s, downloading into %s\n", addr, dir)
	return srv.ListenAndServe(ctx)
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(manifest); err != nil {
		return fmt.Errorf("manifest %s: %w", args[0], err)
	}

	body, err := json.Marshal(map[string]string{"chapter": manifest})
	if err != nil {
		return err
	}
	resp, err := queueClient().Post(queueBaseURL(cfg)+"/api/v1/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("queue unreachable (is `yomu queue serve` running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return queueAPIError(resp)
	}
	var job fetch.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return err
	}
	fmt.Printf("queued %s as job %s\n", args[0], job.ID)
	return nil
}

func runQueueList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resp, err := queueClient().Get(queueBaseURL(cfg) + "/api/v1/jobs")
	if err != nil {
		return fmt.Errorf("queue unreachable (is `yomu queue serve` running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return queueAPIError(resp)
	}
	var jobs []fetch.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPAGES\tCHAPTER")
	for _, job := range jobs {
		name := job.Title
		if name == "" {
			name = job.Source
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", job.ID, job.Status, job.Fetched, job.Pages, name)
	}
	return w.Flush()
}

func runQueueCancel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodDelete, queueBaseURL(cfg)+"/api/v1/jobs/"+args[0], nil)
	if err != nil {
		return err
	}
	resp, err := queueClient().Do(req)
	if err != nil {
		return fmt.Errorf("queue unreachable (is `yomu queue serve` running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return queueAPIError(resp)
	}
	fmt.Printf("canceled job %s\n", args[0])
	return nil
}

func queueClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func queueAPIError(resp *http.Response) error {
	var apiErr fetch.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("queue API: %s (%s)", apiErr.Error, apiErr.Message)
	}
	return fmt.Errorf("queue API: unexpected status %d", resp.StatusCode)
}
