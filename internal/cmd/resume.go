package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yomu-app/yomu/internal/config"
	"github.com/yomu-app/yomu/internal/store"
	"github.com/yomu-app/yomu/internal/yomu"
)

const resumePrefix = "resume:"

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Inspect saved reading positions",
	RunE:  runResumeList,
}

var resumeClearCmd = &cobra.Command{
	Use:   "clear <folder>",
	Short: "Forget the saved position for a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runResumeClear,
}

func init() {
	resumeCmd.AddCommand(resumeClearCmd)
}

func openStateStore() (*store.DB, error) {
	statePath, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	return store.Open(statePath)
}

func runResumeList(cmd *cobra.Command, args []string) error {
	kv, err := openStateStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	keys, err := kv.Keys(resumePrefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("no saved positions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAGE\tZOOM\tFOLDER")
	for _, key := range keys {
		raw, ok, err := kv.Load(key)
		if err != nil || !ok {
			continue
		}
		var state yomu.ResumeState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			continue
		}
		folder := strings.TrimPrefix(key, resumePrefix)
		fmt.Fprintf(w, "%d\t%.0f%%\t%s\n", state.Index+1, state.Zoom*100, folder)
	}
	return w.Flush()
}

func runResumeClear(cmd *cobra.Command, args []string) error {
	kv, err := openStateStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := kv.Delete(resumePrefix + args[0]); err != nil {
		return err
	}
	fmt.Printf("cleared position for %s\n", args[0])
	return nil
}
