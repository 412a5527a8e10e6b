package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yomu-app/yomu/internal/config"
	"github.com/yomu-app/yomu/internal/library"
	"github.com/yomu-app/yomu/internal/store"
	"github.com/yomu-app/yomu/internal/tui"
	"github.com/yomu-app/yomu/internal/uilog"
	"github.com/yomu-app/yomu/internal/yomu"
)

var openCmd = &cobra.Command{
	Use:   "open <folder>",
	Short: "Open a folder or comic archive in the viewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if _, err := os.Stat(folder); err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		return launchTUI(folder)
	},
}

func runTUI(cmd *cobra.Command, args []string) error {
	return launchTUI("")
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if rootDir != "" {
		cfg.Library.Root = rootDir
	}
	if logPath != "" {
		cfg.LogFile = logPath
	}
	return cfg, nil
}

func launchTUI(folder string) error {
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

	statePath, err := config.StatePath()
	if err != nil {
		return err
	}
	kv, err := store.Open(statePath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer kv.Close()

	registry := yomu.NewRegistry()
	if err := registry.LoadFrom(kv); err != nil {
		uilog.Log.Warn("session restore failed", "error", err)
	}
	projector := yomu.NewProjector(registry)
	bridge := yomu.NewBridge(kv, cfg.Viewer.SaveDebounceDuration(), uilog.Log)
	provider := library.NewProvider(cfg.Library.Root)

	// `yomu open <folder>` starts the active session directly in the
	// viewer; q or esc drops it back into the library.
	if folder != "" {
		registry.UpdateActive(func(s *yomu.Session) {
			s.Page = "viewer"
			if s.Params == nil {
				s.Params = make(map[string]string)
			}
			s.Params["folder"] = folder
		})
	}

	var program *tea.Program
	var watchFolder func(string)
	var watcher *library.Watcher
	if cfg.Library.Watch {
		watcher, err = library.NewWatcher(cfg.Library.DebounceDuration(), func(changed string) {
			if program != nil {
				program.Send(tui.FolderChanged(changed))
			}
		})
		if err != nil {
			uilog.Log.Warn("watcher unavailable", "error", err)
		} else {
			watchFolder = watcher.SetFolder
		}
	}

	shell := tui.NewShell(&cfg, registry, projector, bridge, provider, kv, watchFolder)

	// Get initial terminal size - try stdout, stdin, stderr in order
	var opts []tea.ProgramOption
	for _, fd := range []int{int(os.Stdout.Fd()), int(os.Stdin.Fd()), int(os.Stderr.Fd())} {
		if term.IsTerminal(fd) {
			w, h, err := term.GetSize(fd)
			if err == nil && w > 0 && h > 0 {
				opts = append(opts, tea.WithWindowSize(w, h))
				break
			}
		}
	}

	program = tea.NewProgram(shell, opts...)

	if watcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	_, runErr := program.Run()

	// The shell flushes on a clean quit; cover abnormal exits too.
	bridge.FlushAll()
	if err := registry.SaveTo(kv); err != nil {
		uilog.Log.Warn("session save failed", "error", err)
	}
	uilog.Log.Info("viewer exited", "error", runErr)
	return runErr
}
