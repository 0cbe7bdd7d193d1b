package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"enginectl/internal/build"
	"enginectl/internal/config"
	"enginectl/internal/debug"
	"enginectl/internal/detect"
	"enginectl/internal/events"
	"enginectl/internal/history"
	"enginectl/internal/tui"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "enginectl",
		Short: "Control panel for the engine build toolchain",
		Long: "enginectl wraps the engine's build scripts and editor launcher:\n" +
			"compile, clean, regenerate project files, and start debug/run sessions.",
		RunE: runTUI,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newRegenerateCommand())
	rootCmd.AddCommand(newDebugCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newLaunchCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newHistoryCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type appContext struct {
	paths *config.Paths
	cfg   *config.Manager
	hist  *history.Storage
	log   *slog.Logger
}

func setup() (*appContext, error) {
	godotenv.Load() // optional .env overrides; absence is fine

	paths, err := config.NewPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to locate data directory: %w", err)
	}
	if err := paths.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg, err := config.NewManager(paths.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	hist, err := history.New(paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &appContext{paths: paths, cfg: cfg, hist: hist, log: log}, nil
}

func (c *appContext) Close() {
	c.hist.Close()
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, err := setup()
	if err != nil {
		return err
	}
	defer ctx.Close()

	// The panel owns the terminal, so logs go to a file instead.
	if logFile, err := os.OpenFile(ctx.paths.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		defer logFile.Close()
		ctx.log = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	eventCh := make(chan events.Event, 256)
	notify := events.Notifier(func(e events.Event) {
		select {
		case eventCh <- e:
		default: // panel lagging, drop rather than block the operation
		}
	})

	ctx.cfg.OnChange(func(config.BuildConfig) {
		notify(events.ConfigUpdated{})
	})

	buildMgr := build.NewManager(ctx.cfg, notify, ctx.hist, ctx.log)
	debugMgr := debug.NewManager(ctx.cfg, notify, ctx.hist, ctx.log)

	if cwd, err := os.Getwd(); err == nil {
		if w, err := detect.Watch(cwd, ctx.log, func(path string) {
			notify(events.ProjectDetected{Path: path})
		}); err == nil {
			defer w.Close()
		}
	}

	app := tui.NewApp(ctx.cfg, buildMgr, debugMgr, ctx.hist, eventCh)
	p := tea.NewProgram(app, tea.WithAltScreen())

	_, err = p.Run()
	return err
}

// newPrintNotifier streams progress lines to the terminal for CLI runs,
// skipping updates that don't change the percentage.
func newPrintNotifier() events.Notifier {
	var mu sync.Mutex
	lastPct := -1
	return func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch ev := e.(type) {
		case events.BuildStarted:
			fmt.Printf("→ %s\n", ev.Operation)
		case events.BuildProgress:
			if ev.Percent != lastPct {
				lastPct = ev.Percent
				fmt.Printf("  %3d%%  %s\n", ev.Percent, ev.Message)
			}
		case events.BuildSucceeded:
			fmt.Printf("✓ %s succeeded\n", ev.Operation)
		case events.BuildFailed:
			fmt.Printf("✗ %s failed: %s\n", ev.Operation, ev.Err)
		case events.BuildCancelled:
			fmt.Printf("⚠ %s cancelled\n", ev.Operation)
		case events.DebugStarted:
			fmt.Printf("→ %s\n", ev.Operation)
		case events.DebugSucceeded:
			fmt.Println("✓ editor launched")
		case events.DebugFailed:
			fmt.Printf("✗ %s\n", ev.Err)
		case events.DebugCancelled:
			fmt.Println("⚠ cancelled")
		}
	}
}

func withBuildManager(fn func(*build.Manager) error) error {
	ctx, err := setup()
	if err != nil {
		return err
	}
	defer ctx.Close()

	m := build.NewManager(ctx.cfg, newPrintNotifier(), ctx.hist, ctx.log)
	return fn(m)
}

func withDebugManager(fn func(*debug.Manager) error) error {
	ctx, err := setup()
	if err != nil {
		return err
	}
	defer ctx.Close()

	m := debug.NewManager(ctx.cfg, newPrintNotifier(), ctx.hist, ctx.log)
	return fn(m)
}

func newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Compile the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBuildManager(func(m *build.Manager) error { return m.Build() })
		},
	}
}

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove intermediate files, binaries, and staged builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBuildManager(func(m *build.Manager) error { return m.Clean() })
		},
	}
}

func newGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Regenerate the solution and project files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBuildManager(func(m *build.Manager) error { return m.Generate() })
		},
	}
}

func newRegenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Clean, regenerate project files, and compile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBuildManager(func(m *build.Manager) error { return m.Regenerate() })
		},
	}
}

func newDebugCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Compile, then launch the editor with the debug flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDebugManager(func(m *debug.Manager) error { return m.StartWithDebugger() })
		},
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Compile, then launch the editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDebugManager(func(m *debug.Manager) error { return m.StartWithoutDebugger() })
		},
	}
}

func newLaunchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Launch the editor without compiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDebugManager(func(m *debug.Manager) error { return m.LaunchOnly() })
		},
	}
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the current build configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := setup()
			if err != nil {
				return err
			}
			defer ctx.Close()

			cfg := ctx.cfg.Get()
			fmt.Printf("Engine:  %s\n", orUnset(cfg.EnginePath))
			fmt.Printf("Project: %s\n", orUnset(cfg.ProjectPath))
			fmt.Printf("Flavor:  %s\n", orUnset(cfg.BuildFlavor))
			if err := ctx.cfg.Validate(); err != nil {
				fmt.Printf("Status:  %s\n", err)
			} else {
				fmt.Println("Status:  valid")
			}
			return nil
		},
	}

	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigDetectCommand())
	return cmd
}

func newConfigSetCommand() *cobra.Command {
	var enginePath, projectPath, buildFlavor string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update configuration fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := setup()
			if err != nil {
				return err
			}
			defer ctx.Close()

			partial := config.BuildConfig{
				EnginePath:  enginePath,
				ProjectPath: projectPath,
				BuildFlavor: buildFlavor,
			}
			if partial == (config.BuildConfig{}) {
				return fmt.Errorf("nothing to set: pass --engine, --project, or --flavor")
			}
			if err := ctx.cfg.Update(partial); err != nil {
				return err
			}
			fmt.Println("Config updated.")
			return nil
		},
	}

	cmd.Flags().StringVar(&enginePath, "engine", "", "path to the engine editor executable")
	cmd.Flags().StringVar(&projectPath, "project", "", "path to the project file")
	cmd.Flags().StringVar(&buildFlavor, "flavor", "", "build flavor, e.g. Development")
	return cmd
}

func newConfigDetectCommand() *cobra.Command {
	var set bool

	cmd := &cobra.Command{
		Use:   "detect [dir]",
		Short: "Scan a directory for project files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := setup()
			if err != nil {
				return err
			}
			defer ctx.Close()

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			paths, err := detect.Scan(root)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Println("No project files found.")
				return nil
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			if set {
				if err := ctx.cfg.Update(config.BuildConfig{ProjectPath: paths[0]}); err != nil {
					return err
				}
				fmt.Printf("Project path set to %s\n", paths[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&set, "set", false, "set the project path to the first match")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recent operation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := setup()
			if err != nil {
				return err
			}
			defer ctx.Close()

			runs, err := ctx.hist.ListRuns(20)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs found.")
				return nil
			}
			for _, run := range runs {
				line := fmt.Sprintf("#%-3d %-10s %-12s [%s]", run.ID, run.Operation, run.ProjectName, run.Status)
				if run.ExitCode != nil {
					line += fmt.Sprintf(" exit:%d", *run.ExitCode)
				}
				if run.Error != "" {
					line += " " + truncate(run.Error, 60)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func orUnset(v string) string {
	if v == "" {
		return "(unset)"
	}
	return v
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
