package main

import (
	"fmt"
	"os"
	"strconv"

	"fsnap/internal/app"
	"fsnap/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "fsnap",
	Short: "Directory-tree snapshot, diff and patch tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Catalog:       %s\n", cfg.CatalogPath)
		fmt.Printf("Progress:      %t\n", cfg.Progress.Enabled)
		fmt.Printf("Verify Source: %t\n", cfg.Apply.VerifySource)
		return nil
	},
}

// snapshot command
var (
	snapshotOut          string
	snapshotPrior        string
	snapshotNoProgress   bool
	snapshotTimeOverride string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot DIR",
	Short: "Take a snapshot of a directory tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("TakeSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		var mtimeOverride *int64
		if snapshotTimeOverride != "" {
			v, err := strconv.ParseInt(snapshotTimeOverride, 10, 64)
			if err != nil {
				return fmt.Errorf("parsing time override: %w", err)
			}
			mtimeOverride = &v
		}

		s, err := a.TakeSnapshot(args[0], snapshotOut, snapshotPrior, !snapshotNoProgress, mtimeOverride)
		if err != nil {
			return fmt.Errorf("taking snapshot: %w", err)
		}

		fmt.Printf("Snapshot of %s written to %s (%d entries)\n", args[0], snapshotOut, len(s.Entries))
		return nil
	},
}

// diff command
var diffCmd = &cobra.Command{
	Use:   "diff BEFORE.json AFTER.json",
	Short: "Compute the structural diff of two snapshots",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DiffSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.DiffSnapshots(args[0], args[1], os.Stdout); err != nil {
			return fmt.Errorf("computing diff: %w", err)
		}
		return nil
	},
}

// apply command
var (
	applyOn     string
	applySource string
)

var applyCmd = &cobra.Command{
	Use:   "apply DIFF.json",
	Short: "Apply a diff onto a destination tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ApplyPatch")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.ApplyPatch(args[0], applyOn, applySource, os.Stdout); err != nil {
			return fmt.Errorf("applying patch: %w", err)
		}
		return nil
	},
}

// status command
var statusSnapshot string

var statusCmd = &cobra.Command{
	Use:   "status DIR",
	Short: "Quick-compare a directory against a snapshot by name and size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Status(args[0], statusSnapshot)
		if err != nil {
			return fmt.Errorf("comparing: %w", err)
		}

		printPathList("Extra files:", result.Extra)
		printPathList("Missing files:", result.Missing)
		printPathList("Different files:", result.Different)
		return nil
	},
}

func printPathList(title string, paths []string) {
	fmt.Println(title)
	if len(paths) == 0 {
		fmt.Println("    Not found.")
		return
	}
	for _, p := range paths {
		fmt.Println("    " + p)
	}
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded snapshot builds and patch applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		snaps, patches, err := a.History()
		if err != nil {
			return err
		}

		if len(snaps) == 0 && len(patches) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		for _, s := range snaps {
			fmt.Printf("snapshot  %s  %s  %s  entries:%d bytes:%d\n",
				s.ID[:8], s.CreatedAt.Format("2006-01-02 15:04:05"), s.Root, s.EntryCount, s.FileBytes)
		}
		for _, p := range patches {
			fmt.Printf("patch     %s  %s  %s  changes:%d conflicts:%d\n",
				p.ID[:8], p.CreatedAt.Format("2006-01-02 15:04:05"), p.Destination, p.ChangeCount, p.ConflictCount)
		}
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "", "snapshot file to write (required)")
	snapshotCmd.Flags().StringVar(&snapshotPrior, "prior", "", "prior snapshot enabling fingerprint reuse")
	snapshotCmd.Flags().BoolVar(&snapshotNoProgress, "no-progress", false, "disable the progress indicator")
	snapshotCmd.Flags().StringVar(&snapshotTimeOverride, "testonly-time-override", "", "pin every emitted mtime to this epoch-seconds value")
	snapshotCmd.MarkFlagRequired("out")

	applyCmd.Flags().StringVar(&applyOn, "on", "", "destination directory to mutate (required)")
	applyCmd.Flags().StringVar(&applySource, "data-source", "", "directory supplying file bytes (required)")
	applyCmd.MarkFlagRequired("on")
	applyCmd.MarkFlagRequired("data-source")

	statusCmd.Flags().StringVar(&statusSnapshot, "snapshot", "", "snapshot file to compare against (required)")
	statusCmd.MarkFlagRequired("snapshot")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}
