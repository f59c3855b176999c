// Command irisdemo drives the iris engine from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/iris"
	"github.com/gogpu/iris/internal/config"
)

var (
	version = "0.1.0"
	cfgFile string
	verbose bool
	frames  int
	force   bool
)

var rootCmd = &cobra.Command{
	Use:   "irisdemo",
	Short: "Iris rendering engine demo",
	Long:  `irisdemo renders frames with the iris engine into a shareable texture and reports the exported handles.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			iris.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render offscreen frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the engine configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default " + config.FileName,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.FileName
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.Save(path, config.Default()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return config.Write(cmd.OutOrStdout(), cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "irisdemo v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	renderCmd.Flags().IntVarP(&frames, "frames", "n", 3, "number of frames to render")
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRender(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	if frames < 1 {
		return fmt.Errorf("--frames must be positive, got %d", frames)
	}

	engine, err := iris.NewOffscreen(cfg.Width, cfg.Height, opts...)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer engine.Close()

	out := cmd.OutOrStdout()
	w, h := engine.Size()
	fmt.Fprintf(out, "Engine ready: %s %dx%d\n", engine.Mode(), w, h)

	for i := range frames {
		start := time.Now()
		shared, err := engine.RenderFrame()
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		fmt.Fprintf(out, "frame %d: shared handle %#x (%v)\n", i, uintptr(shared), time.Since(start).Round(time.Microsecond))
	}
	return nil
}
