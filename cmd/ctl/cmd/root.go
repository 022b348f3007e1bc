package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/rtss.go/pkg/config"
	"github.com/jpfielding/rtss.go/pkg/logging"
	"github.com/jpfielding/rtss.go/pkg/provenance"
	"github.com/spf13/cobra"
)

// fileWriter opens the rotated log file named by --log-file
var fileWriter = logging.FileWriter

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logFile io.Closer
	closeLog := func() {
		if logFile != nil {
			logFile.Close()
			logFile = nil
		}
	}
	cmd := &cobra.Command{
		Use:   "rtssctl",
		Short: "convert between RT structure sets and NIfTI masks",
		Long:  "rtssctl contours NIfTI label masks into DICOM RTSTRUCT objects and rasterizes RTSTRUCT ROIs back onto their image series.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logLevel := cfg.Log.Level
			if cmd.Flags().Changed("log-level") {
				logLevel, _ = cmd.Flags().GetString("log-level")
			}
			path := cfg.Log.File
			if cmd.Flags().Changed("log-file") {
				path, _ = cmd.Flags().GetString("log-file")
			}
			json := cfg.Log.JSON
			if cmd.Flags().Changed("log-json") {
				json, _ = cmd.Flags().GetBool("log-json")
			}

			// Parse log level
			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stdout
			if path != "" {
				fw := fileWriter(path, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays)
				logFile = fw
				w = io.MultiWriter(os.Stdout, fw)
			}
			slog.SetDefault(logging.Logger(w, json, level))

			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLog()
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewDecodeCmd(ctx),
		NewAnalyzeCmd(ctx),
		NewSortCmd(ctx),
		NewNifti2RTSSCmd(ctx, gitsha),
		NewRTSS2NiftiCmd(ctx, gitsha),
		NewPhantomCmd(ctx),
		NewConfigCmd(ctx),
	)
	// cobra skips the post run hooks when RunE fails
	closeOnError(cmd, closeLog)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "also write logs to this rotated file")
	pf.Bool("log-json", false, "log as json")
	pf.String("config", "", "YAML file with default settings")
	return cmd
}

// closeOnError makes every RunE below c call done before returning an error
func closeOnError(c *cobra.Command, done func()) {
	for _, sub := range c.Commands() {
		closeOnError(sub, done)
	}
	if c.RunE == nil {
		return
	}
	run := c.RunE
	c.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if err != nil {
			done()
		}
		return err
	}
}

// loadConfig reads the file named by --config, falling back to the built in defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(path)
}

// record writes a provenance log for each output when enabled
func record(ctx context.Context, cfg *config.Config, gitsha string, inputs []string, outputs ...string) error {
	if !cfg.Provenance {
		return nil
	}
	rec, err := provenance.New(os.Args, gitsha, inputs...)
	if err != nil {
		return err
	}
	for _, out := range outputs {
		path, err := rec.Write(out)
		if err != nil {
			return err
		}
		slog.DebugContext(ctx, "wrote provenance", "path", path)
	}
	return nil
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(gitsha)
		},
	}
	return cmd
}
