// Command fpcam_probe exercises the extension outside the game: it checks
// mouse capture on this desktop, prints the effective configuration and
// validates form tables.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bkfirstperson/extension/internal/camera"
	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/internal/mouse"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fpcam_probe",
		Short:         "Developer checks for the first-person camera extension",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newProbeCmd(), newConfigCmd(), newFormsCmd())
	return rootCmd
}

// probe command - capture the mouse and print per-frame deltas
func newProbeCmd() *cobra.Command {
	var seconds int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Capture the mouse and print per-frame deltas at 60 Hz",
		Long: `Opens the platform pointer backend, enables capture and polls it the
way the game does every frame. Focus a window, move the mouse and watch the
deltas. Press Escape to pause capture, Ctrl+Alt+M to toggle it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			backend, err := mouse.OpenPlatform(log)
			if err != nil {
				return fmt.Errorf("opening pointer backend: %w", err)
			}
			engine := mouse.New(backend, mouse.WithLogger(log))
			defer engine.Close()

			engine.SetEnabled(true)
			return runProbe(cmd.OutOrStdout(), engine, time.Duration(seconds)*time.Second)
		},
	}

	cmd.Flags().IntVar(&seconds, "seconds", 10, "how long to poll")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log backend activity to stderr")
	return cmd
}

// poller is the part of the engine the probe drives.
type poller interface {
	Poll()
	DeltaX() int
	DeltaY() int
	IsCaptured() bool
}

func runProbe(w io.Writer, m poller, d time.Duration) error {
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	deadline := time.After(d)

	var frame, captured int
	var sumX, sumY int
	for {
		select {
		case <-deadline:
			fmt.Fprintf(w, "%d frames, %d captured, total dx=%d dy=%d\n", frame, captured, sumX, sumY)
			return nil
		case <-ticker.C:
			m.Poll()
			frame++
			if !m.IsCaptured() {
				continue
			}
			captured++
			dx, dy := m.DeltaX(), m.DeltaY()
			sumX += dx
			sumY += dy
			if dx != 0 || dy != 0 {
				fmt.Fprintln(w, formatSample(frame, dx, dy))
			}
		}
	}
}

func formatSample(frame, dx, dy int) string {
	return fmt.Sprintf("frame %5d  dx %+4d  dy %+4d", frame, dx, dy)
}

// config command - print effective settings
func newConfigCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(dir); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v, showing defaults\n", err)
			}
			return writeJSON(cmd.OutOrStdout(), config.Current())
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding "+config.FileName)
	return cmd
}

// forms command - validate and print a form table, or one form of it
func newFormsCmd() *cobra.Command {
	var file string
	var id int

	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Validate and print a form table (built-in when --file is empty)",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := camera.LoadTable(file)
			if err != nil {
				return err
			}
			if id < 0 {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			f, ok := t.Form(id)
			if !ok {
				return fmt.Errorf("no form with transformation id %d", id)
			}
			return writeJSON(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML form table to validate")
	cmd.Flags().IntVar(&id, "id", -1, "print only the form with this transformation id")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
