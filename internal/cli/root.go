// Package cli is ridetally's command-line surface. Every command opens the
// on-device store, loads the tracker, acts and exits; the ride in progress
// survives between invocations.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridetally/ridetally/internal/app/tracker"
	"github.com/ridetally/ridetally/internal/daemon"
	"github.com/ridetally/ridetally/internal/infra/sqlite"
)

var (
	homeFlag    string
	verboseFlag bool
)

// now is the clock handed to the tracker.
var now = time.Now

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "Data directory (default $RIDETALLY_HOME or ~/.ridetally)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log diagnostics to stderr")
}

var rootCmd = &cobra.Command{
	Use:   "ridetally",
	Short: "Track rides against the weekly driver incentive",
	Long: `ridetally records your rides on this device and tells you, at any moment,
whether you currently qualify for the platform's weekly incentive: hours
worked, the progressive trip requirement, the peak-trip share and your
acceptance and cancellation rates.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// app is everything a command needs, opened per invocation.
type app struct {
	cfg     daemon.Config
	db      *sqlite.DB
	tracker *tracker.Tracker
}

// openApp loads the config, opens the store and the tracker.
func openApp() (*app, error) {
	home := homeFlag
	if home == "" {
		h, err := daemon.Home()
		if err != nil {
			return nil, err
		}
		home = h
	}

	cfg, err := daemon.LoadConfig(home)
	if err != nil {
		return nil, err
	}
	if verboseFlag || cfg.Log.Verbose {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	db, err := sqlite.Open(home)
	if err != nil {
		return nil, err
	}
	tr, err := tracker.New(sqlite.NewStore(db, cfg.Tracker.StateKey), loc)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load tracker: %w", err)
	}
	tr.SetClock(now)
	return &app{cfg: cfg, db: db, tracker: tr}, nil
}

// Close releases the store.
func (a *app) Close() { a.db.Close() }

// withApp opens the app around fn.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}
