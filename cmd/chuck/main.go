package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chuck/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chuck",
	Short: "chuck - a manager steering a population of LLM workers",
	Long: `chuck runs a manager that owns shared text registers and the locks
guarding them, and steers a population of worker agents through
repeated decision cycles driven by a text-completion model.

Run without arguments to execute one decision cycle and exit.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Format comes from config; the level is the only flag.
		format := "console"
		if cfg, err := loadConfig(); err == nil {
			format = cfg.Logging.Format
		}
		return logging.Initialize(logLevel, format)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
	RunE: runOnce,
}

// interactiveCmd pauses between cycles
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Run decision cycles, pausing for Enter between each",
	Long: `Runs a review round followed by a decision cycle, then waits for the
operator. Press Enter to run the next cycle; type q (or send EOF) to stop.`,
	Args: cobra.NoArgs,
	RunE: runInteractiveCmd,
}

// reviewCmd runs a single review round
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run one review round (spawn, examine, pleas, thoughts) and exit",
	Args:  cobra.NoArgs,
	RunE:  runReview,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARNING",
		"Set the logging level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")

	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(reviewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runOnce executes a single decision cycle.
func runOnce(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.mgr.Tick(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), renderTick(report))
	fmt.Fprintln(cmd.OutOrStdout(), renderSnapshot(rt.mgr.Snapshot()))
	if err != nil {
		// Phase failures are reported; the cycle itself completed.
		logging.Get(logging.CategoryCLI).Warn("cycle finished with errors: %v", err)
	}
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.mgr.Review(ctx)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderReview(report))
	fmt.Fprintln(cmd.OutOrStdout(), renderSnapshot(rt.mgr.Snapshot()))
	return nil
}

func runInteractiveCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	return runInteractive(ctx, rt.mgr, cmd.InOrStdin(), cmd.OutOrStdout())
}
