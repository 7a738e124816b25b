package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"chuck/internal/logging"
	"chuck/internal/manager"
	"chuck/internal/types"
)

// cycler is the slice of the manager the interactive loop drives.
type cycler interface {
	Day() int
	Review(ctx context.Context) (manager.ReviewReport, error)
	Tick(ctx context.Context) (manager.TickReport, error)
	Snapshot() types.Snapshot
}

const prompt = "Press enter to continue (q to quit): "

// runInteractive runs review+tick cycles until the operator quits, the
// input ends or ctx is cancelled. Cycle failures are shown, not fatal.
func runInteractive(ctx context.Context, c cycler, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if errors.Is(err, io.EOF) || strings.EqualFold(strings.TrimSpace(line), "q") {
			fmt.Fprintln(out)
			logging.CLI("operator ended the session on day %d", c.Day())
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("day %d", c.Day())))

		review, err := c.Review(ctx)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("review failed: "+err.Error()))
		} else {
			fmt.Fprintln(out, renderReview(review))
		}

		tick, err := c.Tick(ctx)
		fmt.Fprintln(out, renderTick(tick))
		if err != nil {
			logging.CLIDebug("cycle %d errors: %v", tick.Tick, err)
		}
		fmt.Fprintln(out, renderSnapshot(c.Snapshot()))
	}
}
