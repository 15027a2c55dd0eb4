// Command windowed simulates a scroll session over a virtual item collection
// and prints the materialized window each frame.
package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/log/v2"
	"github.com/spf13/cobra"

	"github.com/charmbracelet/windowed"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mountStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unmountStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// printRenderer is a renderer that reports mounts and unmounts to stdout and
// feeds a jittered "measured" extent back into the engine after layout.
type printRenderer struct {
	engine *windowed.Engine
}

func (r *printRenderer) Mount(index int) (windowed.RendererHandle, error) {
	fmt.Println(mountStyle.Render(fmt.Sprintf("  + mount item %d", index)))
	if r.engine != nil {
		// Simulate the post-layout measurement callback.
		actual := 40 + rand.Float64()*40
		if err := r.engine.ReportMeasured(index, actual); err != nil {
			return nil, err
		}
	}
	return index, nil
}

func (r *printRenderer) Unmount(handle windowed.RendererHandle) error {
	fmt.Println(unmountStyle.Render(fmt.Sprintf("  - unmount item %v", handle)))
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "windowed",
	Short: "Simulate viewport windowing over a virtual item collection",
	Long: `Simulate a scroll session over a collection of items with estimated
extents, printing the mount/unmount churn and the materialized window as the
viewport moves. Mounted items report a measured extent back into the engine,
so the window drifts as estimates are corrected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		viewport, _ := cmd.Flags().GetFloat64("viewport")
		overscan, _ := cmd.Flags().GetInt("overscan")
		frames, _ := cmd.Flags().GetInt("frames")
		if frames <= 0 {
			frames = 1
		}
		verbose, _ := cmd.Flags().GetBool("verbose")

		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: false,
		})
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		slog.SetDefault(slog.New(logger))

		renderer := &printRenderer{}
		engine := windowed.New(count,
			windowed.WithEstimator(func(int) float64 { return 60 }),
			windowed.WithViewportSize(viewport),
			windowed.WithOverscan(overscan),
			windowed.WithRenderer(renderer),
			windowed.WithFrameRate(120),
			windowed.WithOnWindowChanged(printWindow),
		)
		renderer.engine = engine
		engine.Start()
		defer engine.Close()

		fmt.Println(titleStyle.Render(fmt.Sprintf(
			"%d items, viewport %.0f, overscan %d, total extent %.0f",
			count, viewport, overscan, engine.TotalExtent())))

		// Scroll toward the last item over the requested number of frames.
		target, err := engine.ScrollToIndex(count-1, windowed.AlignEnd)
		if err != nil {
			return err
		}
		for frame := 0; frame <= frames; frame++ {
			offset := target * float64(frame) / float64(frames)
			engine.NotifyScroll(offset)
			time.Sleep(10 * time.Millisecond)
		}

		fmt.Println(faintStyle.Render(fmt.Sprintf(
			"final total extent %.0f across %d materialized slots",
			engine.TotalExtent(), len(engine.Slots()))))
		return nil
	},
}

func printWindow(w windowed.Window) {
	var b strings.Builder
	fmt.Fprintf(&b, "window [%d, %d]", w.Start, w.End)
	if w.OverscanStart > 0 || w.OverscanEnd > 0 {
		fmt.Fprintf(&b, " (+%d/+%d overscan)", w.OverscanStart, w.OverscanEnd)
	}
	fmt.Fprintf(&b, " first offset %.0f", w.Offsets[w.Start])
	fmt.Println(faintStyle.Render(b.String()))
}

func init() {
	rootCmd.Flags().Int("count", 200, "Number of items in the collection")
	rootCmd.Flags().Float64("viewport", 300, "Viewport size along the scroll axis")
	rootCmd.Flags().Int("overscan", 2, "Extra items materialized beyond the visible range")
	rootCmd.Flags().Int("frames", 50, "Number of scroll steps to simulate")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
