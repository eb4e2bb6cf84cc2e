package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"github.com/banshee-data/gait.report/internal/gait/l4phases"
	"github.com/banshee-data/gait.report/internal/gait/l5strikes"
	"github.com/banshee-data/gait.report/internal/gait/l6sessions"
	"github.com/banshee-data/gait.report/internal/gait/pipeline"
)

// AssetsHost is where the rendered page loads the echarts scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// phaseLevel maps phases onto a plottable step signal.
var phaseLevel = map[l4phases.Phase]int{
	l4phases.Swing:   0,
	l4phases.Contact: 1,
	l4phases.Stance:  2,
	l4phases.ToeOff:  3,
}

// missing is how echarts marks a gap in a series.
const missing = "-"

// WriteTimelineHTML renders foot vertical velocity, gait phase per leg and
// the strike distribution of a session as a single HTML page.
func WriteTimelineHTML(w io.Writer, recs []pipeline.FrameRecord, s l6sessions.Summary) error {
	frames := make([]string, len(recs))
	for i, r := range recs {
		frames[i] = strconv.FormatInt(r.Index, 10)
	}
	sides := legSides(recs)

	velocity := charts.NewLine()
	velocity.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gait timeline", Width: "100%", Height: "420px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Foot vertical velocity", Subtitle: fmt.Sprintf("session=%s frames=%d", s.SessionID, s.TotalFrames)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "units/s (up +)"}),
	)
	velocity.SetXAxis(frames)
	for _, side := range sides {
		data := make([]opts.LineData, len(recs))
		for i, r := range recs {
			lr := r.Legs[side]
			if lr.VelocityValid {
				data[i] = opts.LineData{Value: lr.VerticalVelocity}
			} else {
				data[i] = opts.LineData{Value: missing}
			}
		}
		velocity.AddSeries(string(side), data)
	}

	phase := charts.NewLine()
	phase.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "300px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Gait phase", Subtitle: "0 swing, 1 contact, 2 stance, 3 toe-off"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 3}),
	)
	phase.SetXAxis(frames)
	for _, side := range sides {
		data := make([]opts.LineData, len(recs))
		for i, r := range recs {
			data[i] = opts.LineData{Value: phaseLevel[r.Legs[side].Phase]}
		}
		phase.AddSeries(string(side), data)
	}

	strikes := charts.NewBar()
	strikes.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "300px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Strike pattern",
			Subtitle: fmt.Sprintf("dominant=%s confidence=%.2f cycles=%d", s.DominantStrike, s.DominantConfidence, len(s.Cycles)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	labels := make([]string, 0, len(l5strikes.Strikes)+1)
	counts := make([]opts.BarData, 0, len(l5strikes.Strikes)+1)
	for _, st := range slices.Concat(l5strikes.Strikes, []l5strikes.Strike{l5strikes.Unknown}) {
		labels = append(labels, string(st))
		counts = append(counts, opts.BarData{Value: s.StrikeCounts[st]})
	}
	strikes.SetXAxis(labels).
		AddSeries("cycles", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.AddCharts(velocity, phase, strikes)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render timeline: %w", err)
	}
	return nil
}

// legSides returns the tracked legs present in recs, in stable order.
func legSides(recs []pipeline.FrameRecord) []l1landmarks.Side {
	seen := make(map[l1landmarks.Side]bool)
	for _, r := range recs {
		for side := range r.Legs {
			seen[side] = true
		}
	}
	var out []l1landmarks.Side
	for _, side := range l1landmarks.Sides {
		if seen[side] {
			out = append(out, side)
		}
	}
	return out
}
