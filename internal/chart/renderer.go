package chart

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/golang/freetype/truetype"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	apperrors "twcpi/internal/errors"
	"twcpi/internal/infrastructure"
	"twcpi/pkg/contracts/domain"
)

// BaseLineName is the legend entry of the reference line at 100
const BaseLineName = "基準 = 100"

// palette follows the matplotlib tab10 order
var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
	drawing.ColorFromHex("bcbd22"),
	drawing.ColorFromHex("17becf"),
}

// Request describes one chart
type Request struct {
	Observations []domain.RebasedObservation
	// Categories sets which lines are drawn and their legend order
	Categories []string
	// BaseDate only labels the title
	BaseDate   time.Time
	Events     []domain.Event
	OutputPath string
}

// Output is what a render produced
type Output struct {
	// Table holds the requested categories sorted by date, then by the
	// order of Request.Categories
	Table         []domain.RebasedObservation
	Series        int
	EventsPlaced  int
	EventsSkipped int
}

// Renderer draws rebased series as a PNG line chart
type Renderer struct {
	opts   Options
	font   *truetype.Font
	logger *slog.Logger
}

// NewRenderer creates a renderer. The font file, when configured, is loaded
// here; an unreadable or invalid font is a CONFIG error.
func NewRenderer(opts Options, logger *slog.Logger) (*Renderer, error) {
	r := &Renderer{
		opts:   opts.withDefaults(),
		logger: infrastructure.WithComponent(logger, "chart"),
	}
	if r.opts.FontPath != "" {
		font, err := loadFont(r.opts.FontPath)
		if err != nil {
			return nil, err
		}
		r.font = font
	}
	return r, nil
}

// Options returns the effective options
func (r *Renderer) Options() Options {
	return r.opts
}

// Render draws the chart and returns the table it drew
func (r *Renderer) Render(req Request) ([]domain.RebasedObservation, error) {
	out, err := r.RenderContext(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return out.Table, nil
}

// RenderContext draws the chart to req.OutputPath. The PNG is written to a
// temporary file in the same directory and renamed into place, so the
// output path never holds a partial image.
func (r *Renderer) RenderContext(ctx context.Context, req Request) (*Output, error) {
	if req.OutputPath == "" {
		return nil, apperrors.NewConfigError("output path is empty", nil)
	}

	table := selectCategories(req.Observations, req.Categories)
	series, first, last := r.buildSeries(table, req.Categories)
	if len(series) == 0 {
		return nil, apperrors.NewRenderError("nothing to draw: no requested category has an index value", nil).
			WithContext("categories", req.Categories)
	}
	drawn := len(series)

	if r.opts.BaseLine {
		series = append(series, gochart.TimeSeries{
			Name:    BaseLineName,
			XValues: []time.Time{first, last},
			YValues: []float64{100, 100},
			Style: gochart.Style{
				StrokeColor:     drawing.ColorFromHex("808080"),
				StrokeWidth:     1,
				StrokeDashArray: []float64{5, 5},
			},
		})
	}

	annotations, skipped := r.placeEvents(ctx, table, req.Events)
	if len(annotations) > 0 {
		series = append(series, gochart.AnnotationSeries{
			Name:        "events",
			Annotations: annotations,
			Style: gochart.Style{
				FontSize:    8,
				StrokeColor: drawing.ColorFromHex("404040"),
				FillColor:   drawing.ColorWhite,
			},
		})
	}

	graph := gochart.Chart{
		Title:      r.opts.Title(req.BaseDate),
		TitleStyle: gochart.Style{FontSize: 14},
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		DPI:        r.opts.DPI,
		Font:       r.font,
		Background: gochart.Style{Padding: gochart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20}},
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{Min: gochart.TimeToFloat64(first), Max: gochart.TimeToFloat64(last)},
			Ticks: monthTicks(first, last, r.opts.TickMonths),
		},
		YAxis: gochart.YAxis{
			Name: r.opts.YAxisLabel,
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := r.writePNG(&graph, req.OutputPath); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "chart written",
		slog.String("path", req.OutputPath),
		slog.Int("series", drawn),
		slog.Int("rows", len(table)),
		slog.Int("events_placed", len(annotations)),
		slog.Int("events_skipped", skipped))

	return &Output{
		Table:         table,
		Series:        drawn,
		EventsPlaced:  len(annotations),
		EventsSkipped: skipped,
	}, nil
}

// buildSeries makes one time series per category with at least one index
// value. Missing points are left out. first and last span every drawn
// point; when they coincide last is pushed one month out so the axis has
// a non-empty range.
func (r *Renderer) buildSeries(table []domain.RebasedObservation, categories []string) ([]gochart.Series, time.Time, time.Time) {
	points := make(map[string]*gochart.TimeSeries, len(categories))
	var first, last time.Time

	for _, row := range table {
		if domain.IsMissing(row.Index100) {
			continue
		}
		ts, ok := points[row.Category]
		if !ok {
			ts = &gochart.TimeSeries{Name: row.Category}
			points[row.Category] = ts
		}
		ts.XValues = append(ts.XValues, row.Date)
		ts.YValues = append(ts.YValues, row.Index100)

		if first.IsZero() || row.Date.Before(first) {
			first = row.Date
		}
		if row.Date.After(last) {
			last = row.Date
		}
	}

	var series []gochart.Series
	for i, category := range uniqueOrder(categories) {
		ts, ok := points[category]
		if !ok {
			r.logger.Debug("category has no index values", slog.String("category", category))
			continue
		}
		color := palette[i%len(palette)]
		ts.Style = gochart.Style{StrokeColor: color, StrokeWidth: 2}
		series = append(series, *ts)
	}

	if !last.After(first) {
		last = first.AddDate(0, 1, 0)
	}
	return series, first, last
}

// placeEvents turns events into annotations at the anchor category's point.
// An event whose anchor has no index value at its date is skipped.
func (r *Renderer) placeEvents(ctx context.Context, table []domain.RebasedObservation, events []domain.Event) ([]gochart.Value2, int) {
	index := make(map[string]float64, len(table))
	for _, row := range table {
		if !domain.IsMissing(row.Index100) {
			index[eventKey(row.Category, row.Date)] = row.Index100
		}
	}

	var annotations []gochart.Value2
	skipped := 0
	for _, e := range events {
		y, ok := index[eventKey(e.Anchor, e.Date)]
		if !ok {
			skipped++
			r.logger.DebugContext(ctx, "event anchor not found, marker skipped",
				slog.String("anchor", e.Anchor),
				slog.String("date", e.Date.Format("2006-01")))
			continue
		}
		annotations = append(annotations, gochart.Value2{
			XValue: gochart.TimeToFloat64(e.Date),
			YValue: y,
			Label:  singleLine(e.Label),
		})
	}
	return annotations, skipped
}

// writePNG renders into a temp file next to path and renames it into place
func (r *Renderer) writePNG(graph *gochart.Chart, path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("cannot create directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("cannot create temp file in %s", dir), err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = graph.Render(gochart.PNG, tmp); err != nil {
		return apperrors.NewRenderError("chart rendering failed", err)
	}
	if err = tmp.Close(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("cannot write %s", tmp.Name()), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("cannot move chart to %s", path), err)
	}
	return nil
}

// selectCategories keeps the requested categories, sorted by date and then
// by request order
func selectCategories(rows []domain.RebasedObservation, categories []string) []domain.RebasedObservation {
	rank := make(map[string]int, len(categories))
	for i, c := range uniqueOrder(categories) {
		rank[c] = i
	}

	table := make([]domain.RebasedObservation, 0, len(rows))
	for _, row := range rows {
		if _, ok := rank[row.Category]; ok {
			table = append(table, row)
		}
	}
	sort.SliceStable(table, func(i, j int) bool {
		if !table[i].Date.Equal(table[j].Date) {
			return table[i].Date.Before(table[j].Date)
		}
		return rank[table[i].Category] < rank[table[j].Category]
	})
	return table
}

// monthTicks places a tick on the first day of every month whose number is
// 1 + k*interval, plus one at first and at last. go-chart takes the axis
// range from the outermost ticks, so the ends must always be present; an
// end that is not an interval month gets no label. Fewer than two interval
// months falls back to labelling both ends.
func monthTicks(first, last time.Time, interval int) []gochart.Tick {
	onInterval := func(d time.Time) bool {
		return d.Day() == 1 && (int(d.Month())-1)%interval == 0
	}
	tick := func(d time.Time, labelled bool) gochart.Tick {
		t := gochart.Tick{Value: gochart.TimeToFloat64(d)}
		if labelled {
			t.Label = d.Format("2006-01")
		}
		return t
	}

	var inner []gochart.Tick
	labelled := 0
	start := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	for d := start; !d.After(last); d = d.AddDate(0, 1, 0) {
		if d.Before(first) || !onInterval(d) {
			continue
		}
		labelled++
		if d.After(first) && d.Before(last) {
			inner = append(inner, tick(d, true))
		}
	}

	fallback := labelled < 2
	ticks := make([]gochart.Tick, 0, len(inner)+2)
	ticks = append(ticks, tick(first, fallback || onInterval(first)))
	ticks = append(ticks, inner...)
	ticks = append(ticks, tick(last, fallback || onInterval(last)))
	return ticks
}

func uniqueOrder(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func eventKey(category string, date time.Time) string {
	return category + "|" + date.UTC().Format("2006-01-02")
}

// singleLine joins label lines; go-chart annotations draw one line of text
func singleLine(label string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(label, "\n", " ")), " ")
}
