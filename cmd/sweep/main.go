// Command sweep runs headless layout parameter sweeps: it simulates the
// overlay engine across a grid of lane and slot settings and reports how
// stable the resulting label layout is for each combination. Results go to
// CSV, optionally to a SQLite database, and optionally to an interactive
// HTML chart.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/engine"
	"github.com/banshee-data/overlay.report/internal/hud/sweep"
	"github.com/banshee-data/overlay.report/internal/sweepdb"
)

// parseCSVFloatSlice parses a comma-separated list of floats
func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseCSVIntSlice parses a comma-separated list of ints
func parseCSVIntSlice(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid int '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseCSVInt64Slice parses a comma-separated list of int64 seeds
func parseCSVInt64Slice(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to tuning config JSON")
	width := flag.Int("w", 1280, "Viewport width in pixels")
	height := flag.Int("h", 720, "Viewport height in pixels")
	frames := flag.Int("frames", 600, "Frames to simulate per seed")
	dt := flag.Float64("dt", 1.0/60.0, "Timestep in seconds per frame")
	seedsList := flag.String("seeds", "1,2,3,4,5", "Comma-separated seeds")

	spacingList := flag.String("spacing", "", "Comma-separated lane spacing values in px (e.g. 40,56,72)")
	stepList := flag.String("steps", "", "Comma-separated slot step values in px (e.g. 20,24,28)")
	limitList := flag.String("limits", "", "Comma-separated congestion limits (e.g. 1,2,3)")
	penaltyList := flag.String("penalties", "", "Comma-separated lane penalty values in px (e.g. 32,48,64)")

	output := flag.String("output", "", "Output CSV filename (defaults to sweep-<timestamp>.csv)")
	dbPath := flag.String("db", "", "SQLite database to record results into (optional)")
	htmlPath := flag.String("html", "", "HTML chart output filename (optional)")
	notes := flag.String("notes", "", "Free-form run notes stored alongside results")
	list := flag.Bool("list", false, "List stored runs and their best results from -db, then exit")
	listLimit := flag.Int("list-limit", 20, "Maximum number of stored runs to list")
	flag.Parse()

	if *list {
		if *dbPath == "" {
			log.Fatalf("-list requires -db")
		}
		if err := listStoredRuns(*dbPath, *listLimit); err != nil {
			log.Fatalf("Could not list runs: %v", err)
		}
		return
	}

	tuning, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("Could not load tuning config: %v", err)
	}

	seeds, err := parseCSVInt64Slice(*seedsList)
	if err != nil {
		log.Fatalf("Invalid seeds: %v", err)
	}
	spacings, err := parseCSVFloatSlice(*spacingList)
	if err != nil {
		log.Fatalf("Invalid spacing list: %v", err)
	}
	steps, err := parseCSVFloatSlice(*stepList)
	if err != nil {
		log.Fatalf("Invalid steps list: %v", err)
	}
	limits, err := parseCSVIntSlice(*limitList)
	if err != nil {
		log.Fatalf("Invalid limits list: %v", err)
	}
	penalties, err := parseCSVFloatSlice(*penaltyList)
	if err != nil {
		log.Fatalf("Invalid penalties list: %v", err)
	}

	spec := sweep.RunSpec{
		Base: engine.EngineConfigFromTuning(tuning),
		Grid: sweep.Grid{
			LaneSpacings:     spacings,
			SlotSteps:        steps,
			CongestionLimits: limits,
			LanePenalties:    penalties,
		},
		Seeds:  seeds,
		Frames: *frames,
		Dt:     *dt,
		Width:  *width,
		Height: *height,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := sweep.Run(ctx, spec)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("sweep-%s.csv", time.Now().Format("20060102-150405"))
	}
	if err := writeCSV(filename, results); err != nil {
		log.Fatalf("Could not write %s: %v", filename, err)
	}
	log.Printf("Summary: %s", filename)

	if *dbPath != "" {
		if err := persistResults(*dbPath, spec, *notes, results); err != nil {
			log.Fatalf("Could not persist results: %v", err)
		}
		log.Printf("Database: %s", *dbPath)
	}

	if *htmlPath != "" {
		if err := writeChart(*htmlPath, results); err != nil {
			log.Fatalf("Could not write chart: %v", err)
		}
		log.Printf("Chart: %s", *htmlPath)
	}

	best := bestResult(results)
	log.Printf("Best: spacing=%.0f step=%.0f limit=%d penalty=%.0f (reassign=%.4f clamp=%.4f)",
		best.Params.LaneSpacingPx, best.Params.SlotStepPx, best.Params.CongestionLimit, best.Params.LanePenaltyPx,
		best.Metrics.ReassignRateMean, best.Metrics.ClampRateMean)
}

func bestResult(results []sweep.Result) sweep.Result {
	best := results[0]
	for _, r := range results[1:] {
		if r.Metrics.ReassignRateMean < best.Metrics.ReassignRateMean {
			best = r
		}
	}
	return best
}

func writeCSV(filename string, results []sweep.Result) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"lane_spacing_px", "slot_step_px", "congestion_limit", "lane_penalty_px",
		"reassign_rate_mean", "reassign_rate_stddev",
		"clamp_rate_mean", "clamp_rate_stddev",
		"occupancy_stddev_mean", "seeds", "frames",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			fmt.Sprintf("%.2f", r.Params.LaneSpacingPx),
			fmt.Sprintf("%.2f", r.Params.SlotStepPx),
			fmt.Sprintf("%d", r.Params.CongestionLimit),
			fmt.Sprintf("%.2f", r.Params.LanePenaltyPx),
			fmt.Sprintf("%.6f", r.Metrics.ReassignRateMean),
			fmt.Sprintf("%.6f", r.Metrics.ReassignRateStddev),
			fmt.Sprintf("%.6f", r.Metrics.ClampRateMean),
			fmt.Sprintf("%.6f", r.Metrics.ClampRateStddev),
			fmt.Sprintf("%.6f", r.Metrics.OccupancyStddevMean),
			fmt.Sprintf("%d", r.Metrics.Seeds),
			fmt.Sprintf("%d", r.Metrics.Frames),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// listStoredRuns prints stored sweep runs newest first, each with its best
// parameter combination.
func listStoredRuns(path string, limit int) error {
	db, err := sweepdb.NewSweepDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		log.Printf("No stored runs in %s", path)
		return nil
	}

	for _, run := range runs {
		started := time.Unix(int64(run.StartedAt), 0).Format("2006-01-02 15:04:05")
		log.Printf("Run %d (%s) %s %dx%d frames=%d seeds=%d notes=%q",
			run.ID, run.RunUUID, started, run.ViewportW, run.ViewportH, run.Frames, run.Seeds, run.Notes)

		results, err := db.ListResults(run.ID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			log.Printf("  (no results recorded)")
			continue
		}
		best := results[0]
		log.Printf("  best: spacing=%.0f step=%.0f limit=%d penalty=%.0f (reassign=%.4f clamp=%.4f, %d combinations)",
			best.Params.LaneSpacingPx, best.Params.SlotStepPx, best.Params.CongestionLimit, best.Params.LanePenaltyPx,
			best.Metrics.ReassignRateMean, best.Metrics.ClampRateMean, len(results))
	}
	return nil
}

func persistResults(path string, spec sweep.RunSpec, notes string, results []sweep.Result) error {
	db, err := sweepdb.NewSweepDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := db.StartRun(spec, notes)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := db.RecordResult(runID, r); err != nil {
			return err
		}
	}
	return nil
}

// writeChart renders a scatter of lane spacing vs reassignment rate, with
// clamp rate on the colour axis.
func writeChart(filename string, results []sweep.Result) error {
	data := make([]opts.ScatterData, 0, len(results))
	maxClamp := 0.0
	for _, r := range results {
		if r.Metrics.ClampRateMean > maxClamp {
			maxClamp = r.Metrics.ClampRateMean
		}
		data = append(data, opts.ScatterData{
			Name: fmt.Sprintf("step=%.0f limit=%d penalty=%.0f", r.Params.SlotStepPx, r.Params.CongestionLimit, r.Params.LanePenaltyPx),
			Value: []interface{}{
				r.Params.LaneSpacingPx,
				r.Metrics.ReassignRateMean,
				r.Metrics.ClampRateMean,
			},
		})
	}
	if maxClamp == 0 {
		maxClamp = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Layout Sweep", Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Label Layout Stability", Subtitle: fmt.Sprintf("%d combinations", len(results))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lane spacing (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Reassignment rate", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxClamp),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("combinations", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return scatter.Render(f)
}
