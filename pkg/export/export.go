package export

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/opscost/pkg/debug"
	"github.com/vanderheijden86/opscost/pkg/engine"
	"github.com/vanderheijden86/opscost/pkg/metrics"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// Plan lists the files an export run writes. Empty paths are skipped.
type Plan struct {
	ChartPath   string
	ChartFormat string // "svg" or "png"; inferred from ChartPath when empty
	DetailsPath string
	SQLitePath  string
	Title       string
	GeneratedAt time.Time
}

// Empty reports whether the plan writes nothing.
func (p Plan) Empty() bool {
	return p.ChartPath == "" && p.DetailsPath == "" && p.SQLitePath == ""
}

// PlanInDir builds a plan that writes every output into dir with default
// file names. format selects the chart image format.
func PlanInDir(dir, format, title string) Plan {
	if format == "" {
		format = "svg"
	}
	return Plan{
		ChartPath:   filepath.Join(dir, "chart."+format),
		ChartFormat: format,
		DetailsPath: filepath.Join(dir, "details.md"),
		SQLitePath:  filepath.Join(dir, "metrics.db"),
		Title:       title,
	}
}

// Result records the files written by ExportAll.
type Result struct {
	Files    []string
	Duration time.Duration
}

// ExportAll writes the chart, details and database outputs of plan
// concurrently. The view must have been computed from ds.
func ExportAll(ctx context.Context, ds *model.Dataset, view engine.View, plan Plan) (*Result, error) {
	if plan.Empty() {
		return nil, fmt.Errorf("export plan has no outputs")
	}
	if plan.GeneratedAt.IsZero() {
		plan.GeneratedAt = time.Now()
	}

	res := &Result{}
	stop := metrics.TimerWithCallback(metrics.Export, func(d time.Duration) { res.Duration = d })

	debug.Section("export")
	debug.Dump("plan", plan)

	g, gctx := errgroup.WithContext(ctx)

	if plan.ChartPath != "" {
		g.Go(func() error {
			err := SaveChartSnapshot(ChartSnapshotOptions{
				Path:            plan.ChartPath,
				Format:          plan.ChartFormat,
				Title:           plan.Title,
				Chart:           view.Chart,
				PlaceholderData: view.Stats.HasPlaceholderData,
			})
			if err != nil {
				return fmt.Errorf("chart: %w", err)
			}
			return nil
		})
	}

	if plan.DetailsPath != "" {
		g.Go(func() error {
			opts := MarkdownOptions{Title: plan.Title, GeneratedAt: plan.GeneratedAt}
			if err := SaveMarkdownToFile(view, opts, plan.DetailsPath); err != nil {
				return fmt.Errorf("details: %w", err)
			}
			return nil
		})
	}

	if plan.SQLitePath != "" {
		g.Go(func() error {
			exp := NewSQLiteExporter(ds)
			exp.Config.Title = plan.Title
			if err := exp.Export(gctx, plan.SQLitePath); err != nil {
				return fmt.Errorf("sqlite: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	stop()
	if err != nil {
		return nil, err
	}

	for _, p := range []string{plan.ChartPath, plan.DetailsPath, plan.SQLitePath} {
		if p != "" {
			res.Files = append(res.Files, p)
		}
	}
	debug.Log("export wrote %d files in %v", len(res.Files), res.Duration)
	return res, nil
}
