package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/opscost/internal/datasource"
	"github.com/vanderheijden86/opscost/pkg/config"
	"github.com/vanderheijden86/opscost/pkg/engine"
	"github.com/vanderheijden86/opscost/pkg/export"
	"github.com/vanderheijden86/opscost/pkg/metrics"
	_ "github.com/vanderheijden86/opscost/pkg/ttyguard"
	"github.com/vanderheijden86/opscost/pkg/ui"
	"github.com/vanderheijden86/opscost/pkg/version"
)

// cliOptions holds the parsed command line.
type cliOptions struct {
	dataPath   string
	configPath string
	cpuProfile string

	metric  string
	class   string
	op      string
	devices string

	robotView     bool
	exportChart   string
	exportDetails string
	exportSQLite  string
	exportWizard  bool

	help    bool
	version bool

	// set records which flags were given explicitly
	set map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, *flag.FlagSet, error) {
	opts := &cliOptions{set: make(map[string]bool)}
	fs := flag.NewFlagSet("opscost", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.dataPath, "data", "", "Dataset file (.json or .db) or directory to search")
	fs.StringVar(&opts.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/opscost/config.yaml)")
	fs.StringVar(&opts.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.StringVar(&opts.metric, "metric", "", "Initial metric family (e.g. latency, memory)")
	fs.StringVar(&opts.class, "class", "", "Initial op class filter ('all' for every class)")
	fs.StringVar(&opts.op, "op", "", "Initial op id")
	fs.StringVar(&opts.devices, "devices", "", "Comma-separated device ids to select (default: all)")
	fs.BoolVar(&opts.robotView, "robot-view", false, "Print the computed view as JSON and exit")
	fs.StringVar(&opts.exportChart, "export-chart", "", "Write the chart to an .svg or .png file and exit")
	fs.StringVar(&opts.exportDetails, "export-details", "", "Write the detail records to a Markdown file and exit")
	fs.StringVar(&opts.exportSQLite, "export-sqlite", "", "Write the dataset to a SQLite database and exit")
	fs.BoolVar(&opts.exportWizard, "export-wizard", false, "Choose export outputs interactively")
	fs.BoolVar(&opts.help, "help", false, "Show help")
	fs.BoolVar(&opts.version, "version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, fs, nil
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.cpuProfile != "" {
		f, err := os.Create(opts.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if opts.help {
		fmt.Fprintln(stdout, "Usage: opscost [options]")
		fmt.Fprintln(stdout, "\nCompare op costs across devices.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}

	if opts.version {
		fmt.Fprintf(stdout, "opscost %s\n", version.Version)
		return 0
	}

	if opts.robotView {
		// Keep loader warnings out of the JSON stream
		_ = os.Setenv("OPSCOST_ROBOT", "1")
	}

	cfg := loadConfig(opts.configPath, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, src, err := datasource.Load(ctx, loadOptions(opts, cfg))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load dataset: %v\n", err)
		return 1
	}

	session, view := engine.New(ds, cfg.EngineOptions())
	if u, ok := initialUpdate(opts); ok {
		view, err = session.OnSelectionChanged(u)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid selection: %v\n", err)
			return 2
		}
	}

	title := reportTitle(src)

	switch {
	case opts.robotView:
		if err := writeRobotView(stdout, src, view); err != nil {
			fmt.Fprintf(stderr, "Error encoding view: %v\n", err)
			return 1
		}
		return 0

	case opts.exportWizard:
		wizard := export.NewWizard(cfg.Export.Dir, cfg.Export.Format)
		wizard.SetOutput(stdout)
		res, err := wizard.Run()
		if err != nil {
			fmt.Fprintf(stderr, "Export wizard cancelled: %v\n", err)
			return 1
		}
		if res.Plan.Title == "" {
			res.Plan.Title = title
		}
		written, err := export.ExportAll(ctx, ds, view, res.Plan)
		if err != nil {
			fmt.Fprintf(stderr, "Export failed: %v\n", err)
			return 1
		}
		res.Exported = written.Files
		wizard.PrintSuccess(res)
		return 0

	case opts.exportChart != "" || opts.exportDetails != "" || opts.exportSQLite != "":
		plan := export.Plan{
			ChartPath:   opts.exportChart,
			DetailsPath: opts.exportDetails,
			SQLitePath:  opts.exportSQLite,
			Title:       title,
		}
		written, err := export.ExportAll(ctx, ds, view, plan)
		if err != nil {
			fmt.Fprintf(stderr, "Export failed: %v\n", err)
			return 1
		}
		for _, f := range written.Files {
			fmt.Fprintf(stdout, "Wrote %s\n", f)
		}
		return 0
	}

	m := ui.NewModel(session, ui.Options{
		BarWidth:    cfg.UI.BarWidth,
		ShowDetails: cfg.DetailsVisible(),
		ExportPlan:  export.PlanInDir(cfg.Export.Dir, cfg.Export.Format, title),
	})
	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(stderr, "Error running opscost: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file. Errors are reported and the defaults
// used instead.
func loadConfig(path string, stderr io.Writer) config.Config {
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", err)
	}
	return cfg
}

// loadOptions resolves where the dataset comes from. Precedence: --data,
// then data.path from config; OPSCOST_DATA_DIR overrides data.dir.
func loadOptions(opts *cliOptions, cfg config.Config) datasource.LoadOptions {
	var lo datasource.LoadOptions

	path := cfg.Data.Path
	if opts.dataPath != "" {
		path = opts.dataPath
	}
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			lo.DataDir = path
			return lo
		}
		lo.Path = path
		return lo
	}

	lo.DataDir = cfg.Data.Dir
	if env := os.Getenv("OPSCOST_DATA_DIR"); env != "" {
		lo.DataDir = env
	}
	return lo
}

// initialUpdate turns the selection flags into one engine update.
func initialUpdate(opts *cliOptions) (engine.Update, bool) {
	var u engine.Update
	changed := false

	if opts.set["metric"] {
		metric := strings.ToLower(strings.TrimSpace(opts.metric))
		u.MetricFamily = &metric
		changed = true
	}
	if opts.set["class"] {
		class := strings.TrimSpace(opts.class)
		u.OpClass = &class
		changed = true
	}
	if opts.set["op"] {
		op := strings.TrimSpace(opts.op)
		u.OpID = &op
		changed = true
	}
	if opts.set["devices"] {
		u.ClearDevices = true
		for _, id := range strings.Split(opts.devices, ",") {
			if id = strings.TrimSpace(id); id != "" {
				u.ToggleDevices = append(u.ToggleDevices, id)
			}
		}
		changed = true
	}
	return u, changed
}

func reportTitle(src datasource.DataSource) string {
	if src.Path == "" {
		return "opscost"
	}
	return "opscost: " + filepath.Base(src.Path)
}

// robotOutput is the --robot-view document.
type robotOutput struct {
	GeneratedAt string                `json:"generated_at"`
	Version     string                `json:"version"`
	Source      string                `json:"source"`
	SourceType  string                `json:"source_type"`
	View        engine.View           `json:"view"`
	Timings     []metrics.TimingStats `json:"timings,omitempty"`
}

func writeRobotView(w io.Writer, src datasource.DataSource, view engine.View) error {
	out := robotOutput{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Version:     version.Version,
		Source:      src.Path,
		SourceType:  string(src.Type),
		View:        view,
		Timings:     metrics.AllTimingStats(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set OPSCOST_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("OPSCOST_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
