package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// WizardConfig holds the answers collected by the export wizard.
type WizardConfig struct {
	IncludeChart   bool   `json:"include_chart"`
	ChartFormat    string `json:"chart_format"` // "svg" or "png"
	IncludeDetails bool   `json:"include_details"`
	IncludeSQLite  bool   `json:"include_sqlite"`
	Title          string `json:"title"`
	OutputDir      string `json:"output_dir"`
}

// Plan converts the answers into an export plan.
func (c *WizardConfig) Plan() Plan {
	full := PlanInDir(c.OutputDir, c.ChartFormat, c.Title)
	p := Plan{Title: c.Title}
	if c.IncludeChart {
		p.ChartPath = full.ChartPath
		p.ChartFormat = full.ChartFormat
	}
	if c.IncludeDetails {
		p.DetailsPath = full.DetailsPath
	}
	if c.IncludeSQLite {
		p.SQLitePath = full.SQLitePath
	}
	return p
}

// WizardResult contains the result of running the wizard.
type WizardResult struct {
	Plan     Plan
	Reused   bool // saved answers were reused
	Exported []string
}

// Wizard handles the interactive export flow.
type Wizard struct {
	config *WizardConfig
	out    io.Writer
}

// NewWizard creates a new export wizard with defaultDir as the suggested
// output directory.
func NewWizard(defaultDir, defaultFormat string) *Wizard {
	if defaultDir == "" {
		defaultDir = "opscost-export"
	}
	if defaultFormat == "" {
		defaultFormat = "svg"
	}
	return &Wizard{
		config: &WizardConfig{
			IncludeChart:   true,
			ChartFormat:    defaultFormat,
			IncludeDetails: true,
			OutputDir:      defaultDir,
		},
		out: os.Stdout,
	}
}

// SetOutput redirects wizard messages.
func (w *Wizard) SetOutput(out io.Writer) {
	w.out = out
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// offerSavedConfig asks if the user wants to reuse previously saved answers
func (w *Wizard) offerSavedConfig(saved *WizardConfig) (bool, error) {
	fmt.Fprintln(w.out, "Found previous export configuration:")
	fmt.Fprintln(w.out, "────────────────────────────────────")
	fmt.Fprint(w.out, describeConfig(saved))
	fmt.Fprintln(w.out, "")

	useSaved := true
	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Export again with these settings?").
				Description("Select No to reconfigure").
				Value(&useSaved).
				Affirmative("Yes, export").
				Negative("No, reconfigure"),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}

	fmt.Fprintln(w.out, "")
	return useSaved, nil
}

func describeConfig(c *WizardConfig) string {
	var sb strings.Builder
	var outputs []string
	if c.IncludeChart {
		outputs = append(outputs, "chart ("+c.ChartFormat+")")
	}
	if c.IncludeDetails {
		outputs = append(outputs, "details (md)")
	}
	if c.IncludeSQLite {
		outputs = append(outputs, "dataset (sqlite)")
	}
	fmt.Fprintf(&sb, "  Outputs:   %s\n", strings.Join(outputs, ", "))
	fmt.Fprintf(&sb, "  Directory: %s\n", c.OutputDir)
	if c.Title != "" {
		fmt.Fprintf(&sb, "  Title:     %s\n", c.Title)
	}
	return sb.String()
}

// Run executes the interactive wizard flow.
func (w *Wizard) Run() (*WizardResult, error) {
	w.printBanner()

	saved, err := LoadWizardConfig()
	if err == nil && saved != nil && saved.OutputDir != "" {
		useSaved, err := w.offerSavedConfig(saved)
		if err != nil {
			return nil, err
		}
		if useSaved {
			w.config = saved
			if err := w.checkDestination(); err != nil {
				return nil, err
			}
			return &WizardResult{Plan: w.config.Plan(), Reused: true}, nil
		}
	}

	// Step 1: outputs
	if err := w.collectOutputs(); err != nil {
		return nil, err
	}

	// Step 2: destination
	if err := w.collectDestination(); err != nil {
		return nil, err
	}

	// Step 3: destination check
	if err := w.checkDestination(); err != nil {
		return nil, err
	}

	if err := SaveWizardConfig(w.config); err != nil {
		fmt.Fprintf(w.out, "Warning: could not save wizard settings: %v\n", err)
	}

	// Writing the files is left to the caller.
	return &WizardResult{Plan: w.config.Plan()}, nil
}

// GetConfig returns the collected wizard configuration.
func (w *Wizard) GetConfig() *WizardConfig {
	return w.config
}

func (w *Wizard) printBanner() {
	fmt.Fprintln(w.out, "")
	fmt.Fprintln(w.out, "╔══════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w.out, "║           opscost → Export Wizard                                ║")
	fmt.Fprintln(w.out, "╠══════════════════════════════════════════════════════════════════╣")
	fmt.Fprintln(w.out, "║  This wizard writes the current selection to disk as:            ║")
	fmt.Fprintln(w.out, "║    • a chart image (SVG or PNG)                                  ║")
	fmt.Fprintln(w.out, "║    • a markdown report of the matching measurements              ║")
	fmt.Fprintln(w.out, "║    • a SQLite copy of the dataset                                ║")
	fmt.Fprintln(w.out, "║                                                                  ║")
	fmt.Fprintln(w.out, "║  Press Ctrl+C anytime to cancel                                  ║")
	fmt.Fprintln(w.out, "╚══════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w.out, "")
}

func (w *Wizard) collectOutputs() error {
	fmt.Fprintln(w.out, "Step 1: Outputs")
	fmt.Fprintln(w.out, "────────────────────────────")

	defaultTitle := "Operation cost report"
	title := w.config.Title
	if title == "" {
		title = defaultTitle
	}

	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Export the chart?").
				Value(&w.config.IncludeChart),
			huh.NewSelect[string]().
				Title("Chart format").
				Options(
					huh.NewOption("SVG (scalable)", "svg"),
					huh.NewOption("PNG (raster)", "png"),
				).
				Value(&w.config.ChartFormat),
			huh.NewConfirm().
				Title("Export measurement details as markdown?").
				Value(&w.config.IncludeDetails),
			huh.NewConfirm().
				Title("Export the dataset to SQLite?").
				Description("The database can be loaded again with --data").
				Value(&w.config.IncludeSQLite),
			huh.NewInput().
				Title("Report title").
				Value(&title).
				Placeholder(defaultTitle),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	if title != "" {
		w.config.Title = title
	} else {
		w.config.Title = defaultTitle
	}
	if !w.config.IncludeChart && !w.config.IncludeDetails && !w.config.IncludeSQLite {
		return fmt.Errorf("no outputs selected")
	}

	fmt.Fprintln(w.out, "")
	return nil
}

func (w *Wizard) collectDestination() error {
	fmt.Fprintln(w.out, "Step 2: Destination")
	fmt.Fprintln(w.out, "────────────────────────────")

	suggested := w.config.OutputDir
	dir := suggested

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output directory").
				Value(&dir).
				Placeholder(suggested),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	if dir != "" {
		w.config.OutputDir = dir
	} else {
		w.config.OutputDir = suggested
	}

	fmt.Fprintln(w.out, "")
	return nil
}

func (w *Wizard) checkDestination() error {
	fmt.Fprintln(w.out, "Step 3: Destination Check")
	fmt.Fprintln(w.out, "────────────────────────────")

	if err := ensureWritableDir(w.config.OutputDir); err != nil {
		fmt.Fprintf(w.out, "✗ %s is not writable\n", w.config.OutputDir)
		return err
	}
	fmt.Fprintf(w.out, "✓ %s is writable\n", w.config.OutputDir)

	plan := w.config.Plan()
	existing := 0
	for _, p := range []string{plan.ChartPath, plan.DetailsPath, plan.SQLitePath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			existing++
		}
	}
	if existing > 0 {
		fmt.Fprintf(w.out, "! %d existing file(s) will be overwritten\n", existing)
	}

	fmt.Fprintln(w.out, "")
	return nil
}

// ensureWritableDir creates dir if needed and probes it with a temp file.
func ensureWritableDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".opscost-probe-*")
	if err != nil {
		return fmt.Errorf("output dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// PrintSuccess prints the boxed summary after the export finished.
func (w *Wizard) PrintSuccess(result *WizardResult) {
	lines := []string{"Export Complete!"}
	for _, f := range result.Exported {
		lines = append(lines, "Wrote: "+f)
	}
	if result.Plan.SQLitePath != "" {
		lines = append(lines, "")
		lines = append(lines, "To browse the exported dataset:")
		lines = append(lines, "  opscost --data "+result.Plan.SQLitePath)
	}

	width := 0
	for _, line := range lines {
		if lw := runewidth.StringWidth(line); lw > width {
			width = lw
		}
	}
	width += 4
	if width < 50 {
		width = 50
	}

	bar := strings.Repeat("═", width)
	fmt.Fprintln(w.out, "")
	fmt.Fprintln(w.out, "╔"+bar+"╗")

	title := lines[0]
	padding := (width - runewidth.StringWidth(title)) / 2
	fmt.Fprintf(w.out, "║%s%s%s║\n", strings.Repeat(" ", padding), title, strings.Repeat(" ", width-padding-runewidth.StringWidth(title)))
	fmt.Fprintln(w.out, "╠"+bar+"╣")

	for _, line := range lines[1:] {
		fmt.Fprintf(w.out, "║  %s ║\n", runewidth.FillRight(line, width-3))
	}

	fmt.Fprintln(w.out, "╚"+bar+"╝")
	fmt.Fprintln(w.out, "")
}

// WizardConfigPath returns the path to the saved wizard answers.
func WizardConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "opscost", "export-wizard.json")
}

// LoadWizardConfig loads previously saved wizard answers. It returns nil
// without error when nothing was saved.
func LoadWizardConfig() (*WizardConfig, error) {
	path := WizardConfigPath()
	if path == "" {
		return nil, fmt.Errorf("could not determine config path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No saved config
		}
		return nil, err
	}

	var config WizardConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveWizardConfig saves wizard answers for future runs.
func SaveWizardConfig(config *WizardConfig) error {
	path := WizardConfigPath()
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
