package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/opscost/pkg/engine"
)

// ChartSnapshotOptions controls chart snapshot export behaviour.
type ChartSnapshotOptions struct {
	Path            string            // Output path; format inferred from extension when Format empty
	Format          string            // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title           string            // Optional title rendered in the header
	Chart           engine.ChartModel // Projected chart to render
	PlaceholderData bool              // Render the placeholder-data banner
}

// SaveChartSnapshot renders the bar chart as a static SVG or PNG image. An
// empty chart is rendered with its placeholder text.
func SaveChartSnapshot(opts ChartSnapshotOptions) error {
	format, path, err := resolveImageFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}
	opts.Path = path

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildChartLayout(opts)

	switch format {
	case "svg":
		return renderChartSVG(opts, layout)
	case "png":
		return renderChartPNG(opts, layout)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

func resolveImageFormat(format, path string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return "", "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if path == "" {
		return "", "", fmt.Errorf("output path is required")
	}
	return format, path, nil
}

// --- layout computation ----------------------------------------------------

type barLayout struct {
	Label    string
	Value    string
	Percent  float64
	Y        float64
	BarWidth float64
}

type chartLayout struct {
	Bars        []barLayout
	Width       int
	Height      int
	Header      float64
	LabelX      float64
	BarX        float64
	BarMaxW     float64
	BarH        float64
	Title       string
	Subtitle    string
	UnitLabel   string
	SummaryLine string
	Placeholder string
	Banner      string
}

func buildChartLayout(opts ChartSnapshotOptions) chartLayout {
	const (
		width        = 900
		padding      = 32.0
		headerHeight = 120.0
		labelWidth   = 220.0
		valueWidth   = 150.0
		barHeight    = 22.0
		rowGap       = 12.0
	)

	chart := opts.Chart
	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Operation cost"
	}

	l := chartLayout{
		Width:     width,
		Header:    headerHeight,
		LabelX:    padding,
		BarX:      padding + labelWidth,
		BarMaxW:   width - 2*padding - labelWidth - valueWidth,
		BarH:      barHeight,
		Title:     title,
		Subtitle:  chart.Subtitle,
		UnitLabel: chart.UnitLabel,
	}
	if opts.PlaceholderData {
		l.Banner = "Contains placeholder data"
	}

	if chart.Empty {
		l.Placeholder = chart.Placeholder()
		l.Height = int(padding*2 + headerHeight + 60)
		return l
	}

	s := chart.Summary
	l.SummaryLine = fmt.Sprintf("n=%d  min=%s  median=%s  mean=%s  max=%s",
		s.Count, engine.FormatNumber(s.Min), engine.FormatNumber(s.Median),
		engine.FormatNumber(s.Mean), engine.FormatNumber(s.Max))

	for i, row := range chart.Rows {
		l.Bars = append(l.Bars, barLayout{
			Label:    truncate(row.DeviceLabel, 30),
			Value:    fmt.Sprintf("%s  %s", row.DisplayValue, row.PercentLabel()),
			Percent:  row.Percent,
			Y:        padding + headerHeight + float64(i)*(barHeight+rowGap),
			BarWidth: l.BarMaxW * row.Percent / 100,
		})
	}
	l.Height = int(padding*2 + headerHeight + float64(len(chart.Rows))*(barHeight+rowGap))
	if l.Height < 240 {
		l.Height = 240
	}
	return l
}

// --- rendering -------------------------------------------------------------

var (
	colorBar      = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorTrack    = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorBanner   = color.RGBA{0xc6, 0x28, 0x28, 0xff}
)

func renderChartPNG(opts ChartSnapshotOptions, l chartLayout) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(l.Width)-32, l.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawChartHeader(dc, l)

	if l.Placeholder != "" {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(l.Placeholder, float64(l.Width)/2, l.Header+50, 0.5, 0.5)
		return dc.SavePNG(opts.Path)
	}

	for _, b := range l.Bars {
		dc.SetColor(colorText)
		dc.DrawStringAnchored(b.Label, l.LabelX, b.Y+l.BarH/2, 0, 0.5)

		dc.SetColor(colorTrack)
		dc.DrawRoundedRectangle(l.BarX, b.Y, l.BarMaxW, l.BarH, 4)
		dc.Fill()
		if b.BarWidth > 0 {
			dc.SetColor(colorBar)
			dc.DrawRoundedRectangle(l.BarX, b.Y, b.BarWidth, l.BarH, 4)
			dc.Fill()
		}

		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(b.Value, l.BarX+l.BarMaxW+10, b.Y+l.BarH/2, 0, 0.5)
	}

	return dc.SavePNG(opts.Path)
}

func drawChartHeader(dc *gg.Context, l chartLayout) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(l.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(l.Subtitle, 32, 64, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("unit: %s", l.UnitLabel), 32, 84, 0, 0.5)
	if l.SummaryLine != "" {
		dc.DrawStringAnchored(l.SummaryLine, 32, 104, 0, 0.5)
	}
	if l.Banner != "" {
		dc.SetColor(colorBanner)
		dc.DrawStringAnchored(l.Banner, float64(l.Width)-32, 44, 1, 0.5)
	}
}

func renderChartSVG(opts ChartSnapshotOptions, l chartLayout) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderChartSVGToWriter(file, l)
}

func renderChartSVGToWriter(w io.Writer, l chartLayout) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, l.Width-32, int(l.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(32, 44, l.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 64, l.Subtitle, textStyle(colorSubtle, 13))
	canvas.Text(32, 84, fmt.Sprintf("unit: %s", l.UnitLabel), textStyle(colorSubtle, 13))
	if l.SummaryLine != "" {
		canvas.Text(32, 104, l.SummaryLine, textStyle(colorSubtle, 13))
	}
	if l.Banner != "" {
		canvas.Text(l.Width-32, 44, l.Banner, textStyle(colorBanner, 13)+";text-anchor:end")
	}

	if l.Placeholder != "" {
		canvas.Text(l.Width/2, int(l.Header)+50, l.Placeholder, textStyle(colorSubtle, 14)+";text-anchor:middle")
		canvas.End()
		return nil
	}

	barX, barMaxW, barH := int(l.BarX), int(l.BarMaxW), int(l.BarH)
	for _, b := range l.Bars {
		y := int(b.Y)
		canvas.Text(int(l.LabelX), y+barH/2+4, b.Label, textStyle(colorText, 12))
		canvas.Roundrect(barX, y, barMaxW, barH, 4, 4, fmt.Sprintf("fill:%s", css(colorTrack)))
		if b.BarWidth > 0 {
			canvas.Roundrect(barX, y, int(b.BarWidth), barH, 4, 4,
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:0.5", css(colorBar), css(colorStroke)))
		}
		canvas.Text(barX+barMaxW+10, y+barH/2+4, b.Value, textStyle(colorSubtle, 12))
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func textStyle(c color.RGBA, size int) string {
	return fmt.Sprintf("fill:%s;font-size:%dpx;font-family:monospace", css(c), size)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
