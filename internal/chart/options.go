package chart

import (
	"fmt"
	"os"
	"time"

	"github.com/golang/freetype/truetype"

	apperrors "twcpi/internal/errors"
)

// Options holds every rendering setting. A Renderer copies them at
// construction; nothing here is global.
type Options struct {
	Width  int
	Height int
	DPI    float64
	// FontPath is a TrueType font with CJK glyphs. Empty uses the go-chart
	// default font, which draws Chinese labels as boxes.
	FontPath string
	// TitleTemplate has one %s verb, filled with the base month as YYYY-MM
	TitleTemplate string
	YAxisLabel    string
	// TickMonths is the month interval between x-axis ticks
	TickMonths int
	// BaseLine draws the horizontal reference line at 100
	BaseLine bool
}

// DefaultOptions matches an 11x6 inch figure at 300 DPI
func DefaultOptions() Options {
	return Options{
		Width:         3300,
		Height:        1800,
		DPI:           300,
		TitleTemplate: "台灣 CPI：主要類別走勢 (基準期：%s=100)",
		YAxisLabel:    "指數化數值",
		TickMonths:    6,
		BaseLine:      true,
	}
}

// withDefaults fills zero fields from DefaultOptions
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.DPI <= 0 {
		o.DPI = d.DPI
	}
	if o.TitleTemplate == "" {
		o.TitleTemplate = d.TitleTemplate
	}
	if o.TickMonths <= 0 {
		o.TickMonths = d.TickMonths
	}
	return o
}

// Title renders the title template for a base month
func (o Options) Title(base time.Time) string {
	return fmt.Sprintf(o.TitleTemplate, base.Format("2006-01"))
}

// loadFont reads and parses a TrueType font file
func loadFont(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("cannot read font %s", path), err)
	}
	font, err := truetype.Parse(data)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("cannot parse font %s", path), err)
	}
	return font, nil
}
