package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclFile mirrors Properties for decoding. Every attribute is optional and a
// nil pointer keeps the default.
type hclFile struct {
	Import    *hclImport    `hcl:"import,block"`
	Analyzer  *hclAnalyzer  `hcl:"analyzer,block"`
	Log       *hclLog       `hcl:"log,block"`
	Server    *hclServer    `hcl:"server,block"`
	Collector *hclCollector `hcl:"collector,block"`
}

type hclImport struct {
	Encoding        *string  `hcl:"encoding,optional"`
	CommentPrefix   *string  `hcl:"comment_prefix,optional"`
	TrailingGap     *float64 `hcl:"trailing_gap,optional"`
	Strict          *bool    `hcl:"strict,optional"`
	MaxDecodedBytes *int64   `hcl:"max_decoded_bytes,optional"`
}

type hclBurst struct {
	MaxRoundingError *float64 `hcl:"max_rounding_error,optional"`
	MaxUnits         *float64 `hcl:"max_units,optional"`
	MaxMicroSeconds  *float64 `hcl:"max_microseconds,optional"`
}

type hclAnalyzer struct {
	RepeatFinder      *bool     `hcl:"repeat_finder,optional"`
	AbsoluteTolerance *float64  `hcl:"absolute_tolerance,optional"`
	RelativeTolerance *float64  `hcl:"relative_tolerance,optional"`
	Frequency         *float64  `hcl:"frequency,optional"`
	TimeBase          *string   `hcl:"time_base,optional"`
	BitDirection      *string   `hcl:"bit_direction,optional"`
	Extent            *bool     `hcl:"extent,optional"`
	ParameterWidths   *[]int    `hcl:"parameter_widths,optional"`
	MaxParameterWidth *int      `hcl:"max_parameter_width,optional"`
	Invert            *bool     `hcl:"invert,optional"`
	Radix             *int      `hcl:"radix,optional"`
	Burst             *hclBurst `hcl:"burst,block"`
}

type hclLog struct {
	Level       *string `hcl:"level,optional"`
	Development *bool   `hcl:"development,optional"`
}

type hclServer struct {
	Address *string `hcl:"address,optional"`
}

type hclCollector struct {
	Serial      *string `hcl:"serial,optional"`
	Baud        *int    `hcl:"baud,optional"`
	ServerURL   *string `hcl:"server_url,optional"`
	CollectorID *string `hcl:"collector_id,optional"`
}

// Load reads an HCL properties file on top of Default and validates it.
func Load(path string) (Properties, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Properties{}, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	return decode(file.Body, path)
}

// Parse is Load for in-memory content; filename is only used in diagnostics.
func Parse(src []byte, filename string) (Properties, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Properties{}, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}
	return decode(file.Body, filename)
}

func decode(body hcl.Body, filename string) (Properties, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return Properties{}, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}
	props := Default()
	parsed.apply(&props)
	if err := props.Validate(); err != nil {
		return Properties{}, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return props, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (f *hclFile) apply(p *Properties) {
	if i := f.Import; i != nil {
		set(&p.Import.Encoding, i.Encoding)
		set(&p.Import.CommentPrefix, i.CommentPrefix)
		set(&p.Import.TrailingGap, i.TrailingGap)
		set(&p.Import.Strict, i.Strict)
		set(&p.Import.MaxDecodedBytes, i.MaxDecodedBytes)
	}
	if a := f.Analyzer; a != nil {
		set(&p.Analyzer.RepeatFinder, a.RepeatFinder)
		set(&p.Analyzer.AbsoluteTolerance, a.AbsoluteTolerance)
		set(&p.Analyzer.RelativeTolerance, a.RelativeTolerance)
		set(&p.Analyzer.Frequency, a.Frequency)
		set(&p.Analyzer.TimeBase, a.TimeBase)
		if a.BitDirection != nil {
			p.Analyzer.BitDirection = BitDirection(*a.BitDirection)
		}
		set(&p.Analyzer.Extent, a.Extent)
		set(&p.Analyzer.ParameterWidths, a.ParameterWidths)
		set(&p.Analyzer.MaxParameterWidth, a.MaxParameterWidth)
		set(&p.Analyzer.Invert, a.Invert)
		set(&p.Analyzer.Radix, a.Radix)
		if b := a.Burst; b != nil {
			set(&p.Analyzer.Burst.MaxRoundingError, b.MaxRoundingError)
			set(&p.Analyzer.Burst.MaxUnits, b.MaxUnits)
			set(&p.Analyzer.Burst.MaxMicroSeconds, b.MaxMicroSeconds)
		}
	}
	if l := f.Log; l != nil {
		set(&p.Log.Level, l.Level)
		set(&p.Log.Development, l.Development)
	}
	if s := f.Server; s != nil {
		set(&p.Server.Address, s.Address)
	}
	if c := f.Collector; c != nil {
		set(&p.Collector.Serial, c.Serial)
		set(&p.Collector.Baud, c.Baud)
		set(&p.Collector.ServerURL, c.ServerURL)
		set(&p.Collector.CollectorID, c.CollectorID)
	}
}
