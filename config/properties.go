// Package config holds the Properties value that replaces the process-wide
// preferences object: import options, decoder options, logging, and the
// addresses used by the server and the serial collector.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Default values
const (
	DefaultEncoding          = "UTF-8"
	DefaultCommentPrefix     = "#"
	DefaultTrailingGap       = 20000.0
	DefaultMaxDecodedBytes   = 64 << 20
	DefaultAbsoluteTolerance = 150.0
	DefaultRelativeTolerance = 0.2
	DefaultFrequency         = 38000.0
	DefaultBitDirection      = BitDirectionLSB
	DefaultMaxParameterWidth = 8
	DefaultRadix             = 16
	DefaultMaxRoundingError  = 0.3
	DefaultMaxUnits          = 30.0
	DefaultMaxMicroSeconds   = 10000.0
	DefaultLogLevel          = "info"
	DefaultServerAddress     = ":8080"
	DefaultBaudRate          = 9600
	DefaultServerURL         = "http://localhost:8080/ir/frame"
)

type BitDirection string

const (
	BitDirectionLSB BitDirection = "lsb"
	BitDirectionMSB BitDirection = "msb"
)

// Import controls how capture files are read and parsed.
type Import struct {
	Encoding      string
	CommentPrefix string
	// TrailingGap is appended to captures that end on a mark. Zero disables
	// the repair and such captures fail as odd length.
	TrailingGap float64
	// Strict fails an import when any line of a line-oriented file is bad.
	Strict bool
	// MaxDecodedBytes bounds a capture after decompression.
	MaxDecodedBytes int64
}

// Burst holds the burst-merging tolerances handed to the decoder.
type Burst struct {
	MaxRoundingError float64
	MaxUnits         float64
	MaxMicroSeconds  float64
}

// Analyzer is the option bundle consumed by the decoding collaborator.
type Analyzer struct {
	RepeatFinder      bool
	AbsoluteTolerance float64
	RelativeTolerance float64
	// Frequency is used when an import carried no usable mean frequency.
	Frequency         float64
	TimeBase          string
	BitDirection      BitDirection
	Extent            bool
	ParameterWidths   []int
	MaxParameterWidth int
	Invert            bool
	Radix             int
	Burst             Burst
}

type Log struct {
	Level       string
	Development bool
}

type Server struct {
	Address string
}

type Collector struct {
	Serial      string
	Baud        int
	ServerURL   string
	CollectorID string
}

// Properties is the complete configuration value, passed explicitly to the
// components that need it.
type Properties struct {
	Import    Import
	Analyzer  Analyzer
	Log       Log
	Server    Server
	Collector Collector
}

// Default returns the built-in configuration.
func Default() Properties {
	return Properties{
		Import: Import{
			Encoding:        DefaultEncoding,
			CommentPrefix:   DefaultCommentPrefix,
			TrailingGap:     DefaultTrailingGap,
			MaxDecodedBytes: DefaultMaxDecodedBytes,
		},
		Analyzer: Analyzer{
			RepeatFinder:      true,
			AbsoluteTolerance: DefaultAbsoluteTolerance,
			RelativeTolerance: DefaultRelativeTolerance,
			Frequency:         DefaultFrequency,
			BitDirection:      DefaultBitDirection,
			MaxParameterWidth: DefaultMaxParameterWidth,
			Radix:             DefaultRadix,
			Burst: Burst{
				MaxRoundingError: DefaultMaxRoundingError,
				MaxUnits:         DefaultMaxUnits,
				MaxMicroSeconds:  DefaultMaxMicroSeconds,
			},
		},
		Log:    Log{Level: DefaultLogLevel},
		Server: Server{Address: DefaultServerAddress},
		Collector: Collector{
			Baud:      DefaultBaudRate,
			ServerURL: DefaultServerURL,
		},
	}
}

// Validate checks the values that downstream code cannot repair.
func (p Properties) Validate() error {
	var errs []error
	if p.Import.CommentPrefix == "" {
		errs = append(errs, errors.New("import.comment_prefix cannot be empty"))
	}
	if p.Import.TrailingGap < 0 {
		errs = append(errs, fmt.Errorf("import.trailing_gap must not be negative, got %v", p.Import.TrailingGap))
	}
	if p.Import.MaxDecodedBytes <= 0 {
		errs = append(errs, fmt.Errorf("import.max_decoded_bytes must be positive, got %d", p.Import.MaxDecodedBytes))
	}
	a := p.Analyzer
	switch a.BitDirection {
	case BitDirectionLSB, BitDirectionMSB:
	default:
		errs = append(errs, fmt.Errorf("analyzer.bit_direction must be lsb or msb, got %q", a.BitDirection))
	}
	if a.AbsoluteTolerance < 0 {
		errs = append(errs, fmt.Errorf("analyzer.absolute_tolerance must not be negative, got %v", a.AbsoluteTolerance))
	}
	if a.RelativeTolerance < 0 || a.RelativeTolerance >= 1 {
		errs = append(errs, fmt.Errorf("analyzer.relative_tolerance must be in [0,1), got %v", a.RelativeTolerance))
	}
	if a.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("analyzer.frequency must be positive, got %v", a.Frequency))
	}
	if a.MaxParameterWidth < 1 || a.MaxParameterWidth > 64 {
		errs = append(errs, fmt.Errorf("analyzer.max_parameter_width must be in [1,64], got %d", a.MaxParameterWidth))
	}
	for _, w := range a.ParameterWidths {
		if w < 1 || w > a.MaxParameterWidth {
			errs = append(errs, fmt.Errorf("analyzer.parameter_widths entry %d outside [1,%d]", w, a.MaxParameterWidth))
		}
	}
	switch a.Radix {
	case 2, 8, 10, 16:
	default:
		errs = append(errs, fmt.Errorf("analyzer.radix must be 2, 8, 10 or 16, got %d", a.Radix))
	}
	switch strings.ToLower(p.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", p.Log.Level))
	}
	return errors.Join(errs...)
}
