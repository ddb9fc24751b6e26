package importer

import (
	"errors"
	"fmt"

	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/logging"
	"go.uber.org/zap"
)

// Pipeline tries parsers in order. Only a FormatMismatchError moves on to
// the next parser; any other failure is a defect in a recognized file and is
// returned.
type Pipeline struct {
	parsers []Parser
	strict  bool
	logger  *zap.Logger
}

// NewPipeline builds the standard pipeline: ICT captures first, then
// line-oriented files through the multi-format interpreter.
func NewPipeline(opts config.Import, logger *zap.Logger) *Pipeline {
	p := NewPipelineWithParsers(logger,
		NewICTParser(opts.TrailingGap),
		NewLineParser(MultiInterpreter(opts.TrailingGap), opts.CommentPrefix),
	)
	p.strict = opts.Strict
	return p
}

func NewPipelineWithParsers(logger *zap.Logger, parsers ...Parser) *Pipeline {
	return &Pipeline{parsers: parsers, logger: logging.OrNop(logger)}
}

// Import parses already-decoded text. path is used for diagnostics only.
func (p *Pipeline) Import(text, path string) (*Result, error) {
	var attempts []error
	for _, parser := range p.parsers {
		result, err := parser.Parse(text, path)
		if err != nil {
			var mismatch *FormatMismatchError
			if errors.As(err, &mismatch) {
				p.logger.Debug("Format mismatch, trying next parser",
					zap.String("path", path), zap.String("format", parser.Format()), zap.String("reason", mismatch.Reason))
				attempts = append(attempts, err)
				continue
			}
			if len(attempts) == 0 {
				return nil, err
			}
			return nil, &ImportError{Path: path, Attempts: append(attempts, err)}
		}
		if err := p.checkSkipped(result); err != nil {
			return nil, err
		}
		result.Frequency, result.HasFrequency = MeanFrequency(result.Collection)
		p.logger.Info("Imported signals",
			zap.String("path", path),
			zap.String("format", result.Format),
			zap.Int("entries", result.Collection.Len()),
			zap.Int("skipped", len(result.Skipped)),
			zap.Bool("hasFrequency", result.HasFrequency),
			zap.Float64("frequency", result.Frequency))
		return result, nil
	}
	if len(attempts) == 0 {
		return nil, fmt.Errorf("%s: no parsers configured", path)
	}
	return nil, &ImportError{Path: path, Attempts: attempts}
}

func (p *Pipeline) checkSkipped(result *Result) error {
	if len(result.Skipped) == 0 {
		return nil
	}
	for _, s := range result.Skipped {
		p.logger.Warn("Skipping unparseable line",
			zap.String("path", s.Path), zap.Int("line", s.Line), zap.String("name", s.Name), zap.Error(s.Err))
	}
	if !p.strict {
		return nil
	}
	errs := make([]error, 0, len(result.Skipped)+1)
	errs = append(errs, fmt.Errorf("%s: %d %w", result.Path, len(result.Skipped), ErrSkippedLines))
	for _, s := range result.Skipped {
		errs = append(errs, s)
	}
	return errors.Join(errs...)
}
