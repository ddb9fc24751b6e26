// Package collector reads JSON frames from an IR receiver on a serial port,
// tags them with the collector id, publishes them to the server and keeps a
// local table of everything it saw.
package collector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/derktes/ir-signal-workbench/analyzer"
	"github.com/derktes/ir-signal-workbench/capture"
	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/irsignal"
	"github.com/derktes/ir-signal-workbench/logging"
	"github.com/derktes/ir-signal-workbench/table"
	"github.com/tarm/serial"
	"go.uber.org/zap"
)

type Collector struct {
	id        string
	publisher *publishClient
	nec       *analyzer.NEC
	opts      config.Analyzer
	logger    *zap.Logger

	mu     sync.Mutex
	frames *table.Table
}

// New builds a collector publishing to props.Collector.ServerURL. An empty
// URL disables publishing.
func New(props config.Properties, logger *zap.Logger) (*Collector, error) {
	logger = logging.OrNop(logger)
	if props.Collector.CollectorID == "" {
		return nil, errors.New("collector ID not specified")
	}
	c := &Collector{
		id:     props.Collector.CollectorID,
		nec:    analyzer.NewNEC(logger),
		opts:   props.Analyzer,
		logger: logger.With(zap.String("collectorId", props.Collector.CollectorID)),
		frames: table.Empty(irsignal.Flat),
	}
	if props.Collector.ServerURL != "" {
		pc, err := newPublishClient(props.Collector.ServerURL, c.logger)
		if err != nil {
			return nil, err
		}
		c.publisher = pc
	}
	return c, nil
}

// Run handles one frame per line of r until r is exhausted or ctx is done.
// Publishing runs in the background; Run waits for it before returning.
func (c *Collector) Run(ctx context.Context, r io.Reader) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	lineScanner := bufio.NewScanner(r)
	lineScanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for lineScanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		tagged, ok := c.handleLine(lineScanner.Bytes())
		if !ok || c.publisher == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.publisher.publish(ctx, tagged); err != nil {
				c.logger.Warn("Publishing frame failed", zap.Error(err))
			}
		}()
	}
	if err := lineScanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// handleLine parses one line, retags it and records it. Receivers print
// diagnostics between frames, so unparseable lines are logged and skipped.
func (c *Collector) handleLine(line []byte) (capture.TaggedFrame, bool) {
	c.logger.Debug("Received frame", zap.ByteString("line", line))
	tagged, err := capture.ParseTaggedFrame(line)
	if err != nil {
		c.logger.Info("Skipping line", zap.Error(err))
		return capture.TaggedFrame{}, false
	}
	tagged.CollectorID = c.id
	seq, err := tagged.Frame.Sequence()
	if err != nil {
		c.logger.Info("Skipping frame", zap.Error(err))
		return capture.TaggedFrame{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	name := fmt.Sprintf("frame_%d", c.frames.RowCount()+1)
	if match, ok := c.nec.DecodeSequence(seq, c.opts.Frequency, c.opts); ok {
		name = match.Protocol + "_" + match.Value
	}
	if _, err := c.frames.AddRow(name, irsignal.NewFlatSignal(seq)); err != nil {
		c.logger.Error("Recording frame failed", zap.Error(err))
		return capture.TaggedFrame{}, false
	}
	c.logger.Info("Recorded frame", zap.String("name", name), zap.Int("frames", c.frames.RowCount()))
	return tagged, true
}

func (c *Collector) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames.RowCount()
}

// Save writes every recorded frame as a tab separated export, the same
// format the line importer reads back.
func (c *Collector) Save(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames.Export(w, "\t")
}

// Start reads the configured serial port until ctx is cancelled, then
// saves the recorded frames to outputPath when it is not empty.
func Start(ctx context.Context, props config.Properties, outputPath string, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	c, err := New(props, logger)
	if err != nil {
		return err
	}
	if _, err := os.Stat(props.Collector.Serial); err != nil {
		return fmt.Errorf("checking serial port: %w", err)
	}
	port, err := serial.OpenPort(&serial.Config{Name: props.Collector.Serial, Baud: props.Collector.Baud})
	if err != nil {
		return fmt.Errorf("opening serial port: %w", err)
	}
	logger.Info("Opened serial port", zap.String("port", props.Collector.Serial), zap.Int("baud", props.Collector.Baud))
	if c.publisher != nil {
		logger.Info("Frames will be published", zap.String("url", c.publisher.serverURL))
	}

	go func() {
		<-ctx.Done()
		logger.Info("Closing serial port")
		port.Close()
	}()
	runErr := c.Run(ctx, port)

	if outputPath == "" {
		return runErr
	}
	logger.Info("Saving data", zap.String("path", outputPath), zap.Int("frames", c.FrameCount()))
	file, err := os.Create(outputPath)
	if err != nil {
		return errors.Join(runErr, err)
	}
	if err := c.Save(file); err != nil {
		file.Close()
		return errors.Join(runErr, err)
	}
	return errors.Join(runErr, file.Close())
}
