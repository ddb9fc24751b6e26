package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/derktes/ir-signal-workbench/analyzer"
	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/importer"
	"github.com/derktes/ir-signal-workbench/logging"
	"github.com/derktes/ir-signal-workbench/source"
	"github.com/derktes/ir-signal-workbench/table"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Specifies an HCL properties file")
	encoding := flag.String("encoding", "", "Overrides the character set of the input files")
	export := flag.String("export", "tab", "Separator of the exported rows: tab or comma")
	analyze := flag.Bool("analyze", false, "Decode every row instead of exporting it")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	props := config.Default()
	if *configPath != "" {
		var err error
		if props, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *encoding != "" {
		props.Import.Encoding = *encoding
	}
	sep := "\t"
	switch *export {
	case "tab":
	case "comma":
		sep = ","
	default:
		fmt.Fprintf(os.Stderr, "-export must be tab or comma, got %q\n", *export)
		os.Exit(2)
	}

	logger, err := logging.New(props.Log, logging.WithOutput("stderr"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	failed := false
	for _, path := range flag.Args() {
		if err := run(out, path, sep, *analyze, props, logger); err != nil {
			logger.Error("Import failed", zap.String("path", path), zap.Error(err))
			failed = true
		}
	}
	if failed {
		out.Flush()
		os.Exit(1)
	}
}

func run(w io.Writer, path, sep string, analyze bool, props config.Properties, logger *zap.Logger) error {
	reader, err := source.NewReader(props.Import.Encoding, logger, source.WithMaxDecodedBytes(props.Import.MaxDecodedBytes))
	if err != nil {
		return err
	}
	text, err := reader.ReadFile(path)
	if err != nil {
		return err
	}
	result, err := importer.NewPipeline(props.Import, logger).Import(text, path)
	if err != nil {
		return err
	}
	t := table.New(result.Collection)
	if !analyze {
		return t.Export(w, sep)
	}

	frequency := 0.0
	if result.HasFrequency {
		frequency = result.Frequency
	}
	report, err := analyzer.NewNEC(logger).Analyze(context.Background(), t.Sequences(), frequency, props.Analyzer)
	if err != nil {
		return err
	}
	for _, a := range report.Analyses {
		decoded := "-"
		if !a.NoMatch() {
			decoded = a.Match.Text
		}
		fmt.Fprintf(w, "%s%s%s%s%s\n", a.Name, sep, a.Timings, sep, decoded)
	}
	for _, name := range slices.Sorted(maps.Keys(report.BitUsage)) {
		fmt.Fprintf(w, "# %s bit usage %s\n", name, analyzer.BitUsageString(report.BitUsage[name]))
	}
	return nil
}
