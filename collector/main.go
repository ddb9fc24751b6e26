package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/derktes/ir-signal-workbench/collector/collector"
	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/logging"
	"go.uber.org/zap"
)

type flagSet struct {
	config     *string
	serialPort *string
	baudRate   *int
	serverURL  *string
	cid        *string
	output     *string
}

func (fs *flagSet) parse() {
	fs.config = flag.String("config", "", "Specifies an HCL properties file")
	fs.serialPort = flag.String("serial", "", "Specifies the serial port in the form /dev/xxx")
	fs.baudRate = flag.Int("baud", 0, "Specifies the baud rate of the serial port")
	fs.serverURL = flag.String("server", "", "Specifies the frame endpoint of the server")
	fs.cid = flag.String("collectorId", "", "Specifies the id of this instance of collector")
	fs.output = flag.String("output", "frames.tsv", "Specifies where recorded frames are saved on exit")
	flag.Parse()
}

// apply overrides props with every flag that was given.
func (fs *flagSet) apply(props *config.Properties) {
	if *fs.serialPort != "" {
		props.Collector.Serial = *fs.serialPort
	}
	if *fs.baudRate > 0 {
		props.Collector.Baud = *fs.baudRate
	}
	if *fs.serverURL != "" {
		props.Collector.ServerURL = *fs.serverURL
	}
	if *fs.cid != "" {
		props.Collector.CollectorID = *fs.cid
	}
}

func main() {
	var fs flagSet
	fs.parse()

	props := config.Default()
	if *fs.config != "" {
		var err error
		if props, err = config.Load(*fs.config); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	fs.apply(&props)
	if props.Collector.Serial == "" || props.Collector.CollectorID == "" {
		fmt.Fprintln(os.Stderr, "Serial port and collector ID must be specified")
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.New(props.Log, logging.WithFields(map[string]interface{}{"app": "ir-collector"}))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logger.Info("Press Ctrl-C to exit program")
	if err := collector.Start(ctx, props, *fs.output, logger); err != nil {
		logger.Fatal("Collector failed", zap.Error(err))
	}
}
