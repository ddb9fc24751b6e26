package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/derktes/ir-signal-workbench/config"
	"github.com/derktes/ir-signal-workbench/logging"
	"github.com/derktes/ir-signal-workbench/server/server"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Specifies an HCL properties file")
	address := flag.String("addr", "", "Overrides the listen address, e.g. :8080")
	flag.Parse()

	props := config.Default()
	if *configPath != "" {
		var err error
		if props, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *address != "" {
		props.Server.Address = *address
	}

	logger, err := logging.New(props.Log, logging.WithFields(map[string]interface{}{"app": "ir-server"}))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := server.New(props, logger)
	if err != nil {
		logger.Fatal("Error creating server", zap.Error(err))
	}
	if err := s.Start(ctx); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
