package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/lenden-pay/lenden/internal/adminops"
	"github.com/lenden-pay/lenden/internal/api"
	"github.com/lenden-pay/lenden/internal/config"
	"github.com/lenden-pay/lenden/internal/directory"
	"github.com/lenden-pay/lenden/internal/flows"
	"github.com/lenden-pay/lenden/internal/history"
	"github.com/lenden-pay/lenden/internal/logging"
	"github.com/lenden-pay/lenden/internal/session"
	"github.com/lenden-pay/lenden/internal/ui"
)

var (
	configPath = kingpin.Flag("config", "Path to the yaml configuration file.").Short('c').String()
	serverURL  = kingpin.Flag("server", "Backend origin, overrides the configured one.").Short('s').String()
)

func main() {
	kingpin.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Client.ServerURL = *serverURL
	}

	logger := logging.NewWithWriter(os.Stderr, cfg.Logger.Level)

	client, err := api.New(cfg.Client.ServerURL, cfg.Client.Timeout(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build api client: %v\n", err)
		os.Exit(1)
	}

	sessions := session.NewStore(client, logger)
	dir := directory.NewService(client)
	fl := flows.NewService(client, sessions, dir)
	hist := history.NewService(client)
	admin := adminops.NewService(client)

	app := ui.New(sessions, fl, dir, hist, admin, bufio.NewReader(os.Stdin), os.Stdout)
	app.Run(context.Background())
}
