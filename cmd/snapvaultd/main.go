// Command snapvaultd runs the snapvault background daemon: the capture
// session, collection storage, and export worker, controlled over a Unix
// socket by the snapvault CLI.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"snapvault/internal/config"
	"snapvault/internal/daemon"
	"snapvault/internal/ipc"
	"snapvault/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := daemon.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("snapvaultd shutting down")
}
