// Command stratumworker is a thin example wiring environment variables
// into a pool connection: it connects, logs every job it receives, and
// exits if the connection cannot be established; after that it runs
// until interrupted (SIGINT/SIGTERM). It does
// no hashing and submits no shares; it exists to exercise the client
// façade end to end, not as a real miner.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"stratumclient"
	"stratumclient/config"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	entry := logrus.NewEntry(log)

	params := stratumclient.ConnectionParams{
		Hostname:   cfg.Hostname,
		Port:       cfg.Port,
		WorkerName: cfg.WorkerName,
		Password:   cfg.Password,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.Timeout,
		Logger:     entry,
	}

	if cfg.TorEnabled {
		dialer, err := proxy.SOCKS5("tcp", cfg.TorProxyAddr, nil, proxy.Direct)
		if err != nil {
			entry.WithError(err).Fatal("failed to build SOCKS5 dialer")
		}
		params.Proxy = dialer
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := stratumclient.Connect(ctx, params)
	if err != nil {
		entry.WithError(err).Fatal("failed to connect to pool")
	}
	defer client.Close()

	entry.Info("connected and subscribed, waiting for jobs")

	for {
		select {
		case j, ok := <-client.Jobs():
			if !ok {
				entry.Info("job channel closed, exiting")
				return
			}
			entry.WithFields(logrus.Fields{
				"job_id":      j.JobID,
				"extranonce2": j.Extranonce2,
			}).Info("received job")
		case <-ctx.Done():
			entry.Info("shutting down")
			return
		}
	}
}
