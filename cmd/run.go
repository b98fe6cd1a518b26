package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"firestige.xyz/flowreader/internal/arptable"
	"firestige.xyz/flowreader/internal/config"
	"firestige.xyz/flowreader/internal/dns"
	"firestige.xyz/flowreader/internal/log"
	"firestige.xyz/flowreader/internal/metrics"
	"firestige.xyz/flowreader/internal/pipeline"
	"firestige.xyz/flowreader/internal/sink/console"
	"firestige.xyz/flowreader/internal/source"
)

// runCapture loads configuration, opens the source and runs the loop until
// the source is exhausted or a stop signal arrives. Every error returned
// before the first frame is a configuration or capture setup failure.
func runCapture(ctx context.Context, path string, flags *pflag.FlagSet, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(path, flags)
	if err != nil {
		return err
	}
	if err := log.Init(&cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger := log.GetLogger()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.WithError(err).Warn("metrics server shutdown failed")
			}
		}()
	}

	src, err := source.Open(cfg.Capture)
	if err != nil {
		return err
	}
	defer src.Close()

	logger.WithFields(map[string]interface{}{
		"type":    cfg.Capture.Type,
		"snaplen": cfg.Capture.SnapLen,
		"filter":  cfg.Capture.Filter,
	}).Infof("listening on %s, link-type EN10MB (Ethernet)", src.Name())

	session, err := pipeline.NewBuilder().
		WithSource(src).
		WithCache(arptable.New()).
		WithSink(console.NewSink(out)).
		WithDNSHook(dns.NewHook(logger, nil)).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	return session.RunUntilSignal(ctx)
}
