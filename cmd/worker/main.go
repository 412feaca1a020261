// Command worker is the long-lived process hosting a small, bounded set
// of worker goroutines plus a scheduler ticker. It wires the container,
// then runs the job-queue dequeue loop and the scheduler tick loop side
// by side until signaled to stop.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/config"
	"kgraph-core/internal/container"
	"kgraph-core/internal/platform/logging"
	"kgraph-core/internal/tracing"
)

const (
	jobPollInterval    = 2 * time.Second
	schedulerTickEvery = time.Minute
	shutdownTimeout    = 30 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	logger, err := logging.New(logging.Environment(cfg.Environment), cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := tracing.Init("kgraph-core-worker")
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	c, err := container.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("build container", zap.Error(err))
	}
	defer c.Close()

	logger.Info("starting worker process", zap.String("environment", string(cfg.Environment)))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runJobLoop(ctx, c, logger)
	}()
	go func() {
		defer wg.Done()
		c.Scheduler.Run(ctx, schedulerTickEvery)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down worker process...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("all workers stopped gracefully")
	case <-time.After(shutdownTimeout):
		logger.Warn("worker shutdown timeout exceeded")
	}

	log.Println("worker process stopped")
}

// runJobLoop is the select-for-update-skip-locked dequeue loop:
// RunOnce pops and runs at most one approved job per call, so an idle queue
// just means repeated no-op ticks until ctx is canceled.
func runJobLoop(ctx context.Context, c *container.Container, logger *zap.Logger) {
	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("job loop shutting down")
			return
		case <-ticker.C:
			// Drain back-to-back without waiting a full tick when work
			// is flowing; the next select still yields to ctx.Done.
			for {
				ran, err := c.Jobs.RunOnce(ctx)
				if err != nil {
					logger.Error("job loop iteration failed", zap.Error(err))
					break
				}
				if !ran || ctx.Err() != nil {
					break
				}
			}
		}
	}
}
