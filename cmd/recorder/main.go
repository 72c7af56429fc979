package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitdo/internal/cli"
	"bitdo/internal/config"
	"bitdo/internal/model"
	"bitdo/internal/svc"
)

const (
	fetchTimeout    = 2 * time.Minute  // Budget for one full holdings sweep
	shutdownTimeout = 10 * time.Second // Grace period for shutdown
)

var configFile = flag.String("f", "etc/bitdo.yaml", "the config file")

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting holdings recorder...")

	appCfg := config.MustLoad(*configFile)

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	svcCtx := svc.NewServiceContext(*appCfg)
	if svcCtx.Snapshots == nil {
		log.Fatalf("[main] A Postgres DSN is required to record holdings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runRecorder(ctx, svcCtx, appCfg.Recorder.Interval)
	}()

	log.Println("[main] Recorder started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping...")

	select {
	case <-done:
		log.Println("[main] Recorder stopped cleanly")
	case <-time.After(shutdownTimeout):
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}
}

// runRecorder snapshots holdings on a schedule, starting immediately.
func runRecorder(ctx context.Context, svcCtx *svc.ServiceContext, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	recordOnce(ctx, svcCtx)

	for {
		select {
		case <-ctx.Done():
			log.Println("[recorder] Stopping")
			return
		case <-ticker.C:
			recordOnce(ctx, svcCtx)
		}
	}
}

// recordOnce values every balance and persists one row per holding, all
// stamped with the same timestamp so totals can be grouped per sweep.
func recordOnce(parentCtx context.Context, svcCtx *svc.ServiceContext) {
	if parentCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parentCtx, fetchTimeout)
	defer cancel()

	start := time.Now()
	holdings, err := svcCtx.Holdings.GetHoldings(ctx)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("[recorder.fetch] [ERROR] %v, took %dms", err, elapsed.Milliseconds())
		return
	}
	log.Printf("[recorder.fetch] [OK] %d holdings, took %dms", len(holdings), elapsed.Milliseconds())

	ts := time.Now().UTC().Truncate(time.Second)
	rows := make([]model.HoldingSnapshot, 0, len(holdings))
	for _, h := range holdings {
		exchangeName := ""
		if h.Exchange != nil {
			exchangeName = h.Exchange.Name
		}
		rows = append(rows, model.HoldingSnapshot{
			Exchange:  exchangeName,
			Symbol:    h.Currency,
			Amount:    h.Balance,
			AmountBtc: h.Conversions.BTC,
			AmountUsd: h.Conversions.USD,
			Ts:        ts,
		})
	}

	if err := svcCtx.Snapshots.Insert(ctx, rows); err != nil {
		log.Printf("[recorder.insert] [ERROR] %v", err)
		return
	}
	log.Printf("[recorder.insert] [OK] %d rows at %s", len(rows), ts.Format(time.RFC3339))
}
