// Command phlow loads and runs a Phlow document: stdlib flag for
// arguments, log/slog for logging, and os/signal + context cancellation
// for graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lowcarboncode/phlow"
	"github.com/lowcarboncode/phlow/tracing"
	"github.com/lowcarboncode/phlow/value"
)

var (
	target          = flag.String("config", "", "path to a document file or directory (searches main.{yaml,yml,json,toml})")
	modulesDir      = flag.String("modules-dir", "phlow_modules", "directory module binaries resolve from")
	otlpEndpoint    = flag.String("otlp-endpoint", "", "OTLP HTTP endpoint for trace export (empty disables export)")
	traceSampleRate = flag.Float64("trace-sample-rate", 1.0, "trace sampling ratio, 0.0 to 1.0; values <= 0 or >= 1 sample every trace")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName: "phlow",
		Endpoint:    *otlpEndpoint,
		SampleRate:  *traceSampleRate,
	})
	if err != nil {
		log.Fatalf("tracing setup error: %v", err)
	}
	defer provider.Shutdown(context.Background())

	engine, err := phlow.Build(*target, phlow.Options{
		Logger:     logger,
		Tracing:    provider,
		ModulesDir: *modulesDir,
	})
	if err != nil {
		log.Fatalf("build error: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("shutting down...")
		cancel()
	}()

	if engine.HasMain() {
		if err := engine.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("serve error: %v", err)
		}
		fmt.Println("shutdown complete")
		return
	}

	result, err := engine.Run(ctx, value.Null)
	if err != nil {
		log.Fatalf("run error: %v", err)
	}
	fmt.Println(result.String())
}
