package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/angelmondragon/sparkify-dwh/internal/app"
	"github.com/angelmondragon/sparkify-dwh/internal/pipeline"
	"github.com/angelmondragon/sparkify-dwh/pkg/config"
)

func main() {
	mode := flag.String("mode", "", "ingest mode: copy|load (overrides "+config.EnvIngestMode+")")
	flag.Parse()

	if *mode != "" {
		// set before config load so mode-dependent validation sees it
		if err := os.Setenv(config.EnvIngestMode, *mode); err != nil {
			fmt.Fprintf(os.Stderr, "ingest failed: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Execute(ctx, "ingest", pipeline.PlanIngest, app.Options{Ingest: true}); err != nil {
		fmt.Fprintf(os.Stderr, "ingest failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}
