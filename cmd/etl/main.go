package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/angelmondragon/sparkify-dwh/internal/app"
	"github.com/angelmondragon/sparkify-dwh/internal/pipeline"
)

func main() {
	full := flag.Bool("full", false, "reset the schema and ingest staging before transforming")
	sequential := flag.Bool("sequential", false, "build dimension tables one at a time")
	flag.Parse()

	plan := pipeline.PlanTransform
	if *full {
		plan = pipeline.PlanFull
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := app.Options{Ingest: *full, Sequential: *sequential}
	if err := app.Execute(ctx, "etl", plan, opts); err != nil {
		fmt.Fprintf(os.Stderr, "etl failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}
