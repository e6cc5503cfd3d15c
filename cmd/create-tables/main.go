package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/angelmondragon/sparkify-dwh/internal/app"
	"github.com/angelmondragon/sparkify-dwh/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Execute(ctx, "create-tables", pipeline.PlanSchema, app.Options{}); err != nil {
		fmt.Fprintf(os.Stderr, "create-tables failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}
