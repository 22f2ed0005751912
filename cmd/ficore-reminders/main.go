// Command ficore-reminders runs the bill reminder sweep as an AWS Lambda
// function triggered by an EventBridge schedule.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/ficoreafrica/ficore/internal/app"
	"github.com/ficoreafrica/ficore/internal/config"
	"github.com/ficoreafrica/ficore/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("FICORE_CONFIG"))
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, "json")

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("start", "error", err)
		os.Exit(1)
	}

	lambda.Start(a.Reminders.HandleScheduled)
}
