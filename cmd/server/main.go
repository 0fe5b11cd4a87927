package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"giantgrab/server/internal/app"
)

func main() {
	tuningPath := flag.String("tuning", "config/tuning.yaml", "path to the tuning file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, app.Config{TuningPath: *tuningPath}); err != nil {
		logrus.Fatalf("%v", err)
	}
}
