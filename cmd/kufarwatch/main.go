package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itcaat/kufarwatch/internal/app"
	"github.com/itcaat/kufarwatch/internal/config"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	envPath := flag.String("env", "", "path to .env file (default: ./.env)")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	fmt.Println("Starting Kufar watcher...")

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	err = application.Run(ctx, *once)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println("\nРабота программы остановлена пользователем")
	case err != nil:
		log.Printf("Fatal error: %v", err)
		stop()
		os.Exit(1)
	}
}
