package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kaanbarutcu/warseason/app"
	"github.com/kaanbarutcu/warseason/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting war scheduler in %s mode", cfg.Server.Environment)
	log.Printf("Using DynamoDB table: %s", cfg.DynamoDB.TableName)

	ctx := context.Background()

	application, appErr := app.New(ctx, cfg)
	if appErr != nil {
		log.Fatalf("Failed to initialize application: %v", appErr)
	}

	if appErr := application.Start(); appErr != nil {
		log.Fatalf("Failed to start application: %v", appErr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	if appErr := application.Stop(); appErr != nil {
		log.Printf("Shutdown error: %v", appErr)
	}

	log.Println("Server stopped")
}
