package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arcana/internal/client"
	"arcana/internal/client/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.LoadConfig()

	app, err := client.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if !app.LoggedIn() {
		email := os.Getenv("ARCANA_EMAIL")
		password := os.Getenv("ARCANA_PASSWORD")
		if email == "" || password == "" {
			log.Fatal("no stored session: set ARCANA_EMAIL and ARCANA_PASSWORD to log in")
		}
		if err := app.Login(ctx, email, password); err != nil {
			log.Fatalf("%v", err)
		}
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
