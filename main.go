package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"bhcpharm/m/internal/config"
	"bhcpharm/m/internal/database"
	"bhcpharm/m/internal/gateway"
	"bhcpharm/m/internal/migrations"
	"bhcpharm/m/internal/session"
	"bhcpharm/m/internal/view"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.SessionDSN)
	defer db.Close()

	migrations.Run(db)

	store := session.Open(db)
	api := gateway.New(cfg.APIBaseURL, cfg.HTTPTimeout, store)

	app := view.NewApp(store, api, os.Stdin, os.Stdout)
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("app error: %v", err)
	}
}
