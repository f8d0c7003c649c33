package main

import (
	"log"

	"github.com/jharte/mobility-backend-go/internal/api"
	"github.com/jharte/mobility-backend-go/internal/config"
	"github.com/jharte/mobility-backend-go/internal/database"

	// Import stage packages to register them
	_ "github.com/jharte/mobility-backend-go/internal/analysis/stages"
)

func main() {
	cfg := config.Load()

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	if err := database.RunMigrations(database.GetDB()); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	router := api.SetupRouter(cfg, database.GetDB())

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
