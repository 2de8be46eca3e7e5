package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

const shareTTL = 24 * time.Hour

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	if err := InitDB(config.Storage.Database); err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer CloseDB()

	for _, dir := range []string{config.Storage.Uploads, config.Storage.Notes} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("Failed to create storage directory: ", err)
		}
	}

	tokenTTL, err := config.TokenTTL()
	if err != nil {
		log.Fatal("Invalid token TTL: ", err)
	}

	credential := NewCredential("1", config.Auth.Username, config.Auth.PasswordHash)
	auth := NewAuth(credential, config.Auth.JWTSecret, tokenTTL)
	storage := NewStorage(config.Storage.Uploads)
	notes := NewNoteStore(config.Storage.Notes)
	shares := NewShareRegistry(shareTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shares.StartSweeper(ctx, time.Hour)

	api := NewAPI(auth, storage, notes, shares, config)

	router := gin.Default()
	api.RegisterRoutes(router)

	log.Printf("Starting server on port %s", config.Server.Port)
	if err := router.Run(":" + config.Server.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
