package main

import (
	"log"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Darkzarich/Smiler-sub000/internal/db"
	"github.com/Darkzarich/Smiler-sub000/internal/router"
	"github.com/Darkzarich/Smiler-sub000/internal/store"
	"github.com/Darkzarich/Smiler-sub000/internal/utils"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	db.Init()
	stores := store.NewGorm(db.DB)

	cache, err := utils.NewCache(500)
	if err != nil {
		log.Fatalf("Failed to create cache: %v", err)
	}

	r := gin.Default()

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	sessionStore := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("smiler_session", sessionStore))

	router.RegisterRoutes(r, stores, cache)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Smiler server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
