package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/models"
	"elearning-chat-platform/utils"
)

// Seeds the initial admin account. Safe to run repeatedly: an existing
// admin with the same username is left untouched.
func main() {
	username := flag.String("username", "admin", "admin username")
	password := flag.String("password", "", "admin password (required)")
	name := flag.String("name", "Administrator", "display name")
	flag.Parse()

	if *password == "" {
		log.Fatal("-password is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	defer client.Disconnect(ctx)

	users := client.Database(cfg.DBName).Collection("users")
	if n, err := users.CountDocuments(ctx, bson.M{"username": *username}); err != nil {
		log.Fatal("Failed to check existing users:", err)
	} else if n > 0 {
		log.Printf("User %q already exists, nothing to do", *username)
		return
	}

	hash, err := utils.HashPassword(*password, cfg.BcryptCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	now := time.Now()
	_, err = users.InsertOne(ctx, models.User{
		Username:     *username,
		Name:         *name,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		log.Fatal("Failed to create admin:", err)
	}
	log.Printf("Admin account %q created", *username)
}
