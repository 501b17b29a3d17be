package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/quickcommerce/storefront/internal/config"
	"github.com/quickcommerce/storefront/internal/pkg/auth"
)

// Mints an access token signed with JWT_SECRET for local testing.
func main() {
	userID := flag.Uint("user", 1, "user id")
	email := flag.String("email", "dev@example.com", "email claim")
	admin := flag.Bool("admin", false, "grant admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(*userID, *email, *admin)
	if err != nil {
		log.Fatalf("Error generating token: %v", err)
	}

	fmt.Println(token)
}
