// Command mint-token prints a service token for the administrative API.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/config"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/security"
)

func main() {
	subject := flag.String("subject", "", "subject to embed in the token")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *subject == "" {
		log.Fatal("-subject is required")
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	issuer, err := security.NewServiceTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, *ttl)
	if err != nil {
		log.Fatalf("failed to build issuer: %v", err)
	}

	token, err := issuer.Issue(*subject)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(token)
}
