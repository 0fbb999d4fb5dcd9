package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
	"github.com/Hariprasath006/Campus-Resource-Management/pkg/config"
)

// token prints a session token for local testing:
//
//	go run ./cmd/dev/token -user u1 -role STUDENT
func main() {
	var (
		userID = flag.String("user", "", "actor id (token subject)")
		role   = flag.String("role", "STUDENT", "STUDENT, STAFF or ADMIN")
		name   = flag.String("name", "", "display name")
		ttl    = flag.Duration("ttl", 12*time.Hour, "token lifetime")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "missing -user")
		os.Exit(2)
	}
	r, err := identity.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "missing JWT_SECRET in env/.env")
		os.Exit(2)
	}

	tok, err := identity.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).
		Issue(identity.Actor{ID: *userID, Role: r, Name: *name}, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
