package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dimitrije/medportal-api/internal/config"
	"github.com/dimitrije/medportal-api/internal/database"
	"github.com/dimitrije/medportal-api/internal/directory"
	"github.com/dimitrije/medportal-api/internal/identity"
)

func main() {
	revoke := flag.Bool("revoke", false, "remove the admin claim instead of granting it")
	approve := flag.Bool("approve", false, "also mark the users record as approved")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: grant-admin [--revoke] [--approve] <email>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	email := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	jwtService := identity.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	identityService := identity.NewService(db, jwtService, nil, nil, nil, identity.Options{}, nil)

	uid, err := identityService.SetAdminClaim(ctx, email, !*revoke)
	if err != nil {
		log.Fatalf("Failed to update claims: %v", err)
	}

	if *approve {
		users := directory.NewUsers(directory.NewPGStore(db))
		if err := users.SetApproved(ctx, uid, true); err != nil {
			log.Fatalf("Claim updated but approving %s failed: %v", uid, err)
		}
	}

	if *revoke {
		fmt.Printf("Removed the admin claim from %s (%s)\n", email, uid)
	} else {
		fmt.Printf("Granted the admin claim to %s (%s)\n", email, uid)
	}
	fmt.Println("Live sessions keep their previous claims until the next token refresh.")
}
