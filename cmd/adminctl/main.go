package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	bpostgres "github.com/betonova/readymix-crm/internal/backend/postgres"
	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/pkg/config"
	"github.com/betonova/readymix-crm/pkg/database"
)

// adminctl provisions back-office admin accounts and their profile
// documents. Run it once per staff member:
//
//	adminctl -name "Priya Sharma" -email priya@betonova.com -password '...'
func main() {
	var (
		name     = flag.String("name", "", "display name")
		email    = flag.String("email", "", "sign-in email")
		password = flag.String("password", "", "initial password")
		role     = flag.String("role", "admin", "role: admin or user")
		avatar   = flag.String("avatar", "", "avatar URL (optional)")
	)
	flag.Parse()

	if *name == "" || *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "name, email and password are required")
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := bpostgres.Bootstrap(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	id := uuid.NewString()
	if err := bpostgres.CreateAdmin(ctx, pool, id, *name, *email, *password); err != nil {
		fmt.Fprintf(os.Stderr, "create admin: %v\n", err)
		os.Exit(1)
	}

	docs := bpostgres.NewDocStore(pool, nil)
	profile := map[string]any{
		"name":   *name,
		"role":   *role,
		"avatar": *avatar,
	}
	if err := docs.Put(ctx, backend.CollectionProfiles, id, profile); err != nil {
		fmt.Fprintf(os.Stderr, "write profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created admin %s (%s)\n", *email, id)
}
