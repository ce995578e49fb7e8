package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"neodukaan-backend/internal/auth"
	"neodukaan-backend/internal/config"
	"neodukaan-backend/internal/db"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/repositories"
)

const (
	demoEmail    = "demo@neodukaan.in"
	demoPassword = "dukaan123"
)

func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	seed := flag.Bool("seed", true, "create a demo shop after the reset")
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("   Reset Database for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE ALL SHOP DATA!")
	fmt.Println("  - shops, items and batches")
	fmt.Println("  - customers and khata ledgers")
	fmt.Println("  - sales and the invoice sequence")
	fmt.Println()

	if !*yes {
		fmt.Print("Type 'yes' to confirm: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" {
			fmt.Println("Reset cancelled.")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("Database driver is %q, nothing to reset\n", cfg.Database.Driver)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("Resetting database...")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v\n", err)
	}
	defer tx.Rollback(ctx)

	if err := truncateAll(ctx, tx); err != nil {
		log.Fatalf("%v\n", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v\n", err)
	}

	if *seed {
		shop, err := seedShop(ctx, repositories.NewPostgresStore(pool))
		if err != nil {
			log.Fatalf("Failed to create demo shop: %v\n", err)
		}
		fmt.Printf("  ✓ Created demo shop %s\n", shop.ID)
	}

	fmt.Println()
	fmt.Println("Database reset successful!")
	if *seed {
		fmt.Println()
		fmt.Println("Demo credentials:")
		fmt.Printf("  Email:    %s\n", demoEmail)
		fmt.Printf("  Password: %s\n", demoPassword)
	}
}

func truncateAll(ctx context.Context, tx pgx.Tx) error {
	// Children first, CASCADE covers anything added later.
	tables := []string{
		"sale_lines",
		"sales",
		"ledger_entries",
		"customers",
		"item_batches",
		"items",
		"shops",
	}
	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
		fmt.Printf("  ✓ Cleared %s\n", table)
	}

	if _, err := tx.Exec(ctx, "ALTER SEQUENCE sale_invoice_seq RESTART WITH 1"); err != nil {
		log.Printf("Warning: Failed to reset invoice sequence: %v\n", err)
	} else {
		fmt.Println("  ✓ Reset invoice sequence")
	}
	return nil
}

func seedShop(ctx context.Context, st *repositories.PostgresStore) (*models.Shop, error) {
	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return nil, err
	}
	shop := &models.Shop{
		ID:           uuid.NewString(),
		OwnerName:    "Demo Owner",
		ShopName:     "Demo Kirana",
		Email:        demoEmail,
		PasswordHash: hash,
		Phone:        "9999999999",
	}
	return shop, st.Shops().Create(ctx, shop)
}
