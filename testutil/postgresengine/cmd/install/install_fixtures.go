package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AntonStoeckl/fakersql-go/testutil/postgresengine/config"
	"github.com/AntonStoeckl/fakersql-go/testutil/postgresengine/fixtures"
)

func main() {
	if err := InstallFixtures(context.Background()); err != nil {
		log.Fatalf("Error installing fixtures: %v", err)
	}
}

// InstallFixtures installs the fixture locales and procedures into the test database.
func InstallFixtures(ctx context.Context) error {
	startTime := time.Now()

	fmt.Println("🚀 Installing fakersql fixtures")
	fmt.Println("🎯 Target: TEST_DATABASE_URL or the local faker_db")
	fmt.Println()

	fmt.Printf("🔗\tConnecting to database...")
	connPool, err := config.PostgresPGXPool(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer connPool.Close()
	fmt.Println(" ✅")

	fmt.Printf("📦\tInstalling locales and procedures...")
	if _, err = connPool.Exec(ctx, fixtures.SchemaSQL); err != nil {
		return fmt.Errorf("failed to install fixtures: %w", err)
	}
	fmt.Println(" ✅")

	fmt.Printf("🔎\tChecking get_available_locales()...")
	var count int
	if err = connPool.QueryRow(ctx, "SELECT count(*) FROM get_available_locales()").Scan(&count); err != nil {
		return fmt.Errorf("failed to query locales: %w", err)
	}

	if count != len(fixtures.Locales) {
		return fmt.Errorf("expected %d locales, got %d", len(fixtures.Locales), count)
	}
	fmt.Println(" ✅")

	fmt.Println()
	fmt.Printf("🎉 Installed %d locales in %s\n", count, time.Since(startTime).Round(time.Millisecond))

	return nil
}
