package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestWalletMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_wallets.sql")

	checks := []string{
		"CREATE TYPE transaction_type AS ENUM ('credit', 'debit')",
		"CREATE TABLE IF NOT EXISTS wallets",
		"CREATE TABLE IF NOT EXISTS wallet_transactions",
		"CREATE UNIQUE INDEX IF NOT EXISTS wallet_transactions_reference_key",
		"CHECK (amount > 0)",
		"DROP TABLE IF EXISTS wallet_transactions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationContainsStatuses(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TYPE order_status AS ENUM",
		"'pending_acceptance'",
		"'ready_for_pickup'",
		"'canceled'",
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (qty > 0)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReviewsMigrationEnforcesOnePerOrder(t *testing.T) {
	content := readMigration(t, "*_create_reviews.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS reviews_order_id_key ON reviews (order_id)",
		"CHECK (vendor_rating BETWEEN 1 AND 5)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
