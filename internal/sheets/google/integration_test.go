//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendAndContains(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       "Wallet Integration",
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		Location:        time.UTC,
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tx := core.NewTransaction("Integration "+time.Now().Format(time.RFC3339), decimal.RequireFromString("1.23"), "Other", core.Expense, time.Now())
	ref, err := client.Append(ctx, tx)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	t.Logf("appended at %s", ref)

	client.ids = make(map[string]idSet)
	found, err := client.Contains(ctx, tx)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !found {
		t.Fatal("appended transaction not found in column A")
	}
}
