package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"wallet/internal/core"
)

// fakeSheets serves the two Values endpoints the client uses.
func fakeSheets(t *testing.T, existingIDs []string, appended *[]string, gets *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
			body, _ := io.ReadAll(r.Body)
			*appended = append(*appended, string(body))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"updates": map[string]any{"updatedRange": "'2024 Transactions'!A2:G2"},
			})
		case r.Method == http.MethodGet:
			atomic.AddInt32(gets, 1)
			values := [][]any{{"ID"}}
			for _, id := range existingIDs {
				values = append(values, []any{id})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"values": values})
		default:
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return newClient(svc, Config{SpreadsheetID: "sheet-id", SheetName: "Transactions", Location: time.UTC})
}

func sampleTx() core.Transaction {
	return core.NewTransaction("Groceries", decimal.RequireFromString("19.9"), "Food", core.Expense,
		time.Date(2024, 5, 2, 18, 30, 0, 0, time.UTC))
}

func TestClient_Append(t *testing.T) {
	var appended []string
	var gets int32
	srv := fakeSheets(t, nil, &appended, &gets)
	defer srv.Close()

	c := newTestClient(t, srv)
	tx := sampleTx()

	ref, err := c.Append(context.Background(), tx)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "'2024 Transactions'!A2:G2" {
		t.Fatalf("ref = %q", ref)
	}
	if len(appended) != 1 {
		t.Fatalf("expected one append call, got %d", len(appended))
	}
	for _, want := range []string{tx.ID, "2024-05-02", "18:30", "Groceries", "Expense", "Food", "19.90"} {
		if !strings.Contains(appended[0], want) {
			t.Errorf("append body %s missing %q", appended[0], want)
		}
	}
}

func TestClient_AppendValidates(t *testing.T) {
	c := &Client{}
	if _, err := c.Append(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := c.Append(context.Background(), sampleTx()); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestClient_ContainsCachesIDs(t *testing.T) {
	var appended []string
	var gets int32
	tx := sampleTx()
	srv := fakeSheets(t, []string{"other"}, &appended, &gets)
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	found, err := c.Contains(ctx, tx)
	if err != nil || found {
		t.Fatalf("Contains = %v, %v; want false", found, err)
	}
	if _, err := c.Append(ctx, tx); err != nil {
		t.Fatalf("Append: %v", err)
	}
	found, _ = c.Contains(ctx, tx)
	if !found {
		t.Fatal("appended ID should be remembered")
	}
	if got := atomic.LoadInt32(&gets); got != 1 {
		t.Fatalf("expected a single read of column A, got %d", got)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := loadCredentials(Config{}); err == nil {
		t.Fatal("expected error with no credentials")
	}

	got, err := loadCredentials(Config{CredentialsJSON: ` {"type":"service_account"} `})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("inline: %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"k":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	got, err = loadCredentials(Config{})
	if err != nil || string(got) != `{"k":1}` {
		t.Fatalf("env file: %q, %v", got, err)
	}

	if _, err := loadCredentials(Config{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
}

func TestYearPrefixedName(t *testing.T) {
	cases := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2024, "2024 Transactions"},
		{"  Transactions ", 2025, "2025 Transactions"},
		{"2023 Transactions", 2025, "2023 Transactions"},
		{"", 2025, ""},
		{"1800 Old", 2025, "2025 1800 Old"},
	}
	for _, tc := range cases {
		if got := yearPrefixedName(tc.base, tc.year); got != tc.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tc.base, tc.year, got, tc.want)
		}
	}
}

func TestTransactionRow_UsesLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skip("tzdata not available")
	}
	tx := core.NewTransaction("Late", decimal.NewFromInt(1), "Food", core.Income,
		time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC))

	row := transactionRow(tx, rome)
	if row[1] != "2025-01-01" || row[2] != "00:30" || row[4] != "Income" || row[6] != "1.00" {
		t.Fatalf("row = %v", row)
	}
}
