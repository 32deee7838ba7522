package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"wallet/internal/core"
	ports "wallet/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const idCacheTTL = 5 * time.Minute

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base tab name; rows go to "<year> <SheetName>".
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Location        *time.Location
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	loc           *time.Location

	mu  sync.Mutex
	ids map[string]idSet
}

type idSet struct {
	ids       map[string]struct{}
	expiresAt time.Time
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg), nil
}

func newClient(svc *gsheet.Service, cfg Config) *Client {
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Transactions"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetBase:     base,
		loc:           loc,
		ids:           make(map[string]idSet),
	}
}

// newSheetsService resolves credentials from inline JSON, a file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)
	return service, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Append writes tx to the sheet of its year and returns the updated range.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.sheetFor(tx)
	vr := &gsheet.ValueRange{Values: [][]any{transactionRow(tx, c.loc)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:G", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	c.remember(sheet, tx.ID)

	ref := sheet
	if resp != nil && resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// Contains reports whether tx.ID is already present in column A of its sheet.
func (c *Client) Contains(ctx context.Context, tx core.Transaction) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	sheet := c.sheetFor(tx)

	c.mu.Lock()
	set, ok := c.ids[sheet]
	c.mu.Unlock()
	if !ok || time.Now().After(set.expiresAt) {
		ids, err := c.readIDs(ctx, sheet)
		if err != nil {
			return false, err
		}
		set = idSet{ids: ids, expiresAt: time.Now().Add(idCacheTTL)}
		c.mu.Lock()
		c.ids[sheet] = set
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, found := c.ids[sheet].ids[tx.ID]
	return found, nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) (map[string]struct{}, error) {
	rng := sheet + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make(map[string]struct{}, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.EqualFold(v, "id") {
			continue
		}
		out[v] = struct{}{}
	}
	return out, nil
}

func (c *Client) remember(sheet, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.ids[sheet]; ok {
		set.ids[id] = struct{}{}
	}
}

func (c *Client) sheetFor(tx core.Transaction) string {
	return yearPrefixedName(c.sheetBase, tx.Timestamp.In(c.loc).Year())
}

// transactionRow renders tx as ID, Date, Time, Title, Kind, Category, Amount.
// Amounts are plain decimals so the sheet can format them.
func transactionRow(tx core.Transaction, loc *time.Location) []any {
	local := tx.Timestamp.In(loc)
	return []any{
		tx.ID,
		local.Format(time.DateOnly),
		local.Format("15:04"),
		tx.Title,
		tx.Kind.Label(),
		tx.Category,
		tx.Amount.StringFixed(2),
	}
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
