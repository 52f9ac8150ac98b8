// Package google exposes a Google Sheets spreadsheet as a read-only ledger.
//
// The expenses sheet must start with a header row. Recognised columns
// (case-insensitive) are ID, Date, User ID, User, Category ID, Category,
// Amount and Description; Date, User and Amount are required. When the ID
// columns are absent, IDs are assigned in first-seen order.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ledger.Repository = (*Ledger)(nil)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

// valuesReader fetches a range of cell values.
type valuesReader interface {
	Values(ctx context.Context, rng string) ([][]any, error)
}

type Ledger struct {
	reader valuesReader
	sheet  string
}

type sheetsReader struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (r *sheetsReader) Values(ctx context.Context, rng string) ([][]any, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// New connects to the Sheets API with service account credentials.
func New(ctx context.Context, cfg Config) (*Ledger, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newLedger(&sheetsReader{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.SheetName), nil
}

func newLedger(r valuesReader, sheet string) *Ledger {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Expenses"
	}
	return &Ledger{reader: r, sheet: sheet}
}

// newSheetsService initializes a read-only Sheets service.
// Credentials come from cfg or, failing that, GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if cfg.CredentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (l *Ledger) snapshot(ctx context.Context) (*sheetSnapshot, error) {
	rng := fmt.Sprintf("%s!A:H", l.sheet)
	values, err := l.reader.Values(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	snap, err := parseLedgerRows(values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	if len(snap.skipped) > 0 {
		slog.WarnContext(ctx, "Skipped malformed ledger rows",
			"sheet", l.sheet,
			"skipped", len(snap.skipped),
			"rows", snap.skipped)
	}
	return snap, nil
}

// Ping reads the header row to check access to the sheet.
func (l *Ledger) Ping(ctx context.Context) error {
	_, err := l.reader.Values(ctx, fmt.Sprintf("%s!A1:H1", l.sheet))
	return err
}

func (l *Ledger) FetchAllExpenses(ctx context.Context) ([]core.Expense, error) {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.expenses, nil
}

func (l *Ledger) FetchUsers(ctx context.Context) ([]core.User, error) {
	return l.ListUsers(ctx)
}

func (l *Ledger) ListExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error) {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.FilterExpenses(snap.expenses, filter), nil
}

func (l *Ledger) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	for _, e := range snap.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("get expense %d: %w", id, core.ErrNotFound)
}

func (l *Ledger) CreateExpense(context.Context, core.Expense) (core.Expense, error) {
	return core.Expense{}, core.ErrReadOnly
}

func (l *Ledger) UpdateExpense(context.Context, int64, core.ExpensePatch) (core.Expense, error) {
	return core.Expense{}, core.ErrReadOnly
}

func (l *Ledger) DeleteExpense(context.Context, int64) error {
	return core.ErrReadOnly
}

func (l *Ledger) ListUsers(ctx context.Context) ([]core.User, error) {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	users := append([]core.User{}, snap.users...)
	ledger.SortUsers(users)
	return users, nil
}

func (l *Ledger) GetUser(ctx context.Context, id int64) (core.User, error) {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return core.User{}, err
	}
	for _, u := range snap.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("get user %d: %w", id, core.ErrNotFound)
}

func (l *Ledger) ListCategories(ctx context.Context) ([]core.Category, error) {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	cats := append([]core.Category{}, snap.categories...)
	ledger.SortCategories(cats)
	return cats, nil
}

func (l *Ledger) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	snap, err := l.snapshot(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for _, c := range snap.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("get category %d: %w", id, core.ErrNotFound)
}
