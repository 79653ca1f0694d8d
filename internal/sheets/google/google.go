// Package google appends health snapshots to a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"consultcrm/internal/core"
	"consultcrm/internal/finance"
)

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates a client authenticated with a service account. Inline JSON
// wins over the file.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Health"
	}

	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets exporter ready", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: cfg.SheetName}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// ExportSnapshot appends one row to the sheet.
func (c *Client) ExportSnapshot(ctx context.Context, s finance.HealthSnapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:I", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{snapshotRow(s)}}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append snapshot to %s: %w", c.sheetName, err)
	}
	return nil
}

// snapshotRow lays out date, status, expected cash, commitments, surplus,
// break-even, sales, lowest balance and its date. Amounts use two decimals
// and a dot separator so the sheet parses them regardless of locale.
func snapshotRow(s finance.HealthSnapshot) []any {
	lowestDate := ""
	if !s.LowestBalanceDate.IsZero() {
		lowestDate = s.LowestBalanceDate.Format(core.ISODate)
	}
	return []any{
		s.ReferenceDate.Format(core.ISODate),
		string(s.Status),
		s.ExpectedCash.StringFixed(2),
		s.TotalCommitments.StringFixed(2),
		s.Surplus.StringFixed(2),
		s.BreakEvenPoint.StringFixed(2),
		s.TotalSales.StringFixed(2),
		s.LowestBalance.StringFixed(2),
		lowestDate,
	}
}
