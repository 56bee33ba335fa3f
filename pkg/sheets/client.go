package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deliotti/tucosto-backend/pkg/config"
	"github.com/deliotti/tucosto-backend/pkg/logger"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	valueRenderUnformatted = "UNFORMATTED_VALUE"
	valueInputUserEntered  = "USER_ENTERED"
	insertDataInsertRows   = "INSERT_ROWS"
	defaultRequestTimeout  = 10 * time.Second
)

var (
	errSpreadsheetIDRequired = errors.New("spreadsheet id is required")
	errSheetNameRequired     = errors.New("sheet name is required")
	errClientNotInitialized  = errors.New("sheets client not initialized")
)

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// backend is the subset of the Sheets API the client relies on.
type backend interface {
	values(ctx context.Context, spreadsheetID, a1Range string) ([][]any, error)
	appendValues(ctx context.Context, spreadsheetID, a1Range string, rows [][]any) error
	spreadsheet(ctx context.Context, spreadsheetID string) error
}

// Client reads and appends spreadsheet rows.
type Client struct {
	api           backend
	spreadsheetID string
	timeout       time.Duration
}

// NewClient builds a Sheets client authenticated with the configured service account.
func NewClient(ctx context.Context, cfg config.GoogleConfig, logg *logger.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SheetID)
	if spreadsheetID == "" {
		return nil, errSpreadsheetIDRequired
	}

	svc, err := gsheets.NewService(ctx, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "sheets client initialized")
	}

	return newClient(&serviceBackend{svc: svc}, spreadsheetID, cfg.RequestTimeout), nil
}

func newClient(api backend, spreadsheetID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{api: api, spreadsheetID: spreadsheetID, timeout: timeout}
}

func clientOptions(cfg config.GoogleConfig) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope, gsheets.DriveScope)}
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}
	return opts
}

// Records returns every data row of the sheet keyed by the header row.
// Cells are read unformatted so numeric prices arrive as numbers.
func (c *Client) Records(ctx context.Context, spreadsheetID, sheetName string) ([]map[string]any, error) {
	if c == nil || c.api == nil {
		return nil, errClientNotInitialized
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errSheetNameRequired
	}
	id := c.resolveID(spreadsheetID)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values, err := c.api.values(ctx, id, quoteSheet(sheetName))
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheetName, err)
	}
	return recordsFromValues(values), nil
}

// AppendRows appends rows after the last populated row of the sheet.
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, sheetName string, rows [][]any) error {
	if c == nil || c.api == nil {
		return errClientNotInitialized
	}
	if strings.TrimSpace(sheetName) == "" {
		return errSheetNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	id := c.resolveID(spreadsheetID)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.api.appendValues(ctx, id, quoteSheet(sheetName), rows); err != nil {
		return fmt.Errorf("appending to sheet %q: %w", sheetName, err)
	}
	return nil
}

// Ping checks that the configured spreadsheet is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.api.spreadsheet(ctx, c.spreadsheetID)
}

func (c *Client) resolveID(spreadsheetID string) string {
	if trimmed := strings.TrimSpace(spreadsheetID); trimmed != "" {
		return trimmed
	}
	return c.spreadsheetID
}

func recordsFromValues(values [][]any) []map[string]any {
	if len(values) == 0 {
		return nil
	}
	header := make([]string, len(values[0]))
	for i, cell := range values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
	}

	records := make([]map[string]any, 0, len(values)-1)
	for _, row := range values[1:] {
		if isBlankRow(row) {
			continue
		}
		record := make(map[string]any, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(row) {
				record[key] = row[i]
			} else {
				record[key] = ""
			}
		}
		records = append(records, record)
	}
	return records
}

func isBlankRow(row []any) bool {
	for _, cell := range row {
		if cell == nil {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(cell)) != "" {
			return false
		}
	}
	return true
}

// quoteSheet renders a sheet name as an A1 range covering the whole sheet.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

type serviceBackend struct {
	svc *gsheets.Service
}

func (b *serviceBackend) values(ctx context.Context, spreadsheetID, a1Range string) ([][]any, error) {
	resp, err := b.svc.Spreadsheets.Values.Get(spreadsheetID, a1Range).
		ValueRenderOption(valueRenderUnformatted).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (b *serviceBackend) appendValues(ctx context.Context, spreadsheetID, a1Range string, rows [][]any) error {
	_, err := b.svc.Spreadsheets.Values.Append(spreadsheetID, a1Range, &gsheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption(insertDataInsertRows).
		Context(ctx).
		Do()
	return err
}

func (b *serviceBackend) spreadsheet(ctx context.Context, spreadsheetID string) error {
	_, err := b.svc.Spreadsheets.Get(spreadsheetID).
		Fields("spreadsheetId").
		Context(ctx).
		Do()
	return err
}
