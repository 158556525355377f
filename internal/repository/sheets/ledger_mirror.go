// Package sheets mirrors committed ledger records to a Google spreadsheet, one tab per activity kind.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/herdlog/internal/config"
	"github.com/mamadbah2/herdlog/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Header is the column layout shared by every tab.
var Header = []interface{}{
	"Record ID", "Farm", "Date", "Animal", "Liters", "Quantity (kg)", "Feed type",
	"Medicine", "Dosage", "Notes", "Recorded by", "Distribution", "Approval",
}

// GoogleSheetRepository appends ledger rows using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed mirror.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	return newRepository(ctx, cfg.SpreadsheetID, logger,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
}

func newRepository(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}, nil
}

// AppendRecords appends one row per record to the tab of kind.
func (r *GoogleSheetRepository) AppendRecords(ctx context.Context, kind models.ActivityKind, records []models.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Row(rec))
	}
	sheetRange := Range(kind)
	payload := &sheetsapi.ValueRange{Values: rows}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// Range is the A1 range of the tab holding kind, e.g. "Milking!A:M".
func Range(kind models.ActivityKind) string {
	words := strings.Split(string(kind), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return fmt.Sprintf("%s!A:M", strings.Join(words, " "))
}

// Row renders a record in Header order. Zero quantities are left blank.
func Row(rec models.ActivityRecord) []interface{} {
	return []interface{}{
		rec.ID,
		rec.FarmID,
		rec.Date.Format(dateLayout),
		rec.AnimalID,
		number(rec.Liters),
		number(rec.QuantityKg),
		rec.FeedType,
		rec.Medicine,
		rec.Dosage,
		rec.Notes,
		rec.RecordedBy,
		rec.DistributionID,
		rec.ApprovalID,
	}
}

func number(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
