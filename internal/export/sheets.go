package export

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/gokatarajesh/trivia-bot/internal/contest"
	"github.com/gokatarajesh/trivia-bot/internal/leaderboard"
)

// SheetsExporter writes standings to a Google spreadsheet, one tab per server.
type SheetsExporter struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	logger        zerolog.Logger
}

var _ leaderboard.Sink = (*SheetsExporter)(nil)

// NewSheetsExporter authenticates with a service account JSON file.
func NewSheetsExporter(ctx context.Context, credentialsFile, spreadsheetID string, logger zerolog.Logger) (*SheetsExporter, error) {
	if _, err := os.Stat(credentialsFile); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return NewSheetsExporterWithService(srv, spreadsheetID, logger), nil
}

// NewSheetsExporterWithService wraps an existing client; tests point it at a fake endpoint.
func NewSheetsExporterWithService(srv *sheetsv4.Service, spreadsheetID string, logger zerolog.Logger) *SheetsExporter {
	return &SheetsExporter{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		logger:        logger.With().Str("component", "sheets_export").Logger(),
	}
}

// Export replaces the server's tab with the current standings.
func (e *SheetsExporter) Export(ctx context.Context, serverID string, entries []contest.LeaderboardEntry) error {
	tab := SheetName(serverID)
	if err := e.ensureSheet(ctx, tab); err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A:E", tab)
	if _, err := e.srv.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &sheetsv4.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	vr := &sheetsv4.ValueRange{Values: Rows(entries)}
	_, err := e.srv.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("'%s'!A1", tab), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	e.logger.Debug().Str("server_id", serverID).Int("rows", len(entries)).Msg("standings exported")
	return nil
}

func (e *SheetsExporter) ensureSheet(ctx context.Context, tab string) error {
	ss, err := e.srv.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}
	_, err = e.srv.Spreadsheets.BatchUpdate(e.spreadsheetID, &sheetsv4.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsv4.Request{{
			AddSheet: &sheetsv4.AddSheetRequest{Properties: &sheetsv4.SheetProperties{Title: tab}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	return nil
}
