package source

import (
	"context"
	"fmt"
	"os"

	"github.com/bellonet/BroAnalytics/internal/telemetry/tracing"
	"github.com/bellonet/BroAnalytics/internal/trainlog"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsLoader pulls the training log straight from the Google Sheets
// API. Every sheet (tab) of the spreadsheet is read, mapped via its own
// header row, and concatenated into one dataset.
type SheetsLoader struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsLoader(ctx context.Context, credentialsPath, spreadsheetID string) (*SheetsLoader, error) {
	credsJSON, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	jwtConf, err := google.JWTConfigFromJSON(credsJSON, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsLoader{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

func (l *SheetsLoader) Load(ctx context.Context) (table trainlog.Table, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "source.sheets.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	spreadsheet, err := l.service.Spreadsheets.Get(l.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return trainlog.Table{}, fmt.Errorf("get spreadsheet %s: %w", l.spreadsheetID, err)
	}

	for _, sheet := range spreadsheet.Sheets {
		title := sheet.Properties.Title
		sheetTable, err := l.loadSheet(ctx, title)
		if err != nil {
			return trainlog.Table{}, fmt.Errorf("load sheet %q: %w", title, err)
		}
		table.Rows = append(table.Rows, sheetTable.Rows...)
		table.Columns = mergeColumns(table.Columns, sheetTable.Columns)
	}

	log.Debugf("sheets loader: loaded %d rows from %d sheets", len(table.Rows), len(spreadsheet.Sheets))
	return table, nil
}

func (l *SheetsLoader) loadSheet(ctx context.Context, title string) (trainlog.Table, error) {
	resp, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, title).Context(ctx).Do()
	if err != nil {
		return trainlog.Table{}, fmt.Errorf("get values: %w", err)
	}

	if len(resp.Values) == 0 {
		return trainlog.Table{}, fmt.Errorf("sheet is empty")
	}

	header := stringRow(resp.Values[0])
	rows := make([][]string, 0, len(resp.Values)-1)
	for _, v := range resp.Values[1:] {
		rows = append(rows, stringRow(v))
	}

	return BuildTable(header, rows)
}

func stringRow(values []interface{}) []string {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	return row
}
