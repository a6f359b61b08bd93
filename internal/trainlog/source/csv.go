package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/bellonet/BroAnalytics/internal/telemetry/tracing"
	"github.com/bellonet/BroAnalytics/internal/trainlog"

	log "github.com/sirupsen/logrus"
)

// CSVLoader reads the training log from a CSV export. The location can
// be an HTTP(S) URL (e.g. a published sheet export link) or a local
// file path.
type CSVLoader struct {
	location   string
	httpClient *http.Client
}

func NewCSVLoader(location string, httpClient *http.Client) *CSVLoader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CSVLoader{
		location:   exportURLAsCSV(location),
		httpClient: httpClient,
	}
}

// exportURLAsCSV rewrites spreadsheet export links that ask for a
// binary workbook into their CSV variant, which this loader can parse.
func exportURLAsCSV(location string) string {
	if strings.Contains(location, "output=xlsx") {
		return strings.ReplaceAll(location, "output=xlsx", "output=csv")
	}
	return location
}

func (l *CSVLoader) Load(ctx context.Context) (table trainlog.Table, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "source.csv.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	reader, closeFn, err := l.open(ctx)
	if err != nil {
		return trainlog.Table{}, err
	}
	defer closeFn()

	csvReader := csv.NewReader(reader)
	// rows in a free-form log often have trailing cells missing
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return trainlog.Table{}, fmt.Errorf("parse csv from %s: %w", l.location, err)
	}
	if len(records) == 0 {
		return trainlog.Table{}, fmt.Errorf("csv source %s is empty", l.location)
	}

	table, err = BuildTable(records[0], records[1:])
	if err != nil {
		return trainlog.Table{}, err
	}

	log.Debugf("csv loader: loaded %d rows from %s", len(table.Rows), l.location)
	return table, nil
}

func (l *CSVLoader) open(ctx context.Context) (io.Reader, func(), error) {
	if !strings.HasPrefix(l.location, "http://") && !strings.HasPrefix(l.location, "https://") {
		f, err := os.Open(l.location)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv file: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.location, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create csv request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("get csv: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("get csv: unexpected status %d", resp.StatusCode)
	}

	return resp.Body, func() { _ = resp.Body.Close() }, nil
}
