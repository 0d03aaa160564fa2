package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mtraver/air-quality-analysis/cache"
	"github.com/mtraver/air-quality-analysis/credentials"
	"github.com/mtraver/air-quality-analysis/summary"
)

const (
	DefaultWorksheet = "Statistical Summary"

	newWorksheetRows = 100
	newWorksheetCols = 20

	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	idCacheTTL          = 10 * time.Minute
)

// SheetsScopes are the OAuth scopes the Sheets exporter needs: Drive to find a
// spreadsheet by name and Sheets to edit it.
var SheetsScopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveReadonlyScope,
}

// sheetsAPI is the subset of the Google Sheets and Drive APIs that Sheets uses.
type sheetsAPI interface {
	// FindSpreadsheet returns the ID of the spreadsheet with the given name,
	// or the empty string if there is none.
	FindSpreadsheet(ctx context.Context, name string) (string, error)
	Worksheets(ctx context.Context, id string) ([]string, error)
	AddWorksheet(ctx context.Context, id, title string, rows, cols int64) error
	Clear(ctx context.Context, id, rng string) error
	Write(ctx context.Context, id, rng string, values [][]interface{}) error
}

// Sheets writes a summary table to a worksheet of a Google Sheets spreadsheet,
// found by its name. The worksheet is created if it doesn't exist and cleared
// before every write.
type Sheets struct {
	Spreadsheet string
	Worksheet   string

	creds  credentials.Source
	newAPI func(ctx context.Context, creds *google.Credentials) (sheetsAPI, error)
	ids    *cache.Cache[string]
}

func NewSheets(spreadsheet string, creds credentials.Source) *Sheets {
	return &Sheets{
		Spreadsheet: spreadsheet,
		Worksheet:   DefaultWorksheet,
		creds:       creds,
		newAPI:      newGoogleSheets,
		ids:         cache.New[string](),
	}
}

func (s *Sheets) Export(ctx context.Context, t summary.Table) error {
	creds, err := s.creds(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	email := credentials.ServiceAccountEmail(creds)

	api, err := s.newAPI(ctx, creds)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	id, err := s.spreadsheetID(ctx, api, email)
	if err != nil {
		return err
	}

	titles, err := api.Worksheets(ctx, id)
	if err != nil {
		// The spreadsheet may have been deleted since its ID was cached.
		s.ids.Delete(s.Spreadsheet)
		return s.apiError(err, email)
	}

	if !contains(titles, s.Worksheet) {
		if err := api.AddWorksheet(ctx, id, s.Worksheet, newWorksheetRows, newWorksheetCols); err != nil {
			return s.apiError(err, email)
		}
	}

	rng := quoteSheetName(s.Worksheet)
	if err := api.Clear(ctx, id, rng); err != nil {
		return s.apiError(err, email)
	}

	values := make([][]interface{}, 0, len(t.Rows)+1)
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	values = append(values, header)
	values = append(values, t.Rows...)

	if err := api.Write(ctx, id, rng+"!A1", values); err != nil {
		return s.apiError(err, email)
	}
	return nil
}

func (s *Sheets) spreadsheetID(ctx context.Context, api sheetsAPI, email string) (string, error) {
	if id, ok := s.ids.Lookup(s.Spreadsheet); ok {
		return id, nil
	}

	id, err := api.FindSpreadsheet(ctx, s.Spreadsheet)
	if err != nil {
		return "", s.apiError(err, email)
	}
	if id == "" {
		return "", s.notFound(email)
	}

	s.ids.Set(s.Spreadsheet, id, idCacheTTL)
	return id, nil
}

func (s *Sheets) notFound(email string) error {
	if email == "" {
		return fmt.Errorf("%w: spreadsheet %q", ErrDestinationNotFound, s.Spreadsheet)
	}
	return fmt.Errorf("%w: spreadsheet %q; make sure it exists and is shared with %s",
		ErrDestinationNotFound, s.Spreadsheet, email)
}

// apiError maps Google API status codes onto the exporter's errors.
func (s *Sheets) apiError(err error, email string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", s.notFound(email), err)
		}
	}
	return fmt.Errorf("export: sheets: %w", err)
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// quoteSheetName quotes a worksheet title for use in A1 notation.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

type googleSheets struct {
	sheets *sheets.Service
	drive  *drive.Service
}

func newGoogleSheets(ctx context.Context, creds *google.Credentials) (sheetsAPI, error) {
	sheetsSvc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}
	driveSvc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}

	return &googleSheets{
		sheets: sheetsSvc,
		drive:  driveSvc,
	}, nil
}

func (g *googleSheets) FindSpreadsheet(ctx context.Context, name string) (string, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escaped, spreadsheetMimeType)

	r, err := g.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	if len(r.Files) == 0 {
		return "", nil
	}
	return r.Files[0].Id, nil
}

func (g *googleSheets) Worksheets(ctx context.Context, id string) ([]string, error) {
	ss, err := g.sheets.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (g *googleSheets) AddWorksheet(ctx context.Context, id, title string, rows, cols int64) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: title,
						GridProperties: &sheets.GridProperties{
							RowCount:    rows,
							ColumnCount: cols,
						},
					},
				},
			},
		},
	}

	_, err := g.sheets.Spreadsheets.BatchUpdate(id, req).Context(ctx).Do()
	return err
}

func (g *googleSheets) Clear(ctx context.Context, id, rng string) error {
	_, err := g.sheets.Spreadsheets.Values.Clear(id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *googleSheets) Write(ctx context.Context, id, rng string, values [][]interface{}) error {
	vr := &sheets.ValueRange{
		Range:  rng,
		Values: values,
	}

	_, err := g.sheets.Spreadsheets.Values.Update(id, rng, vr).ValueInputOption("RAW").Context(ctx).Do()
	return err
}
