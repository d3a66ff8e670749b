package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"hoteldash/internal/core"
	"hoteldash/internal/sources"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultRange is read when GOOGLE_SHEET_RANGE is unset.
const DefaultRange = "Bookings"

// Source reads the bookings table from a spreadsheet range. The first row of
// the range is the header.
type Source struct {
	svc           *gsheet.Service
	spreadsheetID string
	readRange     string
	schema        core.Schema
}

var _ sources.Loader = (*Source)(nil)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, readRange string, schema core.Schema) *Source {
	if strings.TrimSpace(readRange) == "" {
		readRange = DefaultRange
	}
	return &Source{svc: svc, spreadsheetID: spreadsheetID, readRange: readRange, schema: schema}
}

// NewFromEnv creates a read-only Sheets source using service account credentials.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_RANGE (default "Bookings")
func NewFromEnv(ctx context.Context, schema core.Schema) (*Source, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := NewServiceFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return New(svc, spreadsheetID, os.Getenv("GOOGLE_SHEET_RANGE"), schema), nil
}

// NewServiceFromEnv initializes a read-only Sheets Service. Service account
// credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS. Without them an OAuth client and a saved
// token are used (GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE, and
// GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE).
func NewServiceFromEnv(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return newOAuthService(ctx)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return service, nil
}

func newOAuthService(ctx context.Context) (*gsheet.Service, error) {
	clientJSON, err := envOrFile("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	if clientJSON == nil {
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or GOOGLE_OAUTH_CLIENT_JSON/GOOGLE_OAUTH_CLIENT_FILE)")
	}
	tokenJSON, err := envOrFile("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	cfg, err := OAuthConfig(clientJSON)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	slog.InfoContext(ctx, "Using OAuth client credentials")
	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return service, nil
}

// OAuthConfig parses an OAuth client file for read-only spreadsheet access.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// envOrFile returns the inline value of jsonKey, or the contents of the file
// named by fileKey. Both unset yields nil.
func envOrFile(jsonKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(jsonKey)); v != "" {
		return []byte(v), nil
	}
	path := strings.TrimSpace(os.Getenv(fileKey))
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileKey, err)
	}
	return b, nil
}

// Name implements sources.Loader
func (s *Source) Name() string {
	return fmt.Sprintf("sheets:%s!%s", s.spreadsheetID, s.readRange)
}

// Load implements sources.Loader
func (s *Source) Load(ctx context.Context) (*core.Dataset, error) {
	if s.svc == nil {
		return nil, core.NewDataLoadError(s.Name(), errors.New("sheets service not initialized"))
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, core.NewDataLoadError(s.Name(), fmt.Errorf("read range %s: %w", s.readRange, err))
	}

	records, err := toRecords(resp.Values)
	if err != nil {
		return nil, core.NewDataLoadError(s.Name(), err)
	}
	ds, err := core.FromRecords(records, s.schema)
	if err != nil {
		return nil, core.NewDataLoadError(s.Name(), err)
	}

	rows, cols := ds.Shape()
	slog.InfoContext(ctx, "Dataset loaded from spreadsheet",
		"spreadsheet_id", s.spreadsheetID,
		"range", s.readRange,
		"rows", rows,
		"columns", cols)
	return ds, nil
}

// toRecords converts a values matrix into rectangular string records. The
// API trims trailing empty cells, so short rows are padded to the header
// width; cells past the header are dropped.
func toRecords(values [][]interface{}) ([][]string, error) {
	if len(values) == 0 {
		return nil, errors.New("range is empty")
	}
	header := toStrings(values[0])
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, errors.New("header row is empty")
	}

	out := make([][]string, 0, len(values))
	out = append(out, header)
	for _, row := range values[1:] {
		cells := toStrings(row)
		if isBlank(cells) {
			continue
		}
		rec := make([]string, len(header))
		for i := range rec {
			rec[i] = safeGet(cells, i)
		}
		out = append(out, rec)
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
