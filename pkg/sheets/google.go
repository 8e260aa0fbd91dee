package sheets

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/ajitpratap0/sheetdb/pkg/auth"
	"github.com/ajitpratap0/sheetdb/pkg/config"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
)

// GoogleOptions configures a GoogleStore.
type GoogleOptions struct {
	// Endpoint overrides the API base URL
	Endpoint string
	// UserAgent is sent with every request
	UserAgent string
	// ValueInputOption is USER_ENTERED (default) or RAW
	ValueInputOption string
	// RequestTimeout bounds a single HTTP request; zero means none
	RequestTimeout time.Duration
	// Base is the round tripper under the bearer injection
	Base http.RoundTripper
	Logger *zap.Logger
}

// OptionsFromConfig maps the store settings onto GoogleOptions.
func OptionsFromConfig(cfg config.StoreConfig, l *zap.Logger) GoogleOptions {
	return GoogleOptions{
		Endpoint:         cfg.Endpoint,
		UserAgent:        cfg.UserAgent,
		ValueInputOption: cfg.ValueInputOption,
		RequestTimeout:   cfg.RequestTimeout,
		Logger:           l,
	}
}

// GoogleStore implements Store with the Sheets v4 API.
type GoogleStore struct {
	svc       *sheetsapi.Service
	inputMode string
	logger    *zap.Logger
}

// NewGoogleStore builds a Store whose requests carry the bearer token from creds.
func NewGoogleStore(ctx context.Context, creds auth.CredentialSource, opts GoogleOptions) (*GoogleStore, error) {
	client := auth.HTTPClient(opts.Base, creds)
	client.Timeout = opts.RequestTimeout

	clientOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	if opts.UserAgent != "" {
		clientOpts = append(clientOpts, option.WithUserAgent(opts.UserAgent))
	}

	svc, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create sheets service")
	}

	inputMode := opts.ValueInputOption
	if inputMode == "" {
		inputMode = InputUserEntered
	}

	return &GoogleStore{
		svc:       svc,
		inputMode: inputMode,
		logger:    logger.OrGlobal(opts.Logger).With(zap.String("component", "google_store")),
	}, nil
}

func (g *GoogleStore) Get(ctx context.Context, storeID, a1 string) (ValueRange, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(storeID, a1).Context(ctx).Do()
	if err != nil {
		return ValueRange{}, err
	}
	return fromAPI(resp), nil
}

func (g *GoogleStore) BatchGet(ctx context.Context, storeID string, ranges []string) ([]ValueRange, error) {
	resp, err := g.svc.Spreadsheets.Values.BatchGet(storeID).Ranges(ranges...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]ValueRange, 0, len(resp.ValueRanges))
	for _, vr := range resp.ValueRanges {
		out = append(out, fromAPI(vr))
	}
	return out, nil
}

func (g *GoogleStore) Append(ctx context.Context, storeID, a1 string, rows [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Append(storeID, a1, &sheetsapi.ValueRange{Values: toAPI(rows)}).
		ValueInputOption(g.inputMode).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g *GoogleStore) Update(ctx context.Context, storeID, a1 string, rows [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Update(storeID, a1, &sheetsapi.ValueRange{Values: toAPI(rows)}).
		ValueInputOption(g.inputMode).
		Context(ctx).
		Do()
	return err
}

func (g *GoogleStore) DeleteRow(ctx context.Context, storeID string, sheetID int64, row int) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(row - 1),
					EndIndex:        int64(row),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	g.logger.Debug("deleting row", zap.String("store", storeID), zap.Int64("sheet_id", sheetID), zap.Int("row", row))
	_, err := g.svc.Spreadsheets.BatchUpdate(storeID, req).Context(ctx).Do()
	return err
}

func (g *GoogleStore) Sheets(ctx context.Context, storeID string) ([]SheetInfo, error) {
	resp, err := g.svc.Spreadsheets.Get(storeID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]SheetInfo, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		out = append(out, SheetInfo{
			ID:    s.Properties.SheetId,
			Title: s.Properties.Title,
			Index: int(s.Properties.Index),
		})
	}
	return out, nil
}

func fromAPI(vr *sheetsapi.ValueRange) ValueRange {
	if vr == nil {
		return ValueRange{}
	}
	values := make([][]any, len(vr.Values))
	for i, row := range vr.Values {
		values[i] = append([]any(nil), row...)
	}
	return ValueRange{Range: vr.Range, Values: values}
}

func toAPI(rows [][]any) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = append([]interface{}(nil), row...)
	}
	return out
}
