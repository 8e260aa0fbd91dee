package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/ajitpratap0/sheetdb/pkg/auth"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})
	status := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"backend unavailable"}}`, status)
		return
	}

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "values:batchGet"):
		_, _ = io.WriteString(w, `{"valueRanges":[
			{"range":"Teams!A1:B2","values":[["ID","Name"],["t1","Core"]]},
			{"range":"People!A1:C2","values":[["ID","Name","Age"],["p1","Ada","36"]]}]}`)
	case strings.HasSuffix(path, ":append"):
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":batchUpdate"):
		_, _ = io.WriteString(w, `{"replies":[{}]}`)
	case strings.Contains(path, "/values/") && r.Method == http.MethodPut:
		_, _ = io.WriteString(w, `{}`)
	case strings.Contains(path, "/values/"):
		_, _ = io.WriteString(w, `{"range":"People!A1:C1","values":[["ID","Name","Age"]]}`)
	default:
		_, _ = io.WriteString(w, `{"sheets":[
			{"properties":{"sheetId":0,"title":"People","index":0}},
			{"properties":{"sheetId":91,"title":"Teams","index":1}}]}`)
	}
}

func (f *fakeAPI) last() capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newGoogleStore(t *testing.T, api *fakeAPI, creds auth.CredentialSource) *GoogleStore {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	store, err := NewGoogleStore(context.Background(), creds, GoogleOptions{Endpoint: srv.URL + "/"})
	require.NoError(t, err)
	return store
}

func TestGoogleStoreGet(t *testing.T) {
	api := &fakeAPI{}
	store := newGoogleStore(t, api, auth.Static("tok"))

	vr, err := store.Get(context.Background(), "s1", "'People'!1:1")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"ID", "Name", "Age"}}, vr.Values)

	req := api.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Contains(t, req.Path, "/spreadsheets/s1/values/")
	assert.Equal(t, "Bearer tok", req.Auth)
}

func TestGoogleStoreBatchGet(t *testing.T) {
	api := &fakeAPI{}
	store := newGoogleStore(t, api, auth.Static("tok"))

	got, err := store.BatchGet(context.Background(), "s1", []string{"People!A:C", "Teams!A:B"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Teams!A1:B2", got[0].Range)
	assert.Equal(t, []any{"p1", "Ada", "36"}, got[1].Values[1])

	req := api.last()
	assert.Contains(t, req.Query, "ranges=People")
	assert.Contains(t, req.Query, "ranges=Teams")
}

func TestGoogleStoreAppendSendsInputOption(t *testing.T) {
	api := &fakeAPI{}
	store := newGoogleStore(t, api, auth.Static("tok"))

	require.NoError(t, store.Append(context.Background(), "s1", "'People'!A1", [][]any{{"p2", "Grace", "85"}}))

	req := api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Contains(t, req.Query, "valueInputOption=USER_ENTERED")
	assert.Contains(t, req.Query, "insertDataOption=INSERT_ROWS")

	var body struct {
		Values [][]any `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(req.Body), &body))
	assert.Equal(t, [][]any{{"p2", "Grace", "85"}}, body.Values)
}

func TestGoogleStoreUpdate(t *testing.T) {
	api := &fakeAPI{}
	store := newGoogleStore(t, api, auth.Static("tok"))

	require.NoError(t, store.Update(context.Background(), "s1", "'People'!A3:C3", [][]any{{"p1", "Ada", "37"}}))
	req := api.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Contains(t, req.Query, "valueInputOption=USER_ENTERED")
}

func TestGoogleStoreDeleteRowSendsZeroSheetID(t *testing.T) {
	api := &fakeAPI{}
	store := newGoogleStore(t, api, auth.Static("tok"))

	require.NoError(t, store.DeleteRow(context.Background(), "s1", 0, 4))

	req := api.last()
	assert.True(t, strings.HasSuffix(req.Path, ":batchUpdate"))

	var body struct {
		Requests []struct {
			DeleteDimension struct {
				Range struct {
					SheetID    *int64 `json:"sheetId"`
					Dimension  string `json:"dimension"`
					StartIndex int64  `json:"startIndex"`
					EndIndex   int64  `json:"endIndex"`
				} `json:"range"`
			} `json:"deleteDimension"`
		} `json:"requests"`
	}
	require.NoError(t, json.Unmarshal([]byte(req.Body), &body))
	require.Len(t, body.Requests, 1)
	rng := body.Requests[0].DeleteDimension.Range
	require.NotNil(t, rng.SheetID)
	assert.Equal(t, int64(0), *rng.SheetID)
	assert.Equal(t, "ROWS", rng.Dimension)
	assert.Equal(t, int64(3), rng.StartIndex)
	assert.Equal(t, int64(4), rng.EndIndex)
}

func TestGoogleStoreSheets(t *testing.T) {
	api := &fakeAPI{}
	store := newGoogleStore(t, api, auth.Static("tok"))

	got, err := store.Sheets(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []SheetInfo{{ID: 0, Title: "People", Index: 0}, {ID: 91, Title: "Teams", Index: 1}}, got)
	assert.Contains(t, api.last().Query, "fields=sheets.properties")
}

func TestGoogleStoreSurfacesStatus(t *testing.T) {
	api := &fakeAPI{status: http.StatusServiceUnavailable}
	store := newGoogleStore(t, api, auth.Static("tok"))

	_, err := store.Get(context.Background(), "s1", "People!A:C")
	require.Error(t, err)

	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Code)
}

func TestGoogleStoreWithoutCredential(t *testing.T) {
	api := &fakeAPI{}
	store := newGoogleStore(t, api, auth.Static(""))

	_, err := store.Get(context.Background(), "s1", "People!A:C")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthMissing))
	assert.Empty(t, api.requests)
}
