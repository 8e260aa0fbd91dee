package sheetdb

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sheetdb/pkg/auth"
	"github.com/ajitpratap0/sheetdb/pkg/cache"
	"github.com/ajitpratap0/sheetdb/pkg/errors"
	"github.com/ajitpratap0/sheetdb/pkg/schema"
	"github.com/ajitpratap0/sheetdb/pkg/sheets"
	"github.com/ajitpratap0/sheetdb/pkg/sheets/sheetstest"
)

func seedTeams(store *sheetstest.Store) {
	store.AddSheet(storeID, "Teams",
		[]any{"Team", "Team ID"},
		[]any{"Analytical Engine", "t1"},
	)
}

func TestBatchFetchDemultiplexesBySheet(t *testing.T) {
	ctx := context.Background()
	db, store := newTestDB(t, auth.Static("tok"))
	seedPeople(store)
	seedTeams(store)
	store.ReverseBatch = true

	result, err := db.BatchFetch(ctx, storeID, []Dataset{
		NewDataset("people", peopleEntry()),
		NewDataset("teams", teamEntry()),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"people", "teams"}, result.Keys())
	people := Rows[person](result, "people")
	require.Len(t, people, 3)
	assert.Equal(t, "Ada", people[0].Name)
	assert.Equal(t, []team{{ID: "t1", Name: "Analytical Engine"}}, Rows[team](result, "teams"))
	assert.Nil(t, Rows[team](result, "people"), "wrong entity type yields nil")
	assert.Equal(t, 1, store.Count(sheetstest.OpBatchGet))
}

func TestBatchFetchEmptyDataset(t *testing.T) {
	db, store := newTestDB(t, auth.Static("tok"))
	store.AddSheet(storeID, "Teams", []any{"Team ID", "Team"})

	result, err := db.BatchFetch(context.Background(), storeID, []Dataset{NewDataset("teams", teamEntry())})
	require.NoError(t, err)
	teams := Rows[team](result, "teams")
	assert.NotNil(t, teams)
	assert.Empty(t, teams)
}

func TestBatchFetchCachesWholeResult(t *testing.T) {
	ctx := context.Background()
	db, store := newTestDB(t, auth.Static("tok"))
	seedPeople(store)
	seedTeams(store)

	first := []Dataset{NewDataset("people", peopleEntry()), NewDataset("teams", teamEntry())}
	_, err := db.BatchFetch(ctx, storeID, first)
	require.NoError(t, err)

	reordered := []Dataset{NewDataset("teams", teamEntry()), NewDataset("people", peopleEntry())}
	_, err = db.BatchFetch(ctx, storeID, reordered)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Count(sheetstest.OpBatchGet), "range order does not change the cache key")

	db.ClearCache()
	_, err = db.BatchFetch(ctx, storeID, first)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count(sheetstest.OpBatchGet))
}

func TestBatchFetchFailureFailsWholeCall(t *testing.T) {
	db, store := newTestDB(t, auth.Static("tok"))
	seedPeople(store)
	seedTeams(store)
	store.FailNext(sheetstest.OpBatchGet, sheetstest.Status(http.StatusNotFound))

	result, err := db.BatchFetch(context.Background(), storeID, []Dataset{
		NewDataset("people", peopleEntry()),
		NewDataset("teams", teamEntry()),
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemote))
	assert.Equal(t, 1, store.Count(sheetstest.OpBatchGet))
}

func TestBatchFetchRejectsForeignDataset(t *testing.T) {
	db, _ := newTestDB(t, auth.Static("tok"))
	_, err := db.BatchFetch(context.Background(), "other-store", []Dataset{NewDataset("people", peopleEntry())})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = db.BatchFetch(context.Background(), storeID, []Dataset{{Key: "raw", StoreID: storeID}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestMatchRanges(t *testing.T) {
	people := Dataset{Key: "people", Sheet: "People"}
	archive := Dataset{Key: "archive", Sheet: "People"}
	spaced := Dataset{Key: "spaced", Sheet: "My Teams"}

	got, err := matchRanges([]Dataset{people, spaced, archive}, []sheets.ValueRange{
		{Range: "'My Teams'!A1:B3"},
		{Range: "People!A1:E4"},
		{Range: "People!F1:G4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "People!A1:E4", got[0].Range)
	assert.Equal(t, "'My Teams'!A1:B3", got[1].Range)
	assert.Equal(t, "People!F1:G4", got[2].Range)

	_, err = matchRanges([]Dataset{people}, []sheets.ValueRange{{Range: "Teams!A1:B2"}})
	assert.Error(t, err)
}

func TestFetchStoresIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	db, store := newTestDB(t, auth.Static("tok"), WithMaxConcurrency(2))
	seedPeople(store)

	other := peopleEntry()
	other.StoreID = "missing-store"

	results := db.FetchStores(ctx, map[string][]Dataset{
		storeID:         {NewDataset("people", peopleEntry())},
		"missing-store": {NewDataset("people", other)},
	})

	require.Len(t, results, 2)
	require.NoError(t, results[storeID].Err)
	assert.Len(t, Rows[person](results[storeID].Result, "people"), 3)

	require.Error(t, results["missing-store"].Err)
	assert.True(t, errors.IsType(results["missing-store"].Err, errors.ErrorTypeRemote))
}

func TestSyncStoreBypassesCacheAndMarksJournal(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	journal := cache.NewMemoryJournal()
	db, store := newTestDB(t, auth.Static("tok"), WithJournal(journal), WithClock(func() time.Time { return at }))
	seedPeople(store)
	seedTeams(store)
	datasets := []Dataset{NewDataset("people", peopleEntry()), NewDataset("teams", teamEntry())}

	_, err := db.BatchFetch(ctx, storeID, datasets)
	require.NoError(t, err)
	_, err = db.SyncStore(ctx, storeID, datasets)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count(sheetstest.OpBatchGet), "sync ignores the cached batch")

	entry, ok, err := db.LastSync(ctx, storeID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, at, entry.SyncedAt)
	assert.Equal(t, []string{"people", "teams"}, entry.Datasets)

	require.NoError(t, db.InvalidateJournal(ctx, storeID))
	_, ok, err = db.LastSync(ctx, storeID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchRejectsInvalidEntry(t *testing.T) {
	db, _ := newTestDB(t, auth.Static("tok"))
	entry := peopleEntry()
	entry.Validator = nil

	_, err := Fetch(context.Background(), db, entry)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	var nilEntry *schema.Entry[person]
	_, err = Fetch(context.Background(), db, nilEntry)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
