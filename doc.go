// Package sheetdb lets applications keep typed records in spreadsheet tabs
// and treat them as a small database.
//
// Every sheet is a table: its first row holds the column headers and every
// following row is one record. Records are matched to headers by name, never
// by position, so columns can be reordered in the spreadsheet without
// breaking readers.
//
// # Quick Start
//
// Describe an entity, open a DB and read it:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/sheetdb/pkg/auth"
//	    "github.com/ajitpratap0/sheetdb/pkg/config"
//	    "github.com/ajitpratap0/sheetdb/pkg/schema"
//	    "github.com/ajitpratap0/sheetdb/pkg/sheetdb"
//	)
//
//	type Person struct {
//	    ID   string `sheet:"id" validate:"required"`
//	    Name string `sheet:"name" validate:"required"`
//	    Age  int    `sheet:"age"`
//	}
//
//	people := &schema.Entry[Person]{
//	    StoreID:    "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
//	    SheetRange: "People!A:C",
//	    KeyField:   "id",
//	    Columns: map[string]schema.Column{
//	        "id":   {Header: "ID"},
//	        "name": {Header: "Name"},
//	        "age":  {Header: "Age", Kind: schema.KindNumber},
//	    },
//	    Validator: schema.NewStructValidator(Person{}),
//	}
//
//	cfg := config.NewBaseConfig("crm")
//	db, err := sheetdb.Open(ctx, cfg, auth.Static(token), nil)
//	defer db.Close()
//
//	all, err := sheetdb.Fetch(ctx, db, people)
//	err = sheetdb.Update(ctx, db, people, Person{ID: "p1", Name: "Ada", Age: 37})
//
// # Key Packages
//
//	pkg/sheetdb        - Fetch, batch fetch, append/create/update/delete, sync
//	pkg/schema         - Entity descriptors, validators and the entry registry
//	pkg/codec          - Header maps, row decoding/encoding and A1 notation
//	pkg/sheets         - Remote store interface and the Sheets API v4 client
//	pkg/clients        - Retrying, rate limited, instrumented request transport
//	pkg/cache          - TTL read cache and durable sync journal backends
//	pkg/auth           - Bearer credential sources
//	pkg/config         - Unified YAML and environment configuration
//	pkg/errors         - Categorized errors
//	pkg/logger         - Structured logging
//	pkg/metrics        - Prometheus collectors
//	pkg/observability  - Tracing setup and the metrics endpoint
//
// # Consistency
//
// Reads are cached for a configurable TTL. Every successful write clears
// the whole cache and invalidates the store's sync journal entry, so the
// next read goes to the remote store. Update and delete always locate their
// row with a fresh read right before the mutation.
//
// # Configuration
//
// Configuration is loaded from YAML with ${VAR_NAME} expansion, then
// overridden by SHEETDB_* environment variables:
//
//	store:
//	  value_input_option: USER_ENTERED
//	reliability:
//	  retry_attempts: 3
//	  retry_delay: 1s
//	cache:
//	  ttl: 5m
//	journal:
//	  backend: sqlite
//	  path: ./sheetdb-journal.db
//
// # Command Line
//
// The sheetdb command exposes the same operations for ad-hoc use:
//
//	sheetdb sheets <store-id>
//	sheetdb fetch <store-id> 'People!A:C' 'Teams!A:B'
//	sheetdb get <store-id> 'People!A:C' p1
//	sheetdb sync <store-id> 'People!A:C'
package sheetdb
