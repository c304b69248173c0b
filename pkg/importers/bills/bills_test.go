package bills_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tqviet/extraq/pkg/importer"
	"github.com/tqviet/extraq/pkg/importers/bills"
	"github.com/tqviet/extraq/pkg/source"
)

func newImporter(t *testing.T, handler http.HandlerFunc, opts *bills.Options) *bills.Importer {
	t.Helper()

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": []}`))
		}
	}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := source.NewClient(&source.Options{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)

	if opts == nil {
		opts = &bills.Options{}
	}
	opts.Client = client

	imp, err := bills.New(opts)
	require.NoError(t, err)

	return imp
}

func TestNewRequiresClient(t *testing.T) {
	_, err := bills.New(nil)
	require.Error(t, err)

	_, err = bills.New(&bills.Options{})
	require.Error(t, err)
}

func TestExtractPagesThroughListing(t *testing.T) {
	imp := newImporter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bills", r.URL.Path)
		assert.Equal(t, "voting", r.URL.Query().Get("status"))

		if r.URL.Query().Get("cursor") == "" {
			w.Write([]byte(`{
				"data": [{"id": "b1", "title": "One"}, {"id": "b2", "title": "Two"}],
				"pagination": {"cursor": "c2", "has_more": true, "total": 3}
			}`))
			return
		}
		w.Write([]byte(`{
			"data": [{"id": "b3", "title": "Three"}],
			"pagination": {"has_more": false, "total": 3}
		}`))
	}, &bills.Options{Status: "voting"})

	var ids []string
	for rec, err := range imp.Extract(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, "bills", rec.Source)
		assert.False(t, rec.ExtractedAt.IsZero())
		ids = append(ids, rec.ID)
	}

	assert.Equal(t, []string{"b1", "b2", "b3"}, ids)
}

func TestExtractSurfacesSourceFailure(t *testing.T) {
	imp := newImporter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)

	var got error
	for _, err := range imp.Extract(context.Background()) {
		if err != nil {
			got = err
			break
		}
	}

	var ae *source.AuthError
	require.ErrorAs(t, got, &ae)
}

func TestTransform(t *testing.T) {
	imp := newImporter(t, nil, nil)

	record := func(payload map[string]any) importer.SourceRecord {
		return importer.SourceRecord{
			ID:      "b1",
			Source:  "bills",
			Payload: payload,
		}
	}

	t.Run("maps known fields", func(t *testing.T) {
		tgt, err := imp.Transform(context.Background(), record(map[string]any{
			"id":       "b1",
			"title":    "Water Act",
			"status":   "voting",
			"version":  float64(3),
			"category": "environment",
			"region":   "north",
			"author":   map[string]any{"id": "a9", "name": "Someone"},
		}))
		require.NoError(t, err)

		assert.Equal(t, "bills:b1", tgt.ID)
		assert.Equal(t, "b1", tgt.SourceID)
		assert.Equal(t, "Water Act", tgt.Payload["title"])
		assert.Equal(t, "voting", tgt.Payload["status"])
		assert.Equal(t, "north", tgt.Payload["region"])
		assert.Equal(t, "a9", tgt.Payload["authorId"])
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := imp.Transform(context.Background(), record(map[string]any{
			"id":     "b1",
			"status": "voting",
		}))

		var terr *importer.TransformError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "title", terr.Field)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := imp.Transform(context.Background(), record(map[string]any{
			"id":     "b1",
			"title":  "Water Act",
			"status": "vetoed",
		}))

		var terr *importer.TransformError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "status", terr.Field)
	})

	t.Run("optional fields omitted", func(t *testing.T) {
		tgt, err := imp.Transform(context.Background(), record(map[string]any{
			"id":     "b1",
			"title":  "Water Act",
			"status": "draft",
		}))
		require.NoError(t, err)

		_, hasRegion := tgt.Payload["region"]
		assert.False(t, hasRegion)
		_, hasAuthor := tgt.Payload["authorId"]
		assert.False(t, hasAuthor)
	})
}

func TestEstimatedCount(t *testing.T) {
	imp := newImporter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "passed", r.URL.Query().Get("status"))

		w.Write([]byte(`{
			"data": [{"id": "b1", "title": "One"}],
			"pagination": {"has_more": true, "cursor": "c2", "total": 128}
		}`))
	}, &bills.Options{Status: "passed"})

	n, err := imp.EstimatedCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 128, n)
}

func TestEstimatedCountWithoutTotal(t *testing.T) {
	imp := newImporter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}, nil)

	_, err := imp.EstimatedCount(context.Background())
	require.Error(t, err)
}
