package typesense

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmandinski/aisearch-sub002/pkg/config"
)

type fakeTypesense struct {
	mu       sync.Mutex
	existing []string
	created  []map[string]interface{}
}

func (f *fakeTypesense) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("GET /collections", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "xyz", r.Header.Get("X-TYPESENSE-API-KEY"))
		f.mu.Lock()
		defer f.mu.Unlock()
		cols := make([]map[string]interface{}, 0, len(f.existing))
		for _, name := range f.existing {
			cols = append(cols, map[string]interface{}{"name": name, "fields": []interface{}{}, "num_documents": 0})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cols)
	})
	mux.HandleFunc("POST /collections", func(w http.ResponseWriter, r *http.Request) {
		var schema map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&schema))
		f.mu.Lock()
		f.created = append(f.created, schema)
		f.mu.Unlock()

		schema["num_documents"] = 0
		schema["created_at"] = 0
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(schema)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeTypesense) *Client {
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(&config.TypesenseConfig{
		URL:        server.URL,
		APIKey:     "xyz",
		Collection: "site_content",
	})
	require.NoError(t, err)
	return client
}

func TestInitSchema_CreatesMissingCollection(t *testing.T) {
	fake := &fakeTypesense{existing: []string{"other"}}
	client := newTestClient(t, fake)

	require.NoError(t, client.InitSchema(t.Context()))

	require.Len(t, fake.created, 1)
	assert.Equal(t, "site_content", fake.created[0]["name"])
	assert.Equal(t, "published_at", fake.created[0]["default_sorting_field"])

	fields, ok := fake.created[0]["fields"].([]interface{})
	require.True(t, ok)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.(map[string]interface{})["name"].(string))
	}
	assert.Contains(t, names, "type")
	assert.Contains(t, names, "ai_score")
}

func TestInitSchema_ExistingCollectionIsNoop(t *testing.T) {
	fake := &fakeTypesense{existing: []string{"site_content"}}
	client := newTestClient(t, fake)

	require.NoError(t, client.InitSchema(t.Context()))
	assert.Empty(t, fake.created)
	assert.Equal(t, "site_content", client.Collection())
}

func TestSiteContentSchema_Facets(t *testing.T) {
	schema := siteContentSchema("posts")

	facets := map[string]bool{}
	for _, f := range schema.Fields {
		if f.Facet != nil && *f.Facet {
			facets[f.Name] = true
		}
	}
	assert.Equal(t, map[string]bool{"type": true, "author": true, "categories": true, "tags": true}, facets)
	assert.Equal(t, "posts", schema.Name)
}
