package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-backend/internal/config"
)

func TestUpsertPutsRawBody(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		assert.Equal(t, "app-1", r.Header.Get("X-Algolia-Application-Id"))
		assert.Equal(t, "key-1", r.Header.Get("X-Algolia-API-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(&config.Config{SearchAppID: "app-1", SearchAPIKey: "key-1", SearchAPIURL: srv.URL})
	err := c.Upsert(context.Background(), IndexProducts, "p1", []byte(`{"title": "Denim Jacket"}`))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/1/indexes/products/p1", gotPath)
	assert.JSONEq(t, `{"title": "Denim Jacket"}`, gotBody)
}

func TestDeleteRemovesObject(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(&config.Config{SearchAppID: "app-1", SearchAPIKey: "key-1", SearchAPIURL: srv.URL})
	err := c.Delete(context.Background(), IndexOrders, "o1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/1/indexes/orders/o1", gotPath)
}

func TestErrorsIncludeStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "Invalid API key"}`))
	}))
	defer srv.Close()

	c := New(&config.Config{SearchAppID: "app-1", SearchAPIKey: "bad", SearchAPIURL: srv.URL})
	err := c.Upsert(context.Background(), IndexUsers, "u1", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Invalid API key")
}
