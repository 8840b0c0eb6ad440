package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/things", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"name": "db"})
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	c := NewClient(srv.URL)
	require.NoError(t, c.Get(context.Background(), "/things", &out))
	assert.Equal(t, "db", out.Name)
}

func TestClientPostSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "db", in["name"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Post(context.Background(), "/things", map[string]string{"name": "db"}, nil)
	require.NoError(t, err)
}

func TestClientExtractsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "service [db] does not exist"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Get(context.Background(), "/things", nil)
	require.Error(t, err)
	assert.Equal(t, "service [db] does not exist", err.Error())
}

func TestClientStatusErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Get(context.Background(), "/things", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url)
	err := c.Get(context.Background(), "/things", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach supervisor")
}
