package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileRow struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Eligible bool   `json:"is_eligible_for_free_pass"`
}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := New(&Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	})
	return client, srv
}

func TestClient_Select_Single(t *testing.T) {
	var gotPath, gotQuery, gotAPIKey string

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("apikey")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"user_id":"u1","email":"a@b.c","is_eligible_for_free_pass":true}]`))
	})
	defer srv.Close()

	var row profileRow
	err := client.Select("users", "user_id", "email", "is_eligible_for_free_pass").
		Eq("email", "a@b.c").
		Single(context.Background(), &row)

	require.NoError(t, err)
	assert.Equal(t, "u1", row.UserID)
	assert.True(t, row.Eligible)
	assert.Equal(t, "/users", gotPath)
	assert.Contains(t, gotQuery, "email=eq.a%40b.c")
	assert.Contains(t, gotQuery, "select=user_id%2Cemail%2Cis_eligible_for_free_pass")
	assert.Equal(t, "test-key", gotAPIKey)
}

func TestClient_Select_Single_NoRows(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	defer srv.Close()

	var row profileRow
	err := client.Select("users").Eq("email", "nobody@b.c").Single(context.Background(), &row)

	assert.ErrorIs(t, err, ErrNoRows)
}

func TestClient_Select_List(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "user_id=eq.u1")
		assert.Contains(t, r.URL.RawQuery, "payment_status=eq.paid")
		w.Write([]byte(`[{"user_id":"u1"},{"user_id":"u1"}]`))
	})
	defer srv.Close()

	var rows []map[string]any
	err := client.Select("payments").
		Eq("user_id", "u1").
		Eq("payment_status", "paid").
		List(context.Background(), &rows)

	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestClient_Select_ServerError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer srv.Close()

	var rows []map[string]any
	err := client.Select("payments").Eq("user_id", "u1").List(context.Background(), &rows)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "resp.StatusCode: 500")
}

func TestClient_Insert(t *testing.T) {
	var gotBody map[string]any
	var gotPrefer string

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payments", r.URL.Path)
		gotPrefer = r.Header.Get("Prefer")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	})
	defer srv.Close()

	err := client.Insert(context.Background(), "payments", map[string]any{
		"user_id":        "u1",
		"amount":         500,
		"payment_status": "paid",
		"payment_id":     "pay_123",
	})

	require.NoError(t, err)
	assert.Equal(t, "return=minimal", gotPrefer)
	assert.Equal(t, "pay_123", gotBody["payment_id"])
	assert.Equal(t, float64(500), gotBody["amount"])
}

func TestClient_Insert_Conflict(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"duplicate key"}`, http.StatusConflict)
	})
	defer srv.Close()

	err := client.Insert(context.Background(), "payments", map[string]any{"payment_id": "pay_123"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "resp.StatusCode: 409")
}

func TestClient_Select_ContextCancelled(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rows []map[string]any
	err := client.Select("payments").List(ctx, &rows)
	assert.Error(t, err)
}
