package view

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"bhcpharm/m/domain"
	"bhcpharm/m/internal/gateway"
	"bhcpharm/m/internal/migrations"
	"bhcpharm/m/internal/session"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	db, err := sqlx.Connect("sqlite", filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	migrations.Run(db)
	t.Cleanup(func() { db.Close() })
	return session.Open(db)
}

func runApp(t *testing.T, serverURL string, store *session.Store, script string) string {
	t.Helper()
	api := gateway.New(serverURL, 5*time.Second, store)
	var out bytes.Buffer
	app := NewApp(store, api, strings.NewReader(script), &out)
	require.NoError(t, app.Run(context.Background()))
	return out.String()
}

// A 401 mid-session must land the user back at the login prompt, logged
// out, without an unhandled error.
func TestExpiredTokenLogsOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer server.Close()

	store := newStore(t)
	require.NoError(t, store.Activate("stale-token", domain.Principal{ID: 1, Username: "clara", Role: domain.RoleAdmin}))

	output := runApp(t, server.URL, store, "inventory\nquit\n")

	assert.Contains(t, output, "Session expired")
	assert.False(t, store.Authenticated())
}

func TestScriptedSaleFlow(t *testing.T) {
	var submitted domain.SaleSubmission

	r := chi.NewRouter()
	r.Get("/pharmacy/inventory", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]domain.InventoryItem{
			{ID: 1, Name: "Amoxicillin", SKU: "AMX-500", Quantity: 5, UnitPrice: 10, ReorderLevel: 2},
		})
	})
	r.Post("/pharmacy/sales/direct", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&submitted))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Sale{ID: 9, ReceiptNumber: "R-009", TotalAmount: submitted.TotalAmount})
	})
	server := httptest.NewServer(r)
	defer server.Close()

	store := newStore(t)
	require.NoError(t, store.Activate("some-token", domain.Principal{ID: 1, Username: "clara", Role: domain.RoleCashier}))

	// open the dialog, add item 1, ask for 9 (clamped to the 5 in stock),
	// submit as walk-in
	output := runApp(t, server.URL, store, "sale\nadd 1\nqty 1 9\nsubmit\nquit\n")

	assert.Contains(t, output, "Sale completed for 50.00")
	assert.Contains(t, output, "R-009")

	require.Len(t, submitted.Items, 1)
	assert.Equal(t, domain.SaleSubmissionItem{MedicineID: 1, Quantity: 5, PricePerUnit: 10, Subtotal: 50}, submitted.Items[0])
	assert.Equal(t, "Walk-in Customer", submitted.CustomerName)
	assert.InDelta(t, 50.0, submitted.TotalAmount, 1e-9)
}

func TestEmptySaleSubmitRejectedLocally(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pharmacy/inventory" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
			return
		}
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := newStore(t)
	require.NoError(t, store.Activate("some-token", domain.Principal{ID: 1, Username: "clara", Role: domain.RoleCashier}))

	output := runApp(t, server.URL, store, "sale\nsubmit\ncancel\nquit\n")

	assert.Contains(t, output, "Please add items to the sale.")
	assert.Zero(t, requests, "empty draft must not reach the server")
}
