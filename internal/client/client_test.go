package client

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fastprodman/ledger/internal/api"
	"github.com/fastprodman/ledger/internal/repos/ledgerlog/memory"
	"github.com/fastprodman/ledger/internal/services/ledger"
)

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	return c
}

func newLedgerClient(t *testing.T) *Client {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(memory.New(), ledger.WithLogger(log))

	return newClient(t, api.NewRouter(l, log))
}

func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newLedgerClient(t)
	ctx := t.Context()

	_, err := c.Undo(ctx)
	if !errors.Is(err, ledger.ErrNothingToUndo) {
		t.Fatalf("undo on empty: want ErrNothingToUndo, got %v", err)
	}

	_, err = c.Redo(ctx)
	if !errors.Is(err, ledger.ErrNothingToRedo) {
		t.Fatalf("redo on empty: want ErrNothingToRedo, got %v", err)
	}

	_, err = c.Credit(ctx, -1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative credit: want ErrInvalidInput, got %v", err)
	}

	out, err := c.Credit(ctx, 500)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	if out.Message != "Credit added. Balance = 500" {
		t.Fatalf("unexpected message %q", out.Message)
	}

	out, err = c.Debit(ctx, 100)
	if err != nil || out.Balance != 400 {
		t.Fatalf("debit: %+v %v", out, err)
	}

	out, err = c.Undo(ctx)
	if err != nil || out.Balance != 500 || out.Transaction.Type != "debit" {
		t.Fatalf("undo: %+v %v", out, err)
	}

	list, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(list.Transactions) != 1 || !list.CanRedo || !list.CanUndo {
		t.Fatalf("unexpected list: %+v", list)
	}

	out, err = c.Redo(ctx)
	if err != nil || out.Balance != 400 {
		t.Fatalf("redo: %+v %v", out, err)
	}
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal server error"}`))
	}))

	_, err := c.List(t.Context())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}

	if apiErr.Status != http.StatusInternalServerError || apiErr.Message != api.MsgInternalServer {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"localhost:8080", "ftp://host", "://"} {
		_, err := New(raw)
		if err == nil {
			t.Fatalf("%q: want error", raw)
		}
	}
}
