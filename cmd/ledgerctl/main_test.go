package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fastprodman/ledger/internal/api"
	"github.com/fastprodman/ledger/internal/repos/ledgerlog/memory"
	"github.com/fastprodman/ledger/internal/services/ledger"
)

func newAPI(t *testing.T) string {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(api.NewRouter(ledger.New(memory.New(), ledger.WithLogger(log)), log))
	t.Cleanup(srv.Close)

	return srv.URL
}

func TestRun_Commands(t *testing.T) {
	t.Parallel()

	url := newAPI(t)

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"credit", "500"}, "Credit added. Balance = 500"},
		{[]string{"debit", "100"}, "Debit added. Balance = 400"},
		{[]string{"credit", "200"}, "Credit added. Balance = 600"},
		{[]string{"undo"}, "Undo done. Balance = 400"},
		{[]string{"redo"}, "Redo done. Balance = 600"},
		{[]string{"undo"}, "Undo done. Balance = 400"},
	}

	for _, s := range steps {
		var out bytes.Buffer

		err := run(t.Context(), append([]string{"-url", url}, s.args...), &out)
		if err != nil {
			t.Fatalf("%v: %v", s.args, err)
		}

		if got := strings.TrimSpace(out.String()); got != s.want {
			t.Fatalf("%v: want %q, got %q", s.args, s.want, got)
		}
	}

	var out bytes.Buffer

	err := run(t.Context(), []string{"-url", url, "list"}, &out)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	table := out.String()
	for _, want := range []string{"CREDIT", "DEBIT", "BALANCE", "400", "available: undo, redo"} {
		if !strings.Contains(strings.ToUpper(table), strings.ToUpper(want)) {
			t.Fatalf("list output missing %q:\n%s", want, table)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	url := newAPI(t)

	tests := []struct {
		name  string
		args  []string
		usage bool
		want  error
	}{
		{name: "no_command", args: nil, usage: true},
		{name: "unknown_command", args: []string{"refund"}, usage: true},
		{name: "missing_amount", args: []string{"credit"}, usage: true},
		{name: "bad_amount", args: []string{"debit", "ten"}, usage: true},
		{name: "nothing_to_undo", args: []string{"undo"}, want: ledger.ErrNothingToUndo},
		{name: "nothing_to_redo", args: []string{"redo"}, want: ledger.ErrNothingToRedo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := run(t.Context(), append([]string{"-url", url}, tt.args...), io.Discard)
			if err == nil {
				t.Fatalf("want error")
			}

			if tt.usage && !errors.Is(err, errUsage) {
				t.Fatalf("want usage error, got %v", err)
			}

			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}
}
