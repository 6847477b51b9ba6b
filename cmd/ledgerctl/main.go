package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fastprodman/ledger/internal/api"
	"github.com/fastprodman/ledger/internal/client"
	"github.com/fastprodman/ledger/pkg/envconf"
	"github.com/olekukonko/tablewriter"
)

const usage = `usage: ledgerctl [-url URL] <command>

commands:
  list              show transactions and balance
  credit <amount>   add a credit
  debit <amount>    add a debit
  undo              undo the last transaction
  redo              redo the last undone transaction
`

var errUsage = errors.New("invalid usage")

type ctlConfig struct {
	APIURL  string        `env:"LEDGER_API_URL" envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"LEDGER_API_TIMEOUT" envDefault:"10s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)

		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}

		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg := new(ctlConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fset := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	baseURL := fset.String("url", cfg.APIURL, "ledger API base URL")

	err = fset.Parse(args)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	rest := fset.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	c, err := client.New(*baseURL)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	switch cmd := rest[0]; cmd {
	case "list":
		list, err := c.List(ctx)
		if err != nil {
			return err
		}

		renderList(out, list)

		return nil
	case "credit", "debit":
		if len(rest) != 2 {
			return fmt.Errorf("%w: %s needs exactly one amount", errUsage, cmd)
		}

		amount, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return fmt.Errorf("%w: amount %q: %w", errUsage, rest[1], err)
		}

		call := c.Credit
		if cmd == "debit" {
			call = c.Debit
		}

		res, err := call(ctx, amount)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, res.Message)

		return nil
	case "undo", "redo":
		call := c.Undo
		if cmd == "redo" {
			call = c.Redo
		}

		res, err := call(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, res.Message)

		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func renderList(out io.Writer, list api.ListResponse) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Type", "Amount", "Created At"})

	for _, t := range list.Transactions {
		table.Append([]string{
			strconv.FormatUint(t.ID, 10),
			t.Type,
			strconv.FormatFloat(t.Amount, 'f', -1, 64),
			t.CreatedAt.Local().Format(time.DateTime),
		})
	}

	table.SetFooter([]string{"", "", "Balance", strconv.FormatFloat(list.Balance, 'f', -1, 64)})
	table.Render()

	var hints []string
	if list.CanUndo {
		hints = append(hints, "undo")
	}

	if list.CanRedo {
		hints = append(hints, "redo")
	}

	if len(hints) > 0 {
		fmt.Fprintf(out, "available: %s\n", strings.Join(hints, ", "))
	}
}
