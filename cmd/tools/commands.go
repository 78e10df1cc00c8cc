package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"meteolink/internal/config"
	"meteolink/internal/db/migrate"
	"meteolink/internal/modules/weather/repository"
	"meteolink/internal/modules/weather/types"
)

var errUsage = errors.New("invalid arguments")

func runCommand(ctx context.Context, cfg config.Config, conn *sql.DB, args []string) error {
	return dispatch(ctx, cfg, conn, args, os.Stdout)
}

func dispatch(ctx context.Context, cfg config.Config, conn *sql.DB, args []string, out io.Writer) error {
	switch args[0] {
	case "migrate":
		if len(args) > 1 && args[1] == "status" {
			return printStatus(ctx, conn, out)
		}
		if err := migrate.Run(ctx, conn); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "import":
		if len(args) != 2 {
			return fmt.Errorf("%w: import needs a file", errUsage)
		}
		if err := migrate.Run(ctx, conn); err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		repo := repository.NewSQLiteRepository(conn, cfg.HistoryCapacity)
		n, err := importHistory(ctx, repo, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %d records\n", n)
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func printStatus(ctx context.Context, conn *sql.DB, out io.Writer) error {
	migrations, err := migrate.Status(ctx, conn)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
	for _, m := range migrations {
		fmt.Fprintf(tw, "%s\t%s\t%v\n", m.Version, m.Name, m.Applied)
	}
	return tw.Flush()
}

// importHistory appends every record of a JSON history array in file
// order. The store keeps only the newest records up to its capacity.
func importHistory(ctx context.Context, repo repository.HistoryRepository, r io.Reader) (int, error) {
	var records []types.WeatherRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("decode history: %w", err)
	}
	for i, rec := range records {
		if _, err := repo.Append(ctx, rec); err != nil {
			return i, fmt.Errorf("append record %d: %w", i, err)
		}
	}
	return len(records), nil
}
