// Command fixadmins is the operator's repair tool for staff accounts.
//
// By default it clears expired locks and their attempt counters. The
// login flow does this lazily on its own, so the sweep is cosmetic —
// useful before inspecting the table, not required for correctness.
// With -reactivate it also flips every disabled account back to active,
// for recovering from an over-eager deactivation spree.
//
// Usage:
//
//	fixadmins -db data/chatqa.db [-reactivate]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/phm-oh/chatqa-backend/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/chatqa.db", "path to the SQLite database")
	reactivate := flag.Bool("reactivate", false, "also re-enable every disabled account")
	flag.Parse()

	db, err := sqlite.New(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error opening database:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	admins := db.Admins()

	cleared, err := admins.ClearStaleLocks(ctx, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error clearing stale locks:", err)
		os.Exit(1)
	}
	fmt.Printf("cleared %d expired locks\n", cleared)

	if *reactivate {
		n, err := admins.ReactivateAll(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error reactivating accounts:", err)
			os.Exit(1)
		}
		fmt.Printf("reactivated %d accounts\n", n)
	}
}
