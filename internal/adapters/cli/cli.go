// Package cli runs one-shot operator commands against the ApplicationService.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"parstock/internal/app"
	"parstock/internal/core"
)

// ErrDrift is returned by the reconcile command when stock levels disagree
// with the ledger, so the process can exit non-zero.
var ErrDrift = errors.New("stock levels disagree with ledger")

const usage = `Available commands:
  create-user <username> <role>         password read from PARSTOCK_PASSWORD
  reconcile                             compare stock levels with the ledger
  alerts                                below-par and at-risk levels
  stock [item_id]                       on-hand by item
  suggested-orders [vendor_id] [file]   reorder proposals; writes .xlsx when file is given
  permissions                           list every module.action`

// Run executes a one-shot CLI command as who. args is os.Args[1:]; the first
// element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, who core.Principal, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", usage)
	}

	switch args[0] {
	case "create-user":
		if len(args) < 3 {
			return errors.New("usage: app create-user <username> <role>")
		}
		active := true
		u, err := svc.CreateUser(ctx, who, app.UserRequest{
			Username: args[1],
			Role:     strings.ToUpper(args[2]),
			Password: os.Getenv("PARSTOCK_PASSWORD"),
			IsActive: &active,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created user %s (id %d, role %s).\n", u.Username, u.ID, u.Role)

	case "reconcile":
		diffs, err := svc.Reconcile(ctx, who)
		if err != nil {
			return err
		}
		printReconcile(out, diffs)
		if len(diffs) > 0 {
			return ErrDrift
		}

	case "alerts":
		report, err := svc.Alerts(ctx, who)
		if err != nil {
			return err
		}
		printAlerts(out, report)

	case "stock":
		itemID, err := optionalID(args, 1, "item_id")
		if err != nil {
			return err
		}
		items, err := svc.StockByItem(ctx, who, itemID)
		if err != nil {
			return err
		}
		printStock(out, items)

	case "suggested-orders":
		vendorID, err := optionalID(args, 1, "vendor_id")
		if err != nil {
			return err
		}
		if len(args) > 2 {
			data, err := svc.ExportSuggestedOrders(ctx, who, vendorID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[2], data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[2], err)
			}
			fmt.Fprintf(out, "Wrote %s.\n", args[2])
			return nil
		}
		report, err := svc.SuggestedOrders(ctx, who, vendorID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)

	case "permissions":
		perms, err := svc.AvailablePermissions(ctx, who)
		if err != nil {
			return err
		}
		for _, p := range perms {
			fmt.Fprintln(out, p)
		}

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func optionalID(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, args[i])
	}
	return n, nil
}

func printReconcile(out io.Writer, diffs []core.ReconcileDiff) {
	if len(diffs) == 0 {
		fmt.Fprintln(out, "Stock levels match the ledger.")
		return
	}
	fmt.Fprintf(out, "  %-8s %-10s %14s %14s\n", "ITEM", "LOCATION", "STORED", "LEDGER")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	for _, d := range diffs {
		fmt.Fprintf(out, "  %-8d %-10d %14s %14s\n", d.ItemID, d.LocationID, d.Stored, d.Ledger)
	}
}

func printAlerts(out io.Writer, report *core.AlertsReport) {
	fmt.Fprintf(out, "Below par: %d   At risk: %d\n", report.BelowParCount, report.AtRiskCount)
	fmt.Fprintln(out, strings.Repeat("=", 72))
	section := func(title string, alerts []core.ParAlert) {
		if len(alerts) == 0 {
			return
		}
		fmt.Fprintf(out, "  %s\n", title)
		for _, a := range alerts {
			fmt.Fprintf(out, "  %-10s %-28s %-20s %8s / %s\n",
				a.ShortCode, a.ItemName, a.LocationName, a.OnHandQty, a.Par)
		}
	}
	section("BELOW PAR", report.BelowPar)
	section("AT RISK", report.AtRisk)
}

func printStock(out io.Writer, items []app.ItemStockResult) {
	fmt.Fprintf(out, "  %-10s %-30s %12s %12s\n", "CODE", "ITEM", "ON HAND", "AVAILABLE")
	fmt.Fprintln(out, strings.Repeat("-", 68))
	for _, it := range items {
		fmt.Fprintf(out, "  %-10s %-30s %12s %12s\n", it.ShortCode, it.ItemName, it.TotalOnHand, it.TotalAvailable)
		for _, l := range it.Locations {
			fmt.Fprintf(out, "      %-36s %12s %12s  %s\n", l.LocationName, l.OnHandQty, l.AvailableQty, l.Status)
		}
	}
}
