package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"stock-engine/internal/adapters/sheet"
	"stock-engine/internal/app"
	"stock-engine/internal/core"
)

const usage = `Available: import <file.csv>, export [filters], stats [filters], threshold <sku> <warehouse> <n>,
  merge <sku> <sku>..., split <sku>, provision <sku> <qty>, pool-qty <sku> <qty>, pool <sku>, map <external> <sku>`

// Run executes a one-shot CLI command with unrestricted scope, writing results to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}
	scope := core.AllowAll

	switch args[0] {
	case "import", "imp":
		if len(args) < 2 {
			return fmt.Errorf("usage: app import <file.csv>")
		}
		rows, err := readRows(args[1])
		if err != nil {
			return err
		}
		result, err := svc.ImportStock(ctx, scope, app.ImportStockRequest{Rows: rows})
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		printImportResult(out, result)

	case "export", "exp":
		req, err := parseFilters("export", args[1:])
		if err != nil {
			return err
		}
		result, err := svc.ExportStock(ctx, scope, req)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		return sheet.WriteTable(out, result.Rows)

	case "stats":
		req, err := parseFilters("stats", args[1:])
		if err != nil {
			return err
		}
		st, err := svc.GetStatistics(ctx, scope, req)
		if err != nil {
			return fmt.Errorf("statistics failed: %w", err)
		}
		printStatistics(out, st)

	case "threshold":
		if len(args) < 4 {
			return fmt.Errorf("usage: app threshold <sku> <warehouse> <n>")
		}
		n, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("threshold must be an integer: %w", err)
		}
		if err := svc.SetReorderThreshold(ctx, scope, app.SetThresholdRequest{
			ProductCode: args[1], WarehouseCode: args[2], Threshold: n,
		}); err != nil {
			return fmt.Errorf("threshold update failed: %w", err)
		}
		fmt.Fprintln(out, "Threshold updated.")

	case "merge":
		if len(args) < 3 {
			return fmt.Errorf("usage: app merge <sku> <sku>...")
		}
		pool, err := svc.MergePools(ctx, scope, app.MergePoolsRequest{ProductCodes: args[1:]})
		if err != nil {
			return fmt.Errorf("merge failed: %w", err)
		}
		printPool(out, pool)

	case "split":
		if len(args) < 2 {
			return fmt.Errorf("usage: app split <sku>")
		}
		pool, err := svc.SplitPool(ctx, scope, args[1])
		if err != nil {
			return fmt.Errorf("split failed: %w", err)
		}
		printPool(out, pool)

	case "provision", "pool-qty":
		if len(args) < 3 {
			return fmt.Errorf("usage: app %s <sku> <qty>", args[0])
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("quantity must be an integer: %w", err)
		}
		req := app.PoolQuantityRequest{ProductCode: args[1], Quantity: qty}
		var pool *app.PoolResult
		if args[0] == "provision" {
			pool, err = svc.ProvisionPool(ctx, scope, req)
		} else {
			pool, err = svc.SetPoolQuantity(ctx, scope, req)
		}
		if err != nil {
			return fmt.Errorf("%s failed: %w", args[0], err)
		}
		printPool(out, pool)

	case "pool":
		if len(args) < 2 {
			return fmt.Errorf("usage: app pool <sku>")
		}
		pool, err := svc.GetPool(ctx, scope, args[1])
		if err != nil {
			return fmt.Errorf("pool lookup failed: %w", err)
		}
		printPool(out, pool)

	case "map":
		if len(args) < 3 {
			return fmt.Errorf("usage: app map <external-code> <sku>")
		}
		m, err := svc.AddCodeMapping(ctx, scope, app.CodeMappingRequest{ExternalCode: args[1], ProductCode: args[2]})
		if err != nil {
			return fmt.Errorf("mapping failed: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	rows, err := sheet.ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}

func parseFilters(name string, args []string) (app.StockListRequest, error) {
	var req app.StockListRequest
	var lowStock, sluggish string
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&req.WarehouseCode, "warehouse", "", "warehouse code")
	fs.StringVar(&req.Department, "department", "", "department")
	fs.StringVar(&req.SKU, "sku", "", "SKU substring")
	fs.StringVar(&req.ResponsiblePerson, "responsible", "", "responsible person")
	fs.StringVar(&req.ShopName, "shop", "", "shop name")
	fs.StringVar(&req.SortBy, "sort", "", "sort field")
	fs.StringVar(&req.Order, "order", "", "asc or desc")
	fs.StringVar(&lowStock, "low-stock", "", "true or false")
	fs.StringVar(&sluggish, "sluggish", "", "true or false")
	if err := fs.Parse(args); err != nil {
		return req, fmt.Errorf("%s: %w", name, err)
	}

	var err error
	if req.IsLowStock, err = triState(lowStock); err != nil {
		return req, fmt.Errorf("-low-stock: %w", err)
	}
	if req.IsSluggish, err = triState(sluggish); err != nil {
		return req, fmt.Errorf("-sluggish: %w", err)
	}
	return req, nil
}

func triState(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func printImportResult(out io.Writer, r *core.ImportResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-58s\n", "STOCK IMPORT")
	fmt.Fprintf(out, "  Batch    : %s\n", r.BatchID)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-10s %8d\n", "Success", r.Success)
	fmt.Fprintf(out, "  %-10s %8d\n", "Failed", r.Fail)
	fmt.Fprintf(out, "  %-10s %8d\n", "Skipped", r.Skipped)
	if len(r.Errors) > 0 {
		fmt.Fprintln(out, strings.Repeat("-", 62))
		for _, e := range r.Errors {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printStatistics(out io.Writer, st *core.Statistics) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-58s\n", "STOCK STATISTICS")
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-24s %20d\n", "Products", st.ProductCount)
	fmt.Fprintf(out, "  %-24s %20d\n", "Total stock", st.TotalStockQuantity)
	fmt.Fprintf(out, "  %-24s %20d\n", "Daily sales", st.TotalDailySales)
	fmt.Fprintf(out, "  %-24s %20d\n", "Monthly sales", st.TotalMonthlySales)
	fmt.Fprintf(out, "  %-24s %20s\n", "Valuation", st.TotalValuation.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printPool(out io.Writer, p *app.PoolResult) {
	kind := "independent"
	if p.IsShared {
		kind = "shared"
	}
	fmt.Fprintf(out, "Pool %d (%s): quantity %d, members %s\n", p.PoolID, kind, p.Quantity, strings.Join(p.MemberCodes, ", "))
}
