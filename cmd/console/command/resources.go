package command

// resources.go = the list screens: every CRUD resource shares the same
// "fetch a page, print a table" shape.

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shophub/internal/models"
	"shophub/internal/rest"
)

var (
	listPage     int
	listPageSize int
	listSearch   string
)

func listParams() rest.ListParams {
	return rest.ListParams{Page: listPage, PageSize: listPageSize, Search: listSearch}
}

func fetchPage[T any](cmd *cobra.Command, fetch func(context.Context, rest.ListParams) (*rest.Paginated[T], error)) (*rest.Paginated[T], error) {
	if err := requireToken(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	resp, err := fetch(ctx, listParams())
	if err != nil {
		if rest.IsConnectivity(err) {
			printUnreachable()
			return nil, nil
		}
		return nil, err
	}
	return resp, nil
}

func printFooter(page, totalPages int, total int64) {
	color.HiBlack("page %d/%d, %d total", page, totalPages, total)
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchPage(cmd, newAPIClient().Products)
		if err != nil || resp == nil {
			return err
		}
		fmt.Printf("%-10s %-24s %8s %6s %s\n", "SKU", "NAME", "PRICE", "STOCK", "STATUS")
		for _, p := range resp.Data {
			fmt.Printf("%-10s %-24s %8.2f %6d %s\n", p.SKU, p.Name, p.Price, p.Stock, activeLabel(p.Active))
		}
		printFooter(resp.Page, resp.TotalPages, resp.Total)
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchPage(cmd, newAPIClient().Categories)
		if err != nil || resp == nil {
			return err
		}
		for _, c := range resp.Data {
			fmt.Printf("%-24s %s\n", c.Name, activeLabel(c.Active))
		}
		printFooter(resp.Page, resp.TotalPages, resp.Total)
		return nil
	},
}

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List brands",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchPage(cmd, newAPIClient().Brands)
		if err != nil || resp == nil {
			return err
		}
		for _, b := range resp.Data {
			fmt.Printf("%-24s %-4s %s\n", b.Name, b.Country, activeLabel(b.Active))
		}
		printFooter(resp.Page, resp.TotalPages, resp.Total)
		return nil
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchPage(cmd, newAPIClient().Orders)
		if err != nil || resp == nil {
			return err
		}
		fmt.Printf("%-12s %-10s %10s  %s\n", "CODE", "STATUS", "TOTAL", "PLACED")
		for _, o := range resp.Data {
			fmt.Printf("%-12s %-10s %10.2f  %s\n", o.Code, statusLabel(o.Status), o.Total, o.PlacedAt.Format("2006-01-02"))
		}
		printFooter(resp.Page, resp.TotalPages, resp.Total)
		return nil
	},
}

var suppliersCmd = &cobra.Command{
	Use:   "suppliers",
	Short: "List suppliers",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchPage(cmd, newAPIClient().Suppliers)
		if err != nil || resp == nil {
			return err
		}
		for _, s := range resp.Data {
			fmt.Printf("%-24s %-28s %s\n", s.Name, s.Email, activeLabel(s.Active))
		}
		printFooter(resp.Page, resp.TotalPages, resp.Total)
		return nil
	},
}

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchPage(cmd, newAPIClient().Branches)
		if err != nil || resp == nil {
			return err
		}
		for _, b := range resp.Data {
			fmt.Printf("%-16s %-28s %s\n", b.Name, b.Address, activeLabel(b.Active))
		}
		printFooter(resp.Page, resp.TotalPages, resp.Total)
		return nil
	},
}

var promotionsCmd = &cobra.Command{
	Use:   "promotions",
	Short: "List promotions",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchPage(cmd, newAPIClient().Promotions)
		if err != nil || resp == nil {
			return err
		}
		now := time.Now()
		for _, p := range resp.Data {
			window := fmt.Sprintf("%s to %s", p.StartsAt.Format("Jan 02"), p.EndsAt.Format("Jan 02"))
			state := color.HiBlackString("inactive")
			if p.ActiveAt(now) {
				state = color.GreenString("running")
			}
			fmt.Printf("%-20s %4.0f%%  %-18s %s\n", p.Name, p.Percent, window, state)
		}
		printFooter(resp.Page, resp.TotalPages, resp.Total)
		return nil
	},
}

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchPage(cmd, newAPIClient().Customers)
		if err != nil || resp == nil {
			return err
		}
		for _, c := range resp.Data {
			fmt.Printf("%-20s %-14s joined %s\n", c.Name, c.Phone, c.JoinedAt.Format("2006-01-02"))
		}
		printFooter(resp.Page, resp.TotalPages, resp.Total)
		return nil
	},
}

func activeLabel(active bool) string {
	if active {
		return color.GreenString("active")
	}
	return color.HiBlackString("inactive")
}

func statusLabel(status string) string {
	switch status {
	case models.OrderCompleted:
		return color.GreenString(status)
	case models.OrderCanceled:
		return color.RedString(status)
	case models.OrderShipping:
		return color.CyanString(status)
	default:
		return status
	}
}

func init() {
	for _, cmd := range []*cobra.Command{
		productsCmd, categoriesCmd, brandsCmd, ordersCmd,
		suppliersCmd, branchesCmd, promotionsCmd, customersCmd,
	} {
		cmd.Flags().IntVar(&listPage, "page", 1, "page number")
		cmd.Flags().IntVar(&listPageSize, "page-size", 20, "items per page")
		cmd.Flags().StringVar(&listSearch, "search", "", "search filter")
		rootCmd.AddCommand(cmd)
	}
}
