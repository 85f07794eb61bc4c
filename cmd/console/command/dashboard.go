package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shophub/internal/dashboard"
	"shophub/internal/models"
	"shophub/internal/rest"
)

var dashboardDays int

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show statistics aggregated from the fetched lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}

		api := newAPIClient()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		// the lists are independent; fetch them concurrently like the
		// screens they back
		var (
			wg         sync.WaitGroup
			orders     []models.Order
			products   []models.Product
			promotions []models.Promotion
			errs       []error
			mu         sync.Mutex
		)
		fetchAll := rest.ListParams{Page: 1, PageSize: 500}

		wg.Add(3)
		go func() {
			defer wg.Done()
			resp, err := api.Orders(ctx, fetchAll)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("orders: %w", err))
				return
			}
			orders = resp.Data
		}()
		go func() {
			defer wg.Done()
			resp, err := api.Products(ctx, fetchAll)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("products: %w", err))
				return
			}
			products = resp.Data
		}()
		go func() {
			defer wg.Done()
			resp, err := api.Promotions(ctx, fetchAll)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("promotions: %w", err))
				return
			}
			promotions = resp.Data
		}()
		wg.Wait()

		for _, err := range errs {
			if rest.IsConnectivity(err) {
				printUnreachable()
				return nil
			}
			color.Yellow("notice: %v", err)
		}

		now := time.Now()

		color.Cyan("Revenue (last %d days)", dashboardDays)
		revenue := dashboard.RevenueByDay(orders, dashboardDays, now)
		maxRev := 0.0
		for _, b := range revenue {
			if b.Revenue > maxRev {
				maxRev = b.Revenue
			}
		}
		for _, b := range revenue {
			bar := ""
			if maxRev > 0 {
				bar = strings.Repeat("█", int(b.Revenue/maxRev*30))
			}
			fmt.Printf("  %s  %8.2f  %s\n", b.Day.Format("Jan 02"), b.Revenue, bar)
		}

		color.Cyan("\nOrders by status")
		for status, count := range dashboard.CountByStatus(orders) {
			fmt.Printf("  %-10s %d\n", status, count)
		}

		color.Cyan("\nTop products")
		for i, ps := range dashboard.TopProducts(orders, 5) {
			fmt.Printf("  %d. %-20s qty %-4d revenue %.2f\n", i+1, ps.ProductName, ps.Quantity, ps.Revenue)
		}

		color.Cyan("\nLow stock (<= 5)")
		low := dashboard.LowStock(products, 5)
		if len(low) == 0 {
			fmt.Println("  none")
		}
		for _, p := range low {
			fmt.Printf("  %-10s %-20s stock %d\n", p.SKU, p.Name, p.Stock)
		}

		fmt.Printf("\nActive promotions: %d\n", dashboard.ActivePromotions(promotions, now))
		return nil
	},
}

func init() {
	dashboardCmd.Flags().IntVar(&dashboardDays, "days", 7, "revenue window in days")
	rootCmd.AddCommand(dashboardCmd)
}
