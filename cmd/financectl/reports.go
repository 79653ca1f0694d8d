package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"consultcrm/internal/backend"
	"consultcrm/internal/core"
	"consultcrm/internal/finance"
	applog "consultcrm/internal/log"
	"consultcrm/internal/services"
)

var (
	horizonDays int
	fromDate    string
	toDate      string
	groupBy     string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Monthly cash, commitments, break-even and health",
	Args:  cobra.NoArgs,
	RunE: withFinance(func(ctx context.Context, cmd *cobra.Command, fs *services.FinanceService, ref time.Time) error {
		m, err := fs.Metrics(ctx, ref)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), m)
		}
		return printRows(cmd.OutOrStdout(), [][2]string{
			{"Reference date", ref.Format(core.ISODate)},
			{"Cash flow", amount(m.CashFlow)},
			{"Balance", amount(m.Balance)},
			{"Accounts receivable", amount(m.AccountsReceivable)},
			{"Accounts payable", amount(m.AccountsPayable)},
			{"Personal burden", amount(m.TotalMonthlyPersonalBurden)},
			{"Fixed costs", amount(m.CurrentFixedCosts)},
			{"Variable costs", amount(m.BusinessVariableCosts)},
			{"Sales", amount(m.TotalSalesCurrentMonth)},
			{"Break-even point", amount(m.BreakEvenPoint)},
			{"Expected cash", amount(m.ExpectedCash)},
			{"Total commitments", amount(m.TotalCommitments)},
			{"Surplus", amount(m.Surplus)},
			{"Health", string(m.HealthStatus)},
		})
	}),
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Day-by-day projected balance",
	Args:  cobra.NoArgs,
	RunE: withFinance(func(ctx context.Context, cmd *cobra.Command, fs *services.FinanceService, ref time.Time) error {
		points, err := fs.Forecast(ctx, ref, horizonDays)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), points)
		}
		rows := make([][2]string, 0, len(points)+1)
		for _, p := range points {
			rows = append(rows, [2]string{p.Date.Format(core.ISODate), amount(p.Balance)})
		}
		if low, ok := finance.Lowest(points); ok {
			rows = append(rows, [2]string{"Lowest", fmt.Sprintf("%s on %s", amount(low.Balance), low.Date.Format(core.ISODate))})
		}
		return printRows(cmd.OutOrStdout(), rows)
	}),
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Income, expenses and top clients over a period",
	Args:  cobra.NoArgs,
	RunE: withFinance(func(ctx context.Context, cmd *cobra.Command, fs *services.FinanceService, ref time.Time) error {
		query := finance.AnalyticsQuery{ReferenceDate: ref, GroupBy: finance.GroupBy(groupBy)}
		var err error
		if query.From, err = optionalDay("--from", fromDate); err != nil {
			return err
		}
		if query.To, err = optionalDay("--to", toDate); err != nil {
			return err
		}
		a, err := fs.Analytics(ctx, query)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), a)
		}
		s := a.Summary
		rows := [][2]string{
			{"Period", a.From.Format(core.ISODate) + " - " + a.To.Format(core.ISODate)},
			{"Income", amount(s.TotalIncome)},
			{"Expense", amount(s.TotalExpense)},
			{"Cash flow", amount(s.CashFlow)},
			{"Billed", amount(s.Billed)},
			{"Collected", amount(s.Collected)},
			{"Collection efficiency", s.CollectionEfficiency.StringFixed(1) + "%"},
			{"Transactions", fmt.Sprint(s.TransactionCount)},
		}
		for i, c := range a.Breakdown {
			name := c.Name
			if name == "" {
				name = c.ClientID
			}
			rows = append(rows, [2]string{fmt.Sprintf("#%d %s", i+1, name), amount(c.Total)})
		}
		return printRows(cmd.OutOrStdout(), rows)
	}),
}

// checkCmd runs a single health evaluation without alerting or exporting.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate health and exit non-zero when the business is at risk",
	Args:  cobra.NoArgs,
	RunE: withFinance(func(ctx context.Context, cmd *cobra.Command, fs *services.FinanceService, _ time.Time) error {
		snap, err := services.NewHealthMonitor(fs, nil, nil, horizonDays).Check(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			if err := printJSON(cmd.OutOrStdout(), snap); err != nil {
				return err
			}
		} else if err := printRows(cmd.OutOrStdout(), [][2]string{
			{"Status", string(snap.Status)},
			{"Expected cash", amount(snap.ExpectedCash)},
			{"Total commitments", amount(snap.TotalCommitments)},
			{"Lowest balance", fmt.Sprintf("%s on %s", amount(snap.LowestBalance), snap.LowestBalanceDate.Format(core.ISODate))},
		}); err != nil {
			return err
		}
		if snap.AtRisk() {
			return fmt.Errorf("business at risk: %s", snap.Status)
		}
		return nil
	}),
}

func init() {
	forecastCmd.Flags().IntVar(&horizonDays, "days", finance.DefaultHorizonDays, "Forecast horizon in days")
	checkCmd.Flags().IntVar(&horizonDays, "days", finance.DefaultHorizonDays, "Forecast horizon in days")
	analyticsCmd.Flags().StringVar(&fromDate, "from", "", "Start date YYYY-MM-DD (default: first of the month)")
	analyticsCmd.Flags().StringVar(&toDate, "to", "", "End date YYYY-MM-DD (default: last of the month)")
	analyticsCmd.Flags().StringVar(&groupBy, "group-by", "day", "Chart grouping: day or month")
}

type financeRun func(ctx context.Context, cmd *cobra.Command, fs *services.FinanceService, ref time.Time) error

// withFinance opens the configured backend for the duration of one command.
func withFinance(run financeRun) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ref, err := optionalDay("--date", refDate)
		if err != nil {
			return err
		}
		if ref.IsZero() {
			ref = time.Now().UTC()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		// Reports go to stdout; keep diagnostics on stderr and quiet.
		logger := applog.New(applog.Config{Level: slog.LevelWarn, Output: cmd.ErrOrStderr()})
		applog.SetDefault(logger)

		store, err := backend.Open(ctx, backendConfig(), logger)
		if err != nil {
			return err
		}
		defer store.Close()

		return run(ctx, cmd, services.NewFinanceService(store), ref)
	}
}

func optionalDay(flag, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := core.ParseDay(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", flag, v, err)
	}
	return d, nil
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRows(w io.Writer, rows [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}
