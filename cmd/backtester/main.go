// Command backtester runs strategy backtests, parameter sweeps and the
// REST control server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/quantview/backtester/api"
	"github.com/quantview/backtester/config"
	"github.com/quantview/backtester/engine"
	"github.com/quantview/backtester/store"
	"github.com/quantview/backtester/strategies"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
	log      = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "backtester",
		Short: "strategy backtesting and execution simulation",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("parse log level: %w", err)
			}
			log.SetLevel(level)
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to the run configuration")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level")

	root.AddCommand(runCmd(), sweepCmd(), serveCmd(), strategiesCmd())
	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("exited")
	}
}

func runCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "execute a single backtest or live session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.Log.JSON {
				log.SetFormatter(&logrus.JSONFormatter{})
			}
			bt, err := engine.NewFromConfig(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var run *engine.Run
			if live || cfg.Data.Source == config.SourceLive {
				run, err = bt.RunLive(ctx)
			} else {
				run, err = bt.Run(ctx)
			}
			if err != nil {
				return err
			}
			if err = saveRun(ctx, cfg, run); err != nil {
				return err
			}
			printReport(run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "consume the configured live feed instead of historical data")
	return cmd
}

func sweepCmd() *cobra.Command {
	var param string
	var rawValues string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run the configured strategy once per parameter value, in parallel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			values, err := parseValues(rawValues)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			manager := engine.NewRunManager(log)
			results, err := manager.Sweep(ctx, cfg, param, values, log)
			if err != nil {
				return err
			}
			sort.Slice(results, func(i, j int) bool { return results[i].Value < results[j].Value })
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("%s=%v\tfailed: %v\n", param, r.Value, r.Err)
					continue
				}
				if err = saveRun(ctx, cfg, r.Run); err != nil {
					return err
				}
				fmt.Printf("%s=%v\treturn %s\tdrawdown %s\tsharpe %s\ttrades %d\n",
					param, r.Value,
					r.Run.Report.CumulativeReturn.StringFixed(4),
					r.Run.Report.MaxDrawdown.StringFixed(4),
					r.Run.Report.SharpeRatio.StringFixed(2),
					r.Run.Report.TradeCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&param, "param", "", "strategy parameter to sweep")
	cmd.Flags().StringVar(&rawValues, "values", "", "comma separated parameter values")
	cmd.MarkFlagRequired("param")
	cmd.MarkFlagRequired("values")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the REST control API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			manager := engine.NewRunManager(log)
			server := api.New(cfg.API, manager, st, log)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			go func() {
				<-ctx.Done()
				manager.StopAll()
				server.Shutdown(context.Background())
			}()
			return server.Start()
		},
	}
}

func strategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "list registered strategies and their parameters",
		Run: func(_ *cobra.Command, _ []string) {
			for _, h := range strategies.All() {
				fmt.Printf("%s\t%s\n", h.Name(), h.Description())
				for _, p := range h.Parameters() {
					fmt.Printf("  %-16s default %-8v range [%v, %v]  %s\n",
						p.Name, p.Default, p.Min, p.Max, p.Description)
				}
			}
		},
	}
}

func saveRun(ctx context.Context, cfg *config.Config, run *engine.Run) error {
	if cfg.Store.Path == "" || run == nil {
		return nil
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Save(ctx, run)
}

func printReport(run *engine.Run) {
	r := run.Report
	fmt.Printf("run %s (%s) %s\n", run.ID, run.Strategy, run.Status)
	fmt.Printf("  period            %s .. %s\n", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	fmt.Printf("  equity            %s -> %s\n", r.InitialEquity.StringFixed(2), r.FinalEquity.StringFixed(2))
	fmt.Printf("  return            %s\n", r.CumulativeReturn.StringFixed(4))
	fmt.Printf("  max drawdown      %s\n", r.MaxDrawdown.StringFixed(4))
	fmt.Printf("  annualised vol    %s\n", r.AnnualisedVolatility.StringFixed(4))
	fmt.Printf("  sharpe            %s\n", r.SharpeRatio.StringFixed(2))
	fmt.Printf("  trades            %d (rejected %d)\n", r.TradeCount, r.RejectedOrders)
	fmt.Printf("  commission        %s\n", r.TotalCommission.StringFixed(2))
}

func parseValues(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse sweep value %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
