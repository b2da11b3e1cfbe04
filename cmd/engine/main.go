// Command engine runs the intraday trading engine: backtest replays a
// historical range, live consumes a market data stream, validate checks a
// config file without running anything.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/algo"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/analytics"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/backtest"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/broker"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/feed"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/market"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ops"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/runner"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/storage"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/strategy"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/pkg/conn"
)

const dateLayout = "2006-01-02"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "backtest":
		err = runBacktest(os.Args[2:])
	case "live":
		err = runLive(os.Args[2:])
	case "optimize":
		err = runOptimize(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logs.Errorf("%v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: engine <backtest|live|optimize|validate> [flags]")
	fmt.Fprintln(os.Stderr, "  backtest --config <path> [--date YYYY-MM-DD] [--output <file>]")
	fmt.Fprintln(os.Stderr, "  live     --config <path>")
	fmt.Fprintln(os.Stderr, "  optimize --config <path>")
	fmt.Fprintln(os.Stderr, "  validate --config <path>")
}

func runBacktest(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON config")
	date := fs.String("date", "", "run a single trading date (YYYY-MM-DD)")
	output := fs.String("output", "", "write the report JSON to this file instead of stdout")
	_ = fs.Parse(args)

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}
	if *date != "" {
		day, err := time.Parse(dateLayout, *date)
		if err != nil {
			return ports.NewConfigError("date", "%v", err)
		}
		loaded.Run.Start = day
		loaded.Run.End = day.AddDate(0, 0, 1)
	}
	if !loaded.Persist {
		return ports.NewConfigError("database", "backtest needs a database for historical bars")
	}

	stop := startProfiler(loaded.Profiling, "engine.backtest")
	defer stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := conn.New(loaded.Database)
	if err != nil {
		return errors.Wrap(err, "connect database")
	}
	defer func() { _ = client.Close() }()

	repo := storage.NewRepository(client)
	if err := repo.Migrate(ctx); err != nil {
		return errors.Wrap(err, "migrate")
	}

	strat, venue, err := buildSession(loaded)
	if err != nil {
		return err
	}

	bt, err := runner.NewBacktest(loaded.Run, feed.NewRepositoryFeed(repo, loaded.Run.Symbols), venue, strat, repo)
	if err != nil {
		return err
	}
	report, err := bt.Run(ctx)
	if err != nil {
		return err
	}
	return writeReport(report, *output)
}

func runLive(args []string) error {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON config")
	_ = fs.Parse(args)

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}
	if loaded.Live.FeedURL == "" {
		return ports.NewConfigError("live.feedUrl", "required for live mode")
	}

	stop := startProfiler(loaded.Profiling, "engine.live")
	defer stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if loaded.Live.MetricsAddr != "" {
		serveMetrics(loaded.Live.MetricsAddr)
	}

	var repo ports.Repository
	if loaded.Persist {
		client, err := conn.New(loaded.Database)
		if err != nil {
			return errors.Wrap(err, "connect database")
		}
		defer func() { _ = client.Close() }()
		store := storage.NewRepository(client)
		if err := store.Migrate(ctx); err != nil {
			return errors.Wrap(err, "migrate")
		}
		repo = store
	}

	liveFeed := feed.NewLiveFeed(ctx, loaded.Live.FeedURL)
	if err := liveFeed.Start(ctx); err != nil {
		return err
	}
	defer liveFeed.Close()

	strat, venue, err := buildSession(loaded)
	if err != nil {
		return err
	}

	lv, err := runner.NewLive(loaded.Run, liveFeed, venue, strat, repo)
	if err != nil {
		return err
	}
	report, err := lv.Run(ctx)
	if err != nil {
		return err
	}
	logs.Infof("live run %s finished: %d bars, %d orders, %d fills", report.RunID, report.Bars, report.Orders, report.Fills)
	return nil
}

// runOptimize runs registered algorithms over the configured range through
// the chunked scheduler instead of the session strategy.
func runOptimize(args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON config")
	_ = fs.Parse(args)

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}
	if !loaded.Persist {
		return ports.NewConfigError("database", "optimize needs a database for historical bars")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := conn.New(loaded.Database)
	if err != nil {
		return errors.Wrap(err, "connect database")
	}
	defer func() { _ = client.Close() }()

	repo := storage.NewRepository(client)
	if err := repo.Migrate(ctx); err != nil {
		return errors.Wrap(err, "migrate")
	}

	manager := algo.NewManager()
	momentum := algo.NewScannerBased("momentum-scanner", algo.NewMomentumScanner(0), algo.DefaultSizingConfig())
	if err := manager.Register(momentum); err != nil {
		return err
	}
	actx := &algo.Context{
		Positions:      map[string]domain.Position{},
		AccountBalance: loaded.Backtest.InitialBalance,
		RiskPerTrade:   loaded.Backtest.RiskPerTrade,
		MaxPositions:   loaded.Backtest.MaxPositions,
	}
	for _, name := range loaded.Backtest.Algorithms {
		if err := manager.Activate(ctx, name, actx); err != nil {
			return err
		}
	}

	scheduler, err := backtest.NewScheduler(loaded.Backtest, feed.NewRepositoryFeed(repo, loaded.Run.Symbols), manager, repo)
	if err != nil {
		return err
	}
	result, err := scheduler.Run(ctx)
	if err != nil {
		return err
	}
	logs.Infof("optimize %s: final balance %s, return %s, sharpe %s, drawdown %s",
		result.RunID, result.FinalBalance, result.Performance.TotalReturn,
		result.Performance.Sharpe, result.Performance.MaxDrawdown)
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to JSON config")
	_ = fs.Parse(args)

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}
	logs.Infof("config ok: %d symbols, selection %s-%s, EOD cutoff %s, persistence %v",
		len(loaded.Run.Symbols), loaded.Strategy.SelectionStart, loaded.Strategy.SelectionEnd,
		loaded.Strategy.EODCutoff, loaded.Persist)
	return nil
}

// buildSession wires the market rules, the simulated venue and the scoring
// strategy for either mode.
func buildSession(loaded ops.Loaded) (ports.Strategy, runner.Venue, error) {
	rules, err := market.NewRules(loaded.Market)
	if err != nil {
		return nil, nil, err
	}
	venue := broker.NewSimulated(rules, loaded.Broker)

	engine := analytics.NewEngine(analytics.DefaultConfig())
	strat, err := strategy.NewTopThree(loaded.Strategy, engine)
	if err != nil {
		return nil, nil, err
	}
	return &observedStrategy{engine: engine, inner: strat}, venue, nil
}

// observedStrategy feeds every bar into the analytics window before the
// strategy reacts to it, keeping scores and triggers current.
type observedStrategy struct {
	engine *analytics.Engine
	inner  ports.Strategy
}

func (s *observedStrategy) OnBar(ctx context.Context, bar domain.Bar) ([]domain.Signal, error) {
	s.engine.Observe(bar)
	return s.inner.OnBar(ctx, bar)
}

func (s *observedStrategy) OnFill(ctx context.Context, fill domain.Fill) error {
	return s.inner.OnFill(ctx, fill)
}

func (s *observedStrategy) OnTimer(ctx context.Context, now time.Time) ([]domain.Signal, error) {
	return s.inner.OnTimer(ctx, now)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logs.Infof("serving metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logs.Errorf("metrics server: %v", err)
		}
	}()
}

// startProfiler starts continuous profiling when enabled and returns a stop
// function.
func startProfiler(cfg ops.ProfilingConfig, app string) func() {
	if !cfg.Enabled || cfg.ServerAddress == "" {
		return func() {}
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: app,
		ServerAddress:   cfg.ServerAddress,
	})
	if err != nil {
		logs.Errorf("pyroscope start failed: %v", err)
		return func() {}
	}
	return func() { _ = profiler.Stop() }
}

type reportSummary struct {
	RunID   string   `json:"runId"`
	Bars    int      `json:"bars"`
	Signals int      `json:"signals"`
	Orders  int      `json:"orders"`
	Fills   int      `json:"fills"`
	Cash    string   `json:"cash"`
	Equity  string   `json:"equity"`
	Errors  []string `json:"errors,omitempty"`
}

func writeReport(report *runner.Report, path string) error {
	summary := reportSummary{
		RunID:   report.RunID,
		Bars:    report.Bars,
		Signals: report.Signals,
		Orders:  report.Orders,
		Fills:   report.Fills,
		Cash:    report.Account.Cash.String(),
		Equity:  report.Account.Equity().String(),
	}
	for _, err := range report.Errors {
		summary.Errors = append(summary.Errors, err.Error())
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
