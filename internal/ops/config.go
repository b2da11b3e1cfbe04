// Package ops loads and resolves the engine configuration. A JSON file
// defines the run; environment variables (optionally from a .env file)
// override credentials and endpoints so secrets stay out of the config file.
package ops

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/backtest"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/broker"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/market"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/runner"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/strategy"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/pkg/conn"
)

const dateLayout = "2006-01-02"

// FileConfig mirrors the JSON config layout. Zero values fall back to the
// package defaults of the section they configure.
type FileConfig struct {
	Run       RunConfig       `json:"run"`
	Strategy  StrategyConfig  `json:"strategy"`
	Market    *market.Config  `json:"market"`
	Broker    BrokerConfig    `json:"broker"`
	Backtest  BacktestConfig  `json:"backtest"`
	Database  DatabaseConfig  `json:"database"`
	Live      LiveConfig      `json:"live"`
	Profiling ProfilingConfig `json:"profiling"`
}

// RunConfig defines the universe and date range of a run.
type RunConfig struct {
	Symbols         []string `json:"symbols"`
	Timeframe       string   `json:"timeframe"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	EODCutoff       string   `json:"eodCutoff"`
	TickIntervalSec int      `json:"tickIntervalSec"`
}

// StrategyConfig overrides the session defaults. Times are "HH:MM".
type StrategyConfig struct {
	SelectionStart      string            `json:"selectionStart"`
	SelectionEnd        string            `json:"selectionEnd"`
	EODCutoff           string            `json:"eodCutoff"`
	TopN                int               `json:"topN"`
	RotationIntervalMin int               `json:"rotationIntervalMin"`
	LeaderRThreshold    decimal.Decimal   `json:"leaderRThreshold"`
	AddLevels           []decimal.Decimal `json:"addLevels"`
	AddFraction         decimal.Decimal   `json:"addFraction"`
	InitialBalance      decimal.Decimal   `json:"initialBalance"`
	RiskPerTrade        decimal.Decimal   `json:"riskPerTrade"`
	InitialStopPct      decimal.Decimal   `json:"initialStopPct"`
	TrailingStopPct     decimal.Decimal   `json:"trailingStopPct"`
	MinShares           int64             `json:"minShares"`
	MaxShares           int64             `json:"maxShares"`
}

// BrokerConfig tunes the simulated venue.
type BrokerConfig struct {
	InitialCash decimal.Decimal `json:"initialCash"`
	SlippageBps int64           `json:"slippageBps"`
}

// BacktestConfig tunes the chunked optimizer.
type BacktestConfig struct {
	Algorithms      []string        `json:"algorithms"`
	ChunkDays       int             `json:"chunkDays"`
	Workers         int             `json:"workers"`
	MemoryCeilingMB uint64          `json:"memoryCeilingMB"`
	MaxPositions    int             `json:"maxPositions"`
	RiskPerTrade    decimal.Decimal `json:"riskPerTrade"`
}

// DatabaseConfig holds connection details for the run store. An empty host
// disables persistence.
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password"`
	Database     string `json:"database"`
	SSLMode      string `json:"sslMode"`
	MaxOpenConns int    `json:"maxOpenConns"`
}

// LiveConfig holds live-mode endpoints.
type LiveConfig struct {
	FeedURL     string `json:"feedUrl"`
	MetricsAddr string `json:"metricsAddr"`
}

// ProfilingConfig gates the continuous profiler.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
}

// Loaded is the resolved configuration ready for wiring.
type Loaded struct {
	Run       runner.Config
	Strategy  strategy.Config
	Market    market.Config
	Broker    broker.Config
	Database  conn.Option
	Backtest  backtest.Config
	Live      LiveConfig
	Profiling ProfilingConfig

	// Persist reports whether a database was configured.
	Persist bool
}

// Load reads path, applies environment overrides and resolves every section.
// A .env file next to the working directory is honored when present.
func Load(path string) (Loaded, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	var file FileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return Loaded{}, ports.NewConfigError("", "parse %s: %v", path, err)
	}
	applyEnv(&file)
	return Resolve(file)
}

// Resolve validates a parsed file config and binds it onto the package
// configs, leaving defaults in place for unset fields.
func Resolve(file FileConfig) (Loaded, error) {
	var loaded Loaded
	var err error

	if loaded.Run, err = resolveRun(file.Run); err != nil {
		return Loaded{}, err
	}
	if loaded.Strategy, err = resolveStrategy(file.Strategy); err != nil {
		return Loaded{}, err
	}

	loaded.Market = market.DefaultConfig()
	if file.Market != nil {
		loaded.Market = *file.Market
	}
	if err := loaded.Market.Validate(); err != nil {
		return Loaded{}, ports.NewConfigError("market", "%v", err)
	}

	loaded.Broker = broker.DefaultConfig()
	if file.Broker.InitialCash.IsPositive() {
		loaded.Broker.InitialCash = file.Broker.InitialCash
	}
	if file.Broker.SlippageBps > 0 {
		loaded.Broker.SlippageBps = file.Broker.SlippageBps
	}

	loaded.Backtest = resolveBacktest(file.Backtest, loaded)
	loaded.Database, loaded.Persist = resolveDatabase(file.Database)
	loaded.Live = file.Live
	loaded.Profiling = file.Profiling
	return loaded, nil
}

func resolveRun(cfg RunConfig) (runner.Config, error) {
	out := runner.Config{
		Symbols:   cfg.Symbols,
		Timeframe: domain.Timeframe(cfg.Timeframe),
	}
	if len(out.Symbols) == 0 {
		return runner.Config{}, ports.NewConfigError("run.symbols", "at least one symbol required")
	}

	var err error
	if cfg.Start != "" {
		if out.Start, err = time.Parse(dateLayout, cfg.Start); err != nil {
			return runner.Config{}, ports.NewConfigError("run.start", "%v", err)
		}
	}
	if cfg.End != "" {
		if out.End, err = time.Parse(dateLayout, cfg.End); err != nil {
			return runner.Config{}, ports.NewConfigError("run.end", "%v", err)
		}
	}
	if cfg.EODCutoff != "" {
		if out.EODCutoff, err = domain.ParseTimeOfDay(cfg.EODCutoff); err != nil {
			return runner.Config{}, ports.NewConfigError("run.eodCutoff", "%v", err)
		}
	}
	if cfg.TickIntervalSec > 0 {
		out.TickInterval = time.Duration(cfg.TickIntervalSec) * time.Second
	}
	return out, nil
}

func resolveStrategy(cfg StrategyConfig) (strategy.Config, error) {
	out := strategy.DefaultConfig()
	var err error

	if cfg.SelectionStart != "" {
		if out.SelectionStart, err = domain.ParseTimeOfDay(cfg.SelectionStart); err != nil {
			return strategy.Config{}, ports.NewConfigError("strategy.selectionStart", "%v", err)
		}
	}
	if cfg.SelectionEnd != "" {
		if out.SelectionEnd, err = domain.ParseTimeOfDay(cfg.SelectionEnd); err != nil {
			return strategy.Config{}, ports.NewConfigError("strategy.selectionEnd", "%v", err)
		}
	}
	if cfg.EODCutoff != "" {
		if out.EODCutoff, err = domain.ParseTimeOfDay(cfg.EODCutoff); err != nil {
			return strategy.Config{}, ports.NewConfigError("strategy.eodCutoff", "%v", err)
		}
	}
	if cfg.TopN > 0 {
		out.TopN = cfg.TopN
	}
	if cfg.RotationIntervalMin > 0 {
		out.RotationInterval = time.Duration(cfg.RotationIntervalMin) * time.Minute
	}
	if cfg.LeaderRThreshold.IsPositive() {
		out.LeaderRThreshold = cfg.LeaderRThreshold
	}
	if len(cfg.AddLevels) > 0 {
		out.AddLevels = cfg.AddLevels
	}
	if cfg.AddFraction.IsPositive() {
		out.AddFraction = cfg.AddFraction
	}
	if cfg.InitialBalance.IsPositive() {
		out.InitialBalance = cfg.InitialBalance
	}
	if cfg.RiskPerTrade.IsPositive() {
		out.RiskPerTrade = cfg.RiskPerTrade
	}
	if cfg.InitialStopPct.IsPositive() {
		out.InitialStopPct = cfg.InitialStopPct
	}
	if cfg.TrailingStopPct.IsPositive() {
		out.TrailingStopPct = cfg.TrailingStopPct
	}
	if cfg.MinShares > 0 {
		out.MinShares = cfg.MinShares
	}
	if cfg.MaxShares > 0 {
		out.MaxShares = cfg.MaxShares
	}

	if err := out.Validate(); err != nil {
		return strategy.Config{}, err
	}
	return out, nil
}

// resolveBacktest shares the universe, range and sizing of the run config.
// Validation happens when a scheduler is built; algorithms may be empty when
// only the strategy runner is used.
func resolveBacktest(cfg BacktestConfig, loaded Loaded) backtest.Config {
	out := backtest.Config{
		Symbols:         loaded.Run.Symbols,
		Algorithms:      cfg.Algorithms,
		Start:           loaded.Run.Start,
		End:             loaded.Run.End,
		Timeframe:       loaded.Run.Timeframe,
		ChunkDays:       cfg.ChunkDays,
		Workers:         cfg.Workers,
		InitialBalance:  loaded.Broker.InitialCash,
		RiskPerTrade:    loaded.Strategy.RiskPerTrade,
		MaxPositions:    cfg.MaxPositions,
		MemoryCeilingMB: cfg.MemoryCeilingMB,
	}
	if cfg.RiskPerTrade.IsPositive() {
		out.RiskPerTrade = cfg.RiskPerTrade
	}
	return out
}

func resolveDatabase(cfg DatabaseConfig) (conn.Option, bool) {
	if cfg.Host == "" {
		return conn.Option{}, false
	}
	return conn.Option{
		Host:         cfg.Host,
		Port:         cfg.Port,
		User:         cfg.User,
		Password:     cfg.Password,
		Database:     cfg.Database,
		SSLMode:      cfg.SSLMode,
		MaxOpenConns: cfg.MaxOpenConns,
	}, true
}

// applyEnv overrides credential and endpoint fields from the environment.
func applyEnv(file *FileConfig) {
	if v := os.Getenv("ENGINE_DB_HOST"); v != "" {
		file.Database.Host = v
	}
	if v := os.Getenv("ENGINE_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			file.Database.Port = port
		}
	}
	if v := os.Getenv("ENGINE_DB_USER"); v != "" {
		file.Database.User = v
	}
	if v := os.Getenv("ENGINE_DB_PASSWORD"); v != "" {
		file.Database.Password = v
	}
	if v := os.Getenv("ENGINE_DB_NAME"); v != "" {
		file.Database.Database = v
	}
	if v := os.Getenv("ENGINE_FEED_URL"); v != "" {
		file.Live.FeedURL = v
	}
}
