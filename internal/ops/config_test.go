package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"run": {"symbols": ["RELIANCE", "TCS"], "start": "2026-01-05", "end": "2026-01-09"}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"RELIANCE", "TCS"}, loaded.Run.Symbols)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), loaded.Run.Start)

	assert.Equal(t, 3, loaded.Strategy.TopN)
	assert.Equal(t, domain.MustTimeOfDay("09:50"), loaded.Strategy.SelectionEnd)
	assert.Equal(t, 20*time.Minute, loaded.Strategy.RotationInterval)
	assert.True(t, loaded.Broker.InitialCash.Equal(decimal.NewFromInt(1_000_000)))
	assert.Len(t, loaded.Market.TickBands, 3)
	assert.False(t, loaded.Persist)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"run": {
			"symbols": ["INFY"],
			"timeframe": "5m",
			"start": "2026-02-02",
			"end": "2026-02-06",
			"eodCutoff": "15:00",
			"tickIntervalSec": 30
		},
		"strategy": {
			"topN": 2,
			"rotationIntervalMin": 15,
			"riskPerTrade": "0.005",
			"addLevels": ["0.5", "1.0"]
		},
		"broker": {"initialCash": "250000", "slippageBps": 10},
		"backtest": {"algorithms": ["mean-reverter"], "chunkDays": 10},
		"database": {"host": "db.internal", "port": 5433, "user": "engine", "database": "runs"}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, domain.TimeframeFiveMinute, loaded.Run.Timeframe)
	assert.Equal(t, domain.MustTimeOfDay("15:00"), loaded.Run.EODCutoff)
	assert.Equal(t, 30*time.Second, loaded.Run.TickInterval)

	assert.Equal(t, 2, loaded.Strategy.TopN)
	assert.Equal(t, 15*time.Minute, loaded.Strategy.RotationInterval)
	assert.True(t, loaded.Strategy.RiskPerTrade.Equal(decimal.RequireFromString("0.005")))
	require.Len(t, loaded.Strategy.AddLevels, 2)

	assert.True(t, loaded.Broker.InitialCash.Equal(decimal.NewFromInt(250000)))
	assert.Equal(t, int64(10), loaded.Broker.SlippageBps)

	assert.Equal(t, []string{"mean-reverter"}, loaded.Backtest.Algorithms)
	assert.Equal(t, 10, loaded.Backtest.ChunkDays)
	assert.Equal(t, []string{"INFY"}, loaded.Backtest.Symbols)
	assert.True(t, loaded.Backtest.InitialBalance.Equal(decimal.NewFromInt(250000)))

	assert.True(t, loaded.Persist)
	assert.Equal(t, "db.internal", loaded.Database.Host)
	assert.Equal(t, 5433, loaded.Database.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	var cfgErr *ports.ConfigError

	_, err := Load(writeConfig(t, `{"run": {"symbols": []}}`))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "run.symbols", cfgErr.Field)

	_, err = Load(writeConfig(t, `{"run": {"symbols": ["A"], "start": "05-01-2026"}}`))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "run.start", cfgErr.Field)

	_, err = Load(writeConfig(t, `{
		"run": {"symbols": ["A"]},
		"strategy": {"selectionStart": "10:00", "selectionEnd": "09:30"}
	}`))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "selection", cfgErr.Field)

	_, err = Load(writeConfig(t, `{"run": {"symbols": ["A"]}, "market": {"tickBands": []}}`))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "market", cfgErr.Field)

	_, err = Load(writeConfig(t, `not json`))
	require.ErrorAs(t, err, &cfgErr)
}

func TestEnvOverridesDatabase(t *testing.T) {
	t.Setenv("ENGINE_DB_HOST", "pg.prod")
	t.Setenv("ENGINE_DB_PORT", "6432")
	t.Setenv("ENGINE_DB_PASSWORD", "hunter2")
	t.Setenv("ENGINE_FEED_URL", "wss://feed.prod/stream")

	path := writeConfig(t, `{
		"run": {"symbols": ["A"]},
		"database": {"host": "localhost", "user": "engine"}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pg.prod", loaded.Database.Host)
	assert.Equal(t, 6432, loaded.Database.Port)
	assert.Equal(t, "hunter2", loaded.Database.Password)
	assert.Equal(t, "engine", loaded.Database.User)
	assert.Equal(t, "wss://feed.prod/stream", loaded.Live.FeedURL)
}
