package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/timelinewatch/internal/cliconfig"
	"github.com/bft-labs/timelinewatch/pkg/log"
	"github.com/bft-labs/timelinewatch/pkg/metrics"
	"github.com/bft-labs/timelinewatch/pkg/simhost"
)

const playScript = `
length = 1.0

[[timeline]]
name = "Main"
duration = 0.5
autoplay = true
`

func TestRunOnce_WritesMetrics(t *testing.T) {
	script, err := simhost.ParseScript([]byte(playScript), "toml")
	require.NoError(t, err)

	cfg := cliconfig.DefaultConfig()
	cfg.FrameInterval = 250 * time.Millisecond
	cfg.Metrics = true

	var out bytes.Buffer
	require.NoError(t, runOnce(context.Background(), cfg, script, log.NewNoopLogger(), &out))

	text := out.String()
	assert.Contains(t, text, `timelinewatch_events_total{kind="start"} 1`)
	assert.Contains(t, text, `timelinewatch_events_total{kind="complete"} 1`)
	assert.Contains(t, text, "timelinewatch_ticks_total")
}

func TestRunOnce_NoMetricsByDefault(t *testing.T) {
	script, err := simhost.ParseScript([]byte(playScript), "toml")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runOnce(context.Background(), cliconfig.DefaultConfig(), script, log.NewNoopLogger(), &out))
	assert.Empty(t, out.String())
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeMetrics(reg, &out))
	assert.True(t, strings.Contains(out.String(), "# TYPE timelinewatch_events_total counter"))
}

func TestSimulateCmd_FlagsAndValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "intro.toml")
	require.NoError(t, os.WriteFile(path, []byte(playScript), 0644))

	cmd := newSimulateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--script", path, "--frame", "250ms", "--metrics", "--log-level", "error"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `timelinewatch_events_total{kind="complete"} 1`)

	missing := newSimulateCmd()
	missing.SetArgs([]string{})
	assert.Error(t, missing.Execute())
}

func TestWatchConfig(t *testing.T) {
	cfg := cliconfig.DefaultConfig()
	cfg.Debounce = 0
	wc := watchConfig(cfg, log.NewNoopLogger())
	assert.Equal(t, 100*time.Millisecond, wc.DebounceDelay)
	assert.NotNil(t, wc.Logger)

	cfg.Debounce = time.Second
	assert.Equal(t, time.Second, watchConfig(cfg, log.NewNoopLogger()).DebounceDelay)
}
