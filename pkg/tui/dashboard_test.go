package tui

import (
	"context"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/hindsight/pkg/config"
	"github.com/jingkaihe/hindsight/pkg/events"
)

func TestNewModelInitialState(t *testing.T) {
	m := NewModel(context.Background(), nil, nil, 0)

	assert.True(t, m.refreshing, "the first refresh is scheduled by Init")
	assert.False(t, m.ready)
	assert.Equal(t, defaultRefreshInterval, m.refresh)
	assert.Equal(t, "Initializing...", m.View())
}

func TestNewModelCustomRefresh(t *testing.T) {
	m := NewModel(context.Background(), nil, nil, time.Second)
	assert.Equal(t, time.Second, m.refresh)
}

func TestUpdateQuitKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
	}{
		{name: "q", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}},
		{name: "ctrl+c", key: tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(context.Background(), nil, nil, 0)

			_, cmd := m.Update(tt.key)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestUpdateRefreshDone(t *testing.T) {
	m := NewModel(context.Background(), nil, nil, 0)

	updated, _ := m.Update(refreshDoneMsg{
		result:  sampleResult(),
		summary: &events.Summary{TotalEvents: 9, TotalRecorded: 12},
	})
	m = updated.(Model)

	assert.False(t, m.refreshing)
	assert.False(t, m.lastRefresh.IsZero())
	assert.NoError(t, m.err)
	require.NotNil(t, m.result)
	require.NotNil(t, m.summary)
	assert.Len(t, m.table.Rows(), 3)
}

func TestUpdateRefreshDoneError(t *testing.T) {
	m := NewModel(context.Background(), nil, nil, 0)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)

	updated, _ = m.Update(refreshDoneMsg{err: errors.New("boom")})
	m = updated.(Model)

	assert.False(t, m.refreshing)
	assert.Error(t, m.err)
	assert.Contains(t, m.View(), "analysis error: boom")
}

func TestUpdateWindowSizeMakesReady(t *testing.T) {
	m := NewModel(context.Background(), nil, nil, 0)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)

	assert.True(t, m.ready)
	assert.Contains(t, m.View(), "Hindsight")
	assert.Contains(t, m.View(), "first analysis pending")
}

func TestRefreshKey(t *testing.T) {
	m := NewModel(context.Background(), nil, nil, 0)

	// Still refreshing: the key is a no-op.
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = updated.(Model)
	assert.True(t, m.refreshing)
	assert.Nil(t, cmd)

	updated, _ = m.Update(refreshDoneMsg{result: sampleResult()})
	m = updated.(Model)
	require.False(t, m.refreshing)

	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = updated.(Model)
	assert.True(t, m.refreshing)
	assert.NotNil(t, cmd)
}

func TestRefreshTickStartsRefresh(t *testing.T) {
	m := NewModel(context.Background(), nil, nil, 0)

	updated, _ := m.Update(refreshDoneMsg{result: sampleResult()})
	m = updated.(Model)
	require.False(t, m.refreshing)

	updated, cmd := m.Update(refreshTickMsg{})
	m = updated.(Model)
	assert.True(t, m.refreshing)
	assert.NotNil(t, cmd)
}

func TestRefreshCmdProducesResult(t *testing.T) {
	tmpDir := t.TempDir()
	originalHome := os.Getenv("HOME")
	require.NoError(t, os.Setenv("HOME", tmpDir))
	defer os.Setenv("HOME", originalHome)

	originalWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(originalWd)

	cfg := &config.Config{
		Store: config.StoreConfig{
			Type:      config.StoreTypeJSON,
			BasePath:  tmpDir,
			MaxEvents: 1000,
		},
		Analysis: config.AnalysisConfig{
			WindowDays:     7,
			MinOccurrences: 5,
			AutoThreshold:  "medium",
		},
		Sources: config.SourcesConfig{Enabled: []string{"events"}},
	}

	store, err := events.NewJSONStore(&cfg.Store)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		store.Record(ctx, "api_call", "GET /users returned 500", nil)
	}

	m := NewModel(ctx, cfg, store, 0)
	msg := m.refreshCmd()()

	done, ok := msg.(refreshDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	require.NotNil(t, done.result)
	require.NotNil(t, done.summary)
	assert.Equal(t, 6, done.summary.TotalEvents)
	require.Len(t, done.result.Actionable, 1)
	assert.Equal(t, "api-optimizer", done.result.Actionable[0].TargetName)
}
