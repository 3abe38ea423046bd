package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/experiment"
	"github.com/san-kum/foxsim/internal/metrics"
)

func testReport() *experiment.Report {
	cfg := experiment.DefaultConfig()
	cfg.Runs = 3

	agg := metrics.NewAggregator()
	outcomes := []metrics.Outcome{
		{Run: 0, Seed: 1, HasPeak: true, Peak: analysis.Peak{Time: 410.5, Foxes: 2750, Index: 12}, Events: 100},
		{Run: 1, Seed: 2, FoxesExtinct: true, FoxExtinctionTime: 180.25, Events: 60},
		{Run: 2, Seed: 3, HasPeak: true, Peak: analysis.Peak{Time: 440, Foxes: 2900, Index: 20}, Events: 120},
	}
	for _, o := range outcomes {
		agg.Observe(o)
	}

	return &experiment.Report{
		Config:   cfg,
		Summary:  agg.Snapshot(),
		History:  agg.History(),
		Outcomes: outcomes,
		Trajectories: []dynamo.Trajectory{
			{Samples: []dynamo.Sample{{Time: 0, Rabbits: 400, Foxes: 200}, {Time: 0.031, Rabbits: 400, Foxes: 201}}},
			{Samples: []dynamo.Sample{{Time: 0, Rabbits: 400, Foxes: 200}}},
		},
		Elapsed: 2 * time.Second,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	report := testReport()
	meta, err := st.Save("fogler", report)
	require.NoError(t, err)
	require.NotEmpty(t, meta.ID)

	loaded, err := st.Load(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "fogler", loaded.Name)
	assert.Equal(t, report.Summary, loaded.Summary)
	assert.Equal(t, 0.0004, loaded.Rates["k3"])
	assert.Equal(t, 2, loaded.Trajectories)
	assert.Equal(t, 2*time.Second, loaded.Elapsed)

	cfg := loaded.StudyConfig()
	assert.Equal(t, report.Config.Params, cfg.Params)
	assert.Equal(t, report.Config.Initial, cfg.Initial)
	assert.Equal(t, report.Config.Window, cfg.Window)
}

func TestStoreHistory(t *testing.T) {
	st := New(t.TempDir())
	report := testReport()
	meta, err := st.Save("history", report)
	require.NoError(t, err)

	history, err := st.LoadHistory(meta.ID)
	require.NoError(t, err)
	require.Len(t, history, len(report.History))

	for i := range history {
		assert.Equal(t, report.History[i].Runs, history[i].Runs)
		assert.Equal(t, report.History[i].FoxesExtinct, history[i].FoxesExtinct)
		assert.InDelta(t, report.History[i].MeanTime, history[i].MeanTime, 1e-6)
		assert.InDelta(t, report.History[i].FoxesQ3, history[i].FoxesQ3, 1e-6)
	}
}

func TestStoreTrajectories(t *testing.T) {
	st := New(t.TempDir())
	report := testReport()
	meta, err := st.Save("traj", report)
	require.NoError(t, err)

	tr, err := st.LoadTrajectory(meta.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, report.Trajectories[0], tr)

	all, err := st.LoadTrajectories(meta.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = st.LoadTrajectory(meta.ID, 7)
	assert.Error(t, err)
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	meta, err := st.Save("layout", testReport())
	require.NoError(t, err)

	for _, name := range []string{
		metadataFile,
		convergenceFile,
		filepath.Join(trajectoryDir, "run_0000.csv"),
		filepath.Join(trajectoryDir, "run_0001.csv"),
	} {
		_, err := os.Stat(filepath.Join(dir, meta.ID, name))
		assert.NoError(t, err, name)
	}
}

func TestStoreListAndResolve(t *testing.T) {
	st := New(t.TempDir())

	studies, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, studies)

	first, err := st.Save("first", testReport())
	require.NoError(t, err)
	second, err := st.Save("second", testReport())
	require.NoError(t, err)

	studies, err = st.List()
	require.NoError(t, err)
	assert.Len(t, studies, 2)

	id, err := st.Resolve(first.ID[:13])
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	id, err = st.Resolve(second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)

	_, err = st.Resolve("zzzz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	st := New(t.TempDir())
	meta, err := st.Save("doomed", testReport())
	require.NoError(t, err)

	require.NoError(t, st.Delete(meta.ID))
	_, err = st.Load(meta.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.Delete(meta.ID), ErrNotFound)
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	report := testReport()
	meta, err := st.Save("export", report)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(&buf, meta.ID))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, meta.ID, data.Study.ID)
	assert.Len(t, data.History, 3)
	require.Len(t, data.Trajectories, 2)
	assert.Equal(t, 201, data.Trajectories[0].Samples[1].Foxes)
}
