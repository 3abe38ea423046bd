package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/experiment"
	"github.com/san-kum/foxsim/internal/metrics"
	"github.com/san-kum/foxsim/internal/physics"
)

var ErrNotFound = errors.New("storage: study not found")

const (
	metadataFile    = "metadata.json"
	convergenceFile = "convergence.csv"
	trajectoryDir   = "trajectories"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type StudyMetadata struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Timestamp    time.Time           `json:"timestamp"`
	Rates        map[string]float64  `json:"rates"`
	Rabbits      int                 `json:"rabbits"`
	Foxes        int                 `json:"foxes"`
	Horizon      float64             `json:"horizon"`
	Runs         int                 `json:"runs"`
	Seed         int64               `json:"seed"`
	Workers      int                 `json:"workers"`
	Window       analysis.PeakWindow `json:"window"`
	Summary      metrics.Snapshot    `json:"summary"`
	Elapsed      time.Duration       `json:"elapsed_ns"`
	Trajectories int                 `json:"trajectories"`
}

// StudyConfig rebuilds the configuration the study was run with.
func (m StudyMetadata) StudyConfig() experiment.Config {
	lv := physics.LotkaVolterra{}
	for name, v := range m.Rates {
		_ = lv.SetParam(name, v)
	}
	return experiment.Config{
		Params:  lv,
		Initial: dynamo.Population{Rabbits: m.Rabbits, Foxes: m.Foxes},
		Horizon: m.Horizon,
		Runs:    m.Runs,
		Seed:    m.Seed,
		Workers: m.Workers,
		Keep:    m.Trajectories,
		Window:  m.Window,
	}
}

// Save writes the report under a fresh study ID and returns its metadata. A
// partially written study is removed again.
func (s *Store) Save(name string, report *experiment.Report) (*StudyMetadata, error) {
	id := uuid.NewString()
	studyDir := filepath.Join(s.baseDir, id)

	if err := os.MkdirAll(filepath.Join(studyDir, trajectoryDir), 0755); err != nil {
		return nil, err
	}

	cfg := report.Config
	meta := &StudyMetadata{
		ID:           id,
		Name:         name,
		Timestamp:    time.Now().UTC(),
		Rates:        cfg.Params.GetParams(),
		Rabbits:      cfg.Initial.Rabbits,
		Foxes:        cfg.Initial.Foxes,
		Horizon:      cfg.Horizon,
		Runs:         cfg.Runs,
		Seed:         cfg.Seed,
		Workers:      cfg.Workers,
		Window:       cfg.Window,
		Summary:      report.Summary,
		Elapsed:      report.Elapsed,
		Trajectories: len(report.Trajectories),
	}

	if err := writeStudy(studyDir, meta, report); err != nil {
		_ = os.RemoveAll(studyDir)
		return nil, err
	}
	return meta, nil
}

func writeStudy(dir string, meta *StudyMetadata, report *experiment.Report) error {
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return err
	}
	if err := writeHistory(filepath.Join(dir, convergenceFile), report.History); err != nil {
		return err
	}
	for i, tr := range report.Trajectories {
		if err := writeTrajectory(filepath.Join(dir, trajectoryDir, trajectoryName(i)), tr); err != nil {
			return err
		}
	}
	return nil
}

// Record saves the report and indexes its outcomes. A study the index
// rejects is deleted, so every stored study has index rows.
func (s *Store) Record(name string, report *experiment.Report, idx *Index) (*StudyMetadata, error) {
	meta, err := s.Save(name, report)
	if err != nil {
		return nil, err
	}
	if err := idx.RecordStudy(meta, report.Outcomes); err != nil {
		if rmErr := s.Delete(meta.ID); rmErr != nil {
			return nil, fmt.Errorf("%w (cleanup: %v)", err, rmErr)
		}
		return nil, err
	}
	return meta, nil
}

// Delete removes a stored study and its files.
func (s *Store) Delete(id string) error {
	studyDir := filepath.Join(s.baseDir, id)
	if _, err := os.Stat(filepath.Join(studyDir, metadataFile)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return os.RemoveAll(studyDir)
}

func trajectoryName(run int) string {
	return fmt.Sprintf("run_%04d.csv", run)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var historyHeader = []string{
	"run", "peaks", "extinct", "foxes_extinct",
	"mean_time", "time_q1", "time_q3",
	"mean_foxes", "foxes_q1", "foxes_q3",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func writeHistory(path string, history []metrics.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(historyHeader); err != nil {
		return err
	}
	for _, snap := range history {
		row := []string{
			strconv.Itoa(snap.Runs),
			strconv.Itoa(snap.Peaks),
			strconv.Itoa(snap.Extinct),
			strconv.Itoa(snap.FoxesExtinct),
			formatFloat(snap.MeanTime),
			formatFloat(snap.TimeQ1),
			formatFloat(snap.TimeQ3),
			formatFloat(snap.MeanFoxes),
			formatFloat(snap.FoxesQ1),
			formatFloat(snap.FoxesQ3),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeTrajectory(path string, tr dynamo.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "rabbits", "foxes"}); err != nil {
		return err
	}
	for _, smp := range tr.Samples {
		row := []string{formatFloat(smp.Time), strconv.Itoa(smp.Rabbits), strconv.Itoa(smp.Foxes)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable study, newest first.
func (s *Store) List() ([]StudyMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []StudyMetadata{}, nil
		}
		return nil, err
	}

	studies := make([]StudyMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		studies = append(studies, *meta)
	}

	sort.Slice(studies, func(i, j int) bool {
		return studies[i].Timestamp.After(studies[j].Timestamp)
	})
	return studies, nil
}

func (s *Store) Load(id string) (*StudyMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var meta StudyMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", id, err)
	}
	return &meta, nil
}

// Resolve expands a unique ID prefix to the full study ID.
func (s *Store) Resolve(prefix string) (string, error) {
	if _, err := os.Stat(filepath.Join(s.baseDir, prefix, metadataFile)); err == nil {
		return prefix, nil
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	var match string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("storage: ambiguous study prefix %q", prefix)
		}
		match = entry.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	return match, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadHistory(id string) ([]metrics.Snapshot, error) {
	records, err := readCSV(filepath.Join(s.baseDir, id, convergenceFile))
	if err != nil {
		return nil, err
	}

	history := make([]metrics.Snapshot, 0, len(records))
	for i, rec := range records {
		if len(rec) != len(historyHeader) {
			return nil, fmt.Errorf("storage: %s line %d: expected %d fields, got %d", convergenceFile, i+2, len(historyHeader), len(rec))
		}
		ints := make([]int, 4)
		for j := range ints {
			if ints[j], err = strconv.Atoi(rec[j]); err != nil {
				return nil, fmt.Errorf("storage: %s line %d: %w", convergenceFile, i+2, err)
			}
		}
		floats := make([]float64, 6)
		for j := range floats {
			if floats[j], err = strconv.ParseFloat(rec[4+j], 64); err != nil {
				return nil, fmt.Errorf("storage: %s line %d: %w", convergenceFile, i+2, err)
			}
		}
		history = append(history, metrics.Snapshot{
			Runs:         ints[0],
			Peaks:        ints[1],
			Extinct:      ints[2],
			FoxesExtinct: ints[3],
			MeanTime:     floats[0],
			TimeQ1:       floats[1],
			TimeQ3:       floats[2],
			MeanFoxes:    floats[3],
			FoxesQ1:      floats[4],
			FoxesQ3:      floats[5],
		})
	}
	return history, nil
}

func (s *Store) LoadTrajectory(id string, run int) (dynamo.Trajectory, error) {
	records, err := readCSV(filepath.Join(s.baseDir, id, trajectoryDir, trajectoryName(run)))
	if err != nil {
		return dynamo.Trajectory{}, err
	}

	tr := dynamo.Trajectory{Samples: make([]dynamo.Sample, 0, len(records))}
	for i, rec := range records {
		if len(rec) != 3 {
			return dynamo.Trajectory{}, fmt.Errorf("storage: trajectory %d line %d: expected 3 fields", run, i+2)
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return dynamo.Trajectory{}, fmt.Errorf("storage: trajectory %d line %d: %w", run, i+2, err)
		}
		r, err := strconv.Atoi(rec[1])
		if err != nil {
			return dynamo.Trajectory{}, fmt.Errorf("storage: trajectory %d line %d: %w", run, i+2, err)
		}
		f, err := strconv.Atoi(rec[2])
		if err != nil {
			return dynamo.Trajectory{}, fmt.Errorf("storage: trajectory %d line %d: %w", run, i+2, err)
		}
		tr.Samples = append(tr.Samples, dynamo.Sample{Time: t, Rabbits: r, Foxes: f})
	}
	return tr, nil
}

// LoadTrajectories returns every stored trajectory in run order.
func (s *Store) LoadTrajectories(id string) ([]dynamo.Trajectory, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	out := make([]dynamo.Trajectory, 0, meta.Trajectories)
	for run := 0; run < meta.Trajectories; run++ {
		tr, err := s.LoadTrajectory(id, run)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}
