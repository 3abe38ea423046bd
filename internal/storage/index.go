package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/metrics"
)

// Index keeps every run outcome of every study in SQLite so ensemble
// statistics can be recomputed without the trajectory files.
type Index struct {
	db *sql.DB
}

type IndexedStudy struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Runs      int
	Seed      int64
	Horizon   float64
	Rabbits   int
	Foxes     int
	Rates     map[string]float64
}

func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: %w", err)
	}
	return &Index{db: db}, nil
}

func (x *Index) Close() error {
	return x.db.Close()
}

// RecordStudy stores the study row and all of its outcomes atomically.
func (x *Index) RecordStudy(meta *StudyMetadata, outcomes []metrics.Outcome) error {
	if meta == nil {
		return fmt.Errorf("index: record study: metadata is nil")
	}

	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`INSERT INTO studies (id, name, created_at, runs, seed, horizon, rabbits, foxes, k1, k2, k3, k4)
	                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Name, meta.Timestamp.UTC().Format(time.RFC3339Nano),
		meta.Runs, meta.Seed, meta.Horizon, meta.Rabbits, meta.Foxes,
		meta.Rates["k1"], meta.Rates["k2"], meta.Rates["k3"], meta.Rates["k4"])
	if err != nil {
		return fmt.Errorf("index: insert study: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO outcomes (study_id, run, seed, extinct, foxes_extinct, fox_extinction_time, has_peak, peak_time, peak_foxes, events)
	                         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		var extinctionTime, peakTime, peakFoxes any
		if o.FoxesExtinct {
			extinctionTime = o.FoxExtinctionTime
		}
		if o.HasPeak {
			peakTime = o.Peak.Time
			peakFoxes = o.Peak.Foxes
		}
		_, err = stmt.Exec(meta.ID, o.Run, o.Seed, o.Extinct, o.FoxesExtinct, extinctionTime,
			o.HasPeak, peakTime, peakFoxes, o.Events)
		if err != nil {
			return fmt.Errorf("index: insert outcome %d: %w", o.Run, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

// Outcomes returns the indexed outcomes of one study in run order.
func (x *Index) Outcomes(studyID string) ([]metrics.Outcome, error) {
	rows, err := x.db.Query(`SELECT run, seed, extinct, foxes_extinct, fox_extinction_time, has_peak, peak_time, peak_foxes, events
	                         FROM outcomes WHERE study_id = ? ORDER BY run`, studyID)
	if err != nil {
		return nil, fmt.Errorf("index: query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []metrics.Outcome
	for rows.Next() {
		var (
			o              metrics.Outcome
			extinctionTime sql.NullFloat64
			peakTime       sql.NullFloat64
			peakFoxes      sql.NullInt64
		)
		if err := rows.Scan(&o.Run, &o.Seed, &o.Extinct, &o.FoxesExtinct, &extinctionTime,
			&o.HasPeak, &peakTime, &peakFoxes, &o.Events); err != nil {
			return nil, fmt.Errorf("index: scan outcome: %w", err)
		}
		o.FoxExtinctionTime = extinctionTime.Float64
		if o.HasPeak {
			o.Peak = analysis.Peak{Time: peakTime.Float64, Foxes: int(peakFoxes.Int64), Index: -1}
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// Studies lists indexed studies, newest first.
func (x *Index) Studies() ([]IndexedStudy, error) {
	rows, err := x.db.Query(`SELECT id, name, created_at, runs, seed, horizon, rabbits, foxes, k1, k2, k3, k4
	                         FROM studies ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("index: query studies: %w", err)
	}
	defer rows.Close()

	var studies []IndexedStudy
	for rows.Next() {
		var (
			st             IndexedStudy
			createdAt      string
			k1, k2, k3, k4 float64
		)
		if err := rows.Scan(&st.ID, &st.Name, &createdAt, &st.Runs, &st.Seed, &st.Horizon,
			&st.Rabbits, &st.Foxes, &k1, &k2, &k3, &k4); err != nil {
			return nil, fmt.Errorf("index: scan study: %w", err)
		}
		st.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("index: parse created_at for %s: %w", st.ID, err)
		}
		st.Rates = map[string]float64{"k1": k1, "k2": k2, "k3": k3, "k4": k4}
		studies = append(studies, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: iterate studies: %w", err)
	}
	return studies, nil
}

// Summarize replays the indexed outcomes of a study through a fresh
// aggregator.
func (x *Index) Summarize(studyID string) (metrics.Snapshot, error) {
	outcomes, err := x.Outcomes(studyID)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	if len(outcomes) == 0 {
		return metrics.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, studyID)
	}
	agg := metrics.NewAggregator()
	for _, o := range outcomes {
		agg.Observe(o)
	}
	return agg.Snapshot(), nil
}
