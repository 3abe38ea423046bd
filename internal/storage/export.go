package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/metrics"
)

type ExportData struct {
	Study        StudyMetadata       `json:"study"`
	History      []metrics.Snapshot  `json:"history"`
	Trajectories []dynamo.Trajectory `json:"trajectories"`
}

// ExportJSON writes a stored study as a single JSON document.
func (s *Store) ExportJSON(w io.Writer, id string) error {
	meta, err := s.Load(id)
	if err != nil {
		return err
	}
	history, err := s.LoadHistory(id)
	if err != nil {
		return err
	}
	trajectories, err := s.LoadTrajectories(id)
	if err != nil {
		return err
	}

	data := ExportData{
		Study:        *meta,
		History:      history,
		Trajectories: trajectories,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
