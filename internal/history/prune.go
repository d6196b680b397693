package history

import (
	"fmt"
)

// DefaultKeepCount is the default number of run records to retain.
const DefaultKeepCount = 30

// PruneResult contains information about what was pruned.
type PruneResult struct {
	Deleted []RecordInfo `json:"deleted" yaml:"deleted"`
	Kept    int          `json:"kept" yaml:"kept"`
}

// Prune removes old records, keeping only the most recent keep runs.
func (s *Store) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be non-negative")
	}

	records, err := s.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{}

	// Records are already sorted newest first
	if len(records) <= keep {
		result.Kept = len(records)
		return result, nil
	}

	toDelete := records[keep:]
	result.Kept = keep

	for _, rec := range toDelete {
		if err := s.Delete(rec.ID); err != nil {
			return nil, fmt.Errorf("failed to delete run %s: %w", rec.ID, err)
		}
		result.Deleted = append(result.Deleted, rec)
	}

	return result, nil
}
