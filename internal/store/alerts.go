package store

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wordpot/round-engine/internal/types"
)

// alertSeq disambiguates alerts recorded within the same nanosecond.
var alertSeq uint64

func alertKey(t time.Time) string {
	return fmt.Sprintf("%s%020d-%06d", alertPrefix, t.UnixNano(), atomic.AddUint64(&alertSeq, 1))
}

var simSeq uint64

func simulationKey(t time.Time) string {
	return fmt.Sprintf("%s%020d-%06d", simulationPrefix, t.UnixNano(), atomic.AddUint64(&simSeq, 1))
}

// AppendAlert records a fairness alert. Alerts are append-only; there
// is deliberately no update or delete path.
func (s *Store) AppendAlert(a *types.FairnessAlert) error {
	return s.setJSON(alertKey(a.CreatedAt), a)
}

// ListAlerts returns all recorded alerts in chronological order.
func (s *Store) ListAlerts() ([]types.FairnessAlert, error) {
	pairs, err := s.kv.List(alertPrefix)
	if err != nil {
		return nil, err
	}
	alerts := make([]types.FairnessAlert, 0, len(pairs))
	for _, p := range pairs {
		var a types.FairnessAlert
		if err := jsonUnmarshal(p.Value, &a); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// AppendSimulationResult records an advisory simulation result.
func (s *Store) AppendSimulationResult(r *types.SimulationResult) error {
	return s.setJSON(simulationKey(r.CreatedAt), r)
}

// ListSimulationResults returns all recorded results in chronological
// order.
func (s *Store) ListSimulationResults() ([]types.SimulationResult, error) {
	pairs, err := s.kv.List(simulationPrefix)
	if err != nil {
		return nil, err
	}
	results := make([]types.SimulationResult, 0, len(pairs))
	for _, p := range pairs {
		var r types.SimulationResult
		if err := jsonUnmarshal(p.Value, &r); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
