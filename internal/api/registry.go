package api

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rawblock/ra-engine/internal/ra"
	"github.com/rawblock/ra-engine/pkg/models"
)

// DatasetRegistry holds the registered datasets in memory. The manager kept
// per entry is the warm template; request handlers clone it so concurrent
// requests never share mutable caches.
type DatasetRegistry struct {
	mu      sync.RWMutex
	entries map[string]*DatasetEntry
}

type DatasetEntry struct {
	Summary models.DatasetSummary
	Spec    models.DatasetSpec
	Manager *ra.VBManager
}

func NewDatasetRegistry() *DatasetRegistry {
	return &DatasetRegistry{entries: make(map[string]*DatasetEntry)}
}

// Register builds a dataset from its spec and stores it under a fresh id.
func (r *DatasetRegistry) Register(spec models.DatasetSpec) (models.DatasetSummary, error) {
	return r.RegisterWithID(uuid.New().String(), spec)
}

// RegisterWithID is Register with a caller-chosen id, used when warm-loading
// persisted datasets at startup.
func (r *DatasetRegistry) RegisterWithID(id string, spec models.DatasetSpec) (models.DatasetSummary, error) {
	ds, err := ra.BuildDataset(spec)
	if err != nil {
		return models.DatasetSummary{}, err
	}
	mgr := ra.NewVBManager(ds)
	summary := models.DatasetSummary{
		ID:            id,
		Name:          spec.Name,
		VariableCount: ds.VarList.Len(),
		SampleSize:    ds.SampleSize,
		StateSpace:    ds.VarList.StateSpace(),
		PopulatedKeys: ds.InputTable.Len(),
		KeySegments:   ds.VarList.KeySize(),
		Directed:      ds.VarList.IsDirected(),
		DataEntropy:   mgr.DataEntropy(),
	}
	r.mu.Lock()
	r.entries[id] = &DatasetEntry{Summary: summary, Spec: spec, Manager: mgr}
	r.mu.Unlock()
	return summary, nil
}

func (r *DatasetRegistry) Get(id string) (*DatasetEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *DatasetRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
