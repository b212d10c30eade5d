package jobs

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rawblock/ra-engine/internal/db"
	"github.com/rawblock/ra-engine/internal/ra"
	"github.com/rawblock/ra-engine/pkg/models"
)

// SearchRunner executes model-lattice searches asynchronously, tracks their
// progress for the API, broadcasts level events and persists finished runs.
type SearchRunner struct {
	dbStore   *db.PostgresStore
	eventFunc func(ev models.ProgressEvent) // Optional broadcast callback

	mu   sync.Mutex
	runs map[string]*runState

	// totals across the runner lifetime (atomic for safe concurrent reads)
	totalRuns   atomic.Int64
	totalModels atomic.Int64
}

type runState struct {
	run    models.SearchRun
	cancel context.CancelFunc
}

func NewSearchRunner(dbStore *db.PostgresStore, eventFunc func(models.ProgressEvent)) *SearchRunner {
	return &SearchRunner{
		dbStore:   dbStore,
		eventFunc: eventFunc,
		runs:      make(map[string]*runState),
	}
}

// RunnerStats is the runner's aggregate state for the API.
type RunnerStats struct {
	TotalRuns   int64 `json:"totalRuns"`
	TotalModels int64 `json:"totalModels"`
	ActiveRuns  int   `json:"activeRuns"`
}

func (sr *SearchRunner) Stats() RunnerStats {
	sr.mu.Lock()
	active := 0
	for _, st := range sr.runs {
		if st.run.Status == models.RunStatusRunning {
			active++
		}
	}
	sr.mu.Unlock()
	return RunnerStats{
		TotalRuns:   sr.totalRuns.Load(),
		TotalModels: sr.totalModels.Load(),
		ActiveRuns:  active,
	}
}

// Start launches a search over an isolated manager clone and returns the
// run id immediately. Progress is delivered through the event callback; the
// finished run (or its failure) is persisted when a store is configured.
func (sr *SearchRunner) Start(mgr *ra.VBManager, datasetID string, req models.SearchRequest) string {
	runID := uuid.New().String()
	var ctx context.Context
	var cancel context.CancelFunc
	if req.TimeoutMs > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), time.Duration(req.TimeoutMs)*time.Millisecond)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	st := &runState{
		run: models.SearchRun{
			ID:        runID,
			DatasetID: datasetID,
			Status:    models.RunStatusRunning,
			Request:   req,
		},
		cancel: cancel,
	}
	sr.mu.Lock()
	sr.runs[runID] = st
	sr.mu.Unlock()
	sr.totalRuns.Add(1)

	go sr.execute(ctx, cancel, mgr, st)
	return runID
}

func (sr *SearchRunner) execute(ctx context.Context, cancel context.CancelFunc, mgr *ra.VBManager, st *runState) {
	defer cancel()
	runID := st.run.ID
	req := st.run.Request

	worker := mgr.Clone()
	if req.Direction == "descending" {
		worker.SetDirection(ra.Descending)
	} else {
		worker.SetDirection(ra.Ascending)
	}

	var seed *ra.Model
	if req.Seed != "" {
		m, err := worker.MakeModel(req.Seed)
		if err != nil {
			sr.finish(st, models.RunStatusFailed, nil, err.Error())
			return
		}
		seed = m
	}

	cfg := ra.SearchConfig{
		Strategy:  ra.StrategyByName(req.Strategy),
		Statistic: ra.StatisticByName(req.Statistic),
		Width:     req.Width,
		MaxLevels: req.MaxLevels,
		Parallel:  req.Parallel,
		Workers:   req.Workers,
		Progress: func(ev models.ProgressEvent) {
			ev.RunID = runID
			sr.mu.Lock()
			st.run.CurrentLevel = ev.CurrentLevel
			st.run.ModelsEvaluated = ev.ModelsEvaluated
			sr.mu.Unlock()
			if sr.eventFunc != nil {
				sr.eventFunc(ev)
			}
		},
	}

	log.Printf("[SearchRunner] run %s: %s %s search, width=%d levels=%d",
		runID, worker.Direction(), cfg.Strategy.Name(), cfg.Width, cfg.MaxLevels)

	cands := ra.RunLevelSearch(ctx, worker, seed, cfg)
	sr.totalModels.Add(int64(len(cands)))

	wire := make([]models.SearchCandidate, len(cands))
	for i, c := range cands {
		wire[i] = models.SearchCandidate{
			ModelName: c.PrintName,
			Statistic: c.Statistic,
			Level:     c.Level,
			Fit:       c.Fit,
		}
	}

	status := models.RunStatusComplete
	if ctx.Err() != nil {
		status = models.RunStatusCancelled
		log.Printf("[SearchRunner] run %s cancelled after %d candidates", runID, len(cands))
	}
	sr.finish(st, status, wire, "")
}

func (sr *SearchRunner) finish(st *runState, status string, cands []models.SearchCandidate, errMsg string) {
	sr.mu.Lock()
	st.run.Status = status
	st.run.Candidates = cands
	st.run.Error = errMsg
	snapshot := st.run
	sr.mu.Unlock()

	if sr.dbStore != nil {
		if err := sr.dbStore.SaveSearchRun(context.Background(), snapshot); err != nil {
			log.Printf("[SearchRunner] run %s: failed to persist: %v", snapshot.ID, err)
		}
	}
}

// Get returns a snapshot of one run, hitting the database for runs evicted
// from memory.
func (sr *SearchRunner) Get(ctx context.Context, runID string) (*models.SearchRun, bool) {
	sr.mu.Lock()
	st, ok := sr.runs[runID]
	if ok {
		snapshot := st.run
		sr.mu.Unlock()
		return &snapshot, true
	}
	sr.mu.Unlock()

	if sr.dbStore != nil {
		if run, err := sr.dbStore.GetSearchRun(ctx, runID); err == nil {
			return run, true
		}
	}
	return nil, false
}

// Cancel requests cooperative cancellation; the search stops at the next
// level boundary and keeps the best candidates found so far.
func (sr *SearchRunner) Cancel(runID string) bool {
	sr.mu.Lock()
	st, ok := sr.runs[runID]
	sr.mu.Unlock()
	if !ok {
		return false
	}
	st.cancel()
	return true
}
