package crosscheck

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/ra-engine/internal/metrics"
	"github.com/rawblock/ra-engine/internal/ra"
	"github.com/rawblock/ra-engine/pkg/models"
)

// Runner exercises the closed-form/iterative equivalence in shadow mode:
// for every decomposable model it fits through BOTH the junction tree and
// IPF and records the divergence. Nothing here feeds back into search
// results; divergences are persisted for observation only.
type Runner struct {
	pool       *pgxpool.Pool
	snapshotID int64

	// Agreement thresholds: the two fit paths must coincide per cell and
	// in entropy for the engine to be considered healthy.
	cellTolerance    float64
	entropyTolerance float64
}

// NewRunner creates a crosscheck runner; pool may be nil for log-only mode.
func NewRunner(pool *pgxpool.Pool, snapshotID int64) *Runner {
	return &Runner{
		pool:             pool,
		snapshotID:       snapshotID,
		cellTolerance:    1e-6,
		entropyTolerance: 1e-6,
	}
}

// CheckModel fits a decomposable covering model via BP and IPF and compares
// the two joints. Models with loops or incomplete coverage are skipped
// (they only have the IPF path) and reported as vacuously agreeing.
func (r *Runner) CheckModel(ctx context.Context, mgr *ra.VBManager, m *ra.Model) (models.CrosscheckResult, error) {
	vl := mgr.VarList()
	name := m.PrintName(vl)
	result := models.CrosscheckResult{ModelName: name, Agrees: true, SnapshotID: r.snapshotID}

	jt := ra.BuildJunctionTree(m, vl)
	if !jt.Valid || !m.CoversAll(vl) {
		return result, nil
	}

	bp := ra.RunBeliefPropagation(mgr.InputTable(), jt, vl, ra.BPConfig{})
	bpJoint := bp.Joint(m)

	ipf := ra.RunIPF(ctx, mgr.InputTable(), m.Relations(), vl,
		ra.IPFConfig{MaxIterations: 500, Threshold: 1e-10})

	result.MaxCellDelta = metrics.MaxCellDelta(bpJoint, ipf.FitTable, vl)
	result.EntropyDelta = ra.Entropy(bpJoint) - ra.Entropy(ipf.FitTable)
	result.JensenShannon = metrics.JensenShannon(bpJoint, ipf.FitTable, vl)
	result.Agrees = result.MaxCellDelta <= r.cellTolerance &&
		abs(result.EntropyDelta) <= r.entropyTolerance

	if !result.Agrees {
		log.Printf("[Crosscheck] DIVERGENCE on %s: max_cell_delta=%g entropy_delta=%g js=%g",
			name, result.MaxCellDelta, result.EntropyDelta, result.JensenShannon)
	}

	if r.pool != nil {
		if err := r.persist(ctx, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// CheckCandidates runs the comparison over every candidate of a finished
// search (loop and non-covering models agree vacuously), returning how many
// were checked and how many diverged.
func (r *Runner) CheckCandidates(ctx context.Context, mgr *ra.VBManager, cands []ra.SearchCandidate) (total, divergences int, err error) {
	for _, c := range cands {
		res, cerr := r.CheckModel(ctx, mgr, c.Model)
		if cerr != nil {
			return total, divergences, cerr
		}
		total++
		if !res.Agrees {
			divergences++
		}
	}
	return total, divergences, nil
}

func (r *Runner) persist(ctx context.Context, res models.CrosscheckResult) error {
	sql := `INSERT INTO crosscheck_results
		(model_name, max_cell_delta, entropy_delta, jensen_shannon, agrees, snapshot_id)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, sql,
		res.ModelName, res.MaxCellDelta, res.EntropyDelta, res.JensenShannon, res.Agrees, res.SnapshotID)
	return err
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
