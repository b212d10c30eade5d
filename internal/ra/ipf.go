package ra

import (
	"context"
	"time"
)

// Iterative proportional fitting: the MaxEnt distribution matching the
// input's marginals on every constraint relation. Used for models with
// loops, where the junction-tree closed form does not apply.

// IPFConfig bounds the sweep loop.
type IPFConfig struct {
	MaxIterations        int
	Threshold            float64
	RecordIterationTimes bool
}

// DefaultIPFConfig matches the engine-wide defaults.
func DefaultIPFConfig() IPFConfig {
	return IPFConfig{MaxIterations: 100, Threshold: 1e-7}
}

// IPFResult carries the best-effort fit even when the sweep limit was hit;
// Converged distinguishes the two cases.
type IPFResult struct {
	FitTable         *Table
	Iterations       int
	Converged        bool
	Error            float64
	ErrorHistory     []float64
	IterationTimesNs []int64
}

// RunIPF fits the constraint relations against p0 (normalized). The working
// distribution starts uniform over the full state space and each sweep
// rescales it toward every constraint's target marginal in canonical model
// order. After a full sweep the error is the largest absolute deviation of
// any fitted marginal cell from its target; below the threshold the fit has
// converged. Cancellation is checked between sweeps.
func RunIPF(ctx context.Context, p0 *Table, rels []*Relation, vl *VariableList, cfg IPFConfig) *IPFResult {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 100
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 1e-7
	}

	fit := NewTable(vl.KeySize())
	uniform := 1 / float64(vl.StateSpace())
	vl.EnumerateKeys(vl.AllIndices(), func(k Key) {
		fit.Add(k, uniform)
	})
	fit.Sort()

	targets := make([]*Table, len(rels))
	masks := make([]Key, len(rels))
	for i, r := range rels {
		targets[i] = p0.Project(vl, r)
		masks[i] = r.Mask(vl)
	}

	res := &IPFResult{FitTable: fit}
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		var started time.Time
		if cfg.RecordIterationTimes {
			started = time.Now()
		}

		for i := range rels {
			current := fit.Project(vl, rels[i])
			for j := 0; j < fit.Len(); j++ {
				pk := fit.At(j).Key.ApplyMask(masks[i])
				cur := current.ValueOf(pk)
				if cur == 0 {
					fit.SetValue(j, 0)
					continue
				}
				fit.SetValue(j, fit.At(j).Value*targets[i].ValueOf(pk)/cur)
			}
		}

		res.Iterations = iter + 1
		res.Error = ipfSweepError(fit, rels, targets, vl)
		res.ErrorHistory = append(res.ErrorHistory, res.Error)
		if cfg.RecordIterationTimes {
			res.IterationTimesNs = append(res.IterationTimesNs, time.Since(started).Nanoseconds())
		}
		if res.Error < cfg.Threshold {
			res.Converged = true
			break
		}
	}
	return res
}

// ipfSweepError is the max over constraints and cells of the absolute gap
// between the fitted marginal and its target.
func ipfSweepError(fit *Table, rels []*Relation, targets []*Table, vl *VariableList) float64 {
	var worst float64
	for i, r := range rels {
		current := fit.Project(vl, r)
		for j := 0; j < targets[i].Len(); j++ {
			d := targets[i].At(j).Value - current.ValueOf(targets[i].At(j).Key)
			if d < 0 {
				d = -d
			}
			if d > worst {
				worst = d
			}
		}
		// cells present in the fit but absent from the target count too
		for j := 0; j < current.Len(); j++ {
			if _, ok := targets[i].Find(current.At(j).Key); !ok {
				if d := current.At(j).Value; d > worst {
					worst = d
				}
			}
		}
	}
	return worst
}
