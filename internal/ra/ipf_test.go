package ra

import (
	"context"
	"testing"
)

func TestIPFFitsLoopModel(t *testing.T) {
	ds := searchFixture(t)
	vl := ds.VarList
	m := mustModel(t, vl, "ABD:ACD:BCD")
	if !m.HasLoops(vl) {
		t.Fatal("ABD:ACD:BCD has loops")
	}

	res := RunIPF(context.Background(), ds.InputTable, m.Relations(), vl,
		IPFConfig{MaxIterations: 300, Threshold: 1e-9})
	if !res.Converged {
		t.Fatalf("IPF did not converge: error %v after %d sweeps", res.Error, res.Iterations)
	}
	if !approxEq(res.FitTable.Sum(), 1, 1e-9) {
		t.Errorf("fit sums to %v, want 1", res.FitTable.Sum())
	}

	// every constraint marginal must match the data marginal
	for _, r := range m.Relations() {
		target := ds.InputTable.Project(vl, r)
		fitted := res.FitTable.Project(vl, r)
		for i := 0; i < target.Len(); i++ {
			if !approxEq(fitted.ValueOf(target.At(i).Key), target.At(i).Value, 1e-7) {
				t.Fatalf("constraint %s: marginal cell off by more than 1e-7", r.PrintName(vl))
			}
		}
	}

	// probabilities never go negative
	for i := 0; i < res.FitTable.Len(); i++ {
		if res.FitTable.At(i).Value < 0 {
			t.Fatal("IPF produced a negative probability")
		}
	}

	if len(res.ErrorHistory) != res.Iterations {
		t.Errorf("error history length %d, iterations %d", len(res.ErrorHistory), res.Iterations)
	}
}

func TestIPFSaturatedReproducesInput(t *testing.T) {
	ds := searchFixture(t)
	vl := ds.VarList
	m := mustModel(t, vl, "ABCD")
	res := RunIPF(context.Background(), ds.InputTable, m.Relations(), vl,
		IPFConfig{MaxIterations: 50, Threshold: 1e-12})
	if !res.Converged {
		t.Fatalf("saturated IPF should converge immediately, error %v", res.Error)
	}
	for i := 0; i < ds.InputTable.Len(); i++ {
		tp := ds.InputTable.At(i)
		if !approxEq(res.FitTable.ValueOf(tp.Key), tp.Value, 1e-10) {
			t.Fatal("saturated fit diverges from the input")
		}
	}
}

func TestIPFNonConvergenceIsFlaggedNotFatal(t *testing.T) {
	ds := searchFixture(t)
	vl := ds.VarList
	m := mustModel(t, vl, "ABD:ACD:BCD")
	res := RunIPF(context.Background(), ds.InputTable, m.Relations(), vl,
		IPFConfig{MaxIterations: 1, Threshold: 1e-12})
	if res.Converged {
		t.Fatal("one sweep cannot hit a 1e-12 threshold on a loop model")
	}
	if res.FitTable == nil || res.FitTable.Len() == 0 {
		t.Fatal("best-effort fit must still be returned")
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
}

func TestIPFCancellation(t *testing.T) {
	ds := searchFixture(t)
	vl := ds.VarList
	m := mustModel(t, vl, "ABD:ACD:BCD")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := RunIPF(ctx, ds.InputTable, m.Relations(), vl, DefaultIPFConfig())
	if res.Iterations != 0 {
		t.Errorf("cancelled IPF ran %d sweeps, want 0", res.Iterations)
	}
}

func TestIPFRecordsIterationTimes(t *testing.T) {
	ds := searchFixture(t)
	vl := ds.VarList
	m := mustModel(t, vl, "AB:BC:AC:D")
	res := RunIPF(context.Background(), ds.InputTable, m.Relations(), vl,
		IPFConfig{MaxIterations: 20, Threshold: 1e-9, RecordIterationTimes: true})
	if len(res.IterationTimesNs) != res.Iterations {
		t.Errorf("recorded %d timings for %d sweeps", len(res.IterationTimesNs), res.Iterations)
	}
}
