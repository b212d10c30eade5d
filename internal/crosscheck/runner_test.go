package crosscheck

import (
	"context"
	"testing"

	"github.com/rawblock/ra-engine/internal/ra"
	"github.com/rawblock/ra-engine/pkg/models"
)

func testManager(t *testing.T) *ra.VBManager {
	t.Helper()
	spec := models.DatasetSpec{
		Name: "crosscheck",
		Variables: []models.VariableSpec{
			{Name: "a", Abbrev: "A", Cardinality: 2},
			{Name: "b", Abbrev: "B", Cardinality: 2},
			{Name: "c", Abbrev: "C", Cardinality: 2},
		},
	}
	counts := []float64{30, 12, 9, 25, 14, 28, 22, 10}
	i := 0
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			for c := 0; c < 2; c++ {
				spec.Rows = append(spec.Rows, models.DataRow{Values: []int{a, b, c}, Count: counts[i]})
				i++
			}
		}
	}
	ds, err := ra.BuildDataset(spec)
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	return ra.NewVBManager(ds)
}

func TestCheckModelAgreesOnDecomposable(t *testing.T) {
	mgr := testManager(t)
	r := NewRunner(nil, 1)
	for _, spec := range []string{"AB:BC", "A:B:C", "ABC"} {
		m, err := mgr.MakeModel(spec)
		if err != nil {
			t.Fatalf("MakeModel(%s): %v", spec, err)
		}
		res, err := r.CheckModel(context.Background(), mgr, m)
		if err != nil {
			t.Fatalf("CheckModel(%s): %v", spec, err)
		}
		if !res.Agrees {
			t.Errorf("%s: BP and IPF diverged: cell=%g entropy=%g", spec, res.MaxCellDelta, res.EntropyDelta)
		}
	}
}

func TestCheckModelSkipsLoopModels(t *testing.T) {
	mgr := testManager(t)
	r := NewRunner(nil, 1)
	m, err := mgr.MakeModel("AB:BC:AC")
	if err != nil {
		t.Fatalf("MakeModel: %v", err)
	}
	res, err := r.CheckModel(context.Background(), mgr, m)
	if err != nil {
		t.Fatalf("CheckModel: %v", err)
	}
	if !res.Agrees || res.MaxCellDelta != 0 {
		t.Error("loop models have a single fit path and agree vacuously")
	}
}

func TestCheckCandidates(t *testing.T) {
	mgr := testManager(t)
	mgr.SetDirection(ra.Ascending)
	cands := ra.RunLevelSearch(context.Background(), mgr, nil, ra.SearchConfig{Width: 2, MaxLevels: 2})
	r := NewRunner(nil, 7)
	total, divergences, err := r.CheckCandidates(context.Background(), mgr, cands)
	if err != nil {
		t.Fatalf("CheckCandidates: %v", err)
	}
	if total != len(cands) {
		t.Errorf("checked %d of %d candidates", total, len(cands))
	}
	if divergences != 0 {
		t.Errorf("%d unexpected divergences", divergences)
	}
}
