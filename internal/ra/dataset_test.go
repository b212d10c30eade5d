package ra

import (
	"context"
	"testing"

	"github.com/rawblock/ra-engine/pkg/models"
)

func TestBuildDatasetBasics(t *testing.T) {
	ds := searchFixture(t)
	if !approxEq(ds.SampleSize, 1008, 1e-9) {
		t.Errorf("SampleSize = %v, want 1008", ds.SampleSize)
	}
	if ds.InputTable.Len() != 24 {
		t.Errorf("populated states = %d, want 24", ds.InputTable.Len())
	}
	if !approxEq(ds.InputTable.Sum(), 1, 1e-10) {
		t.Errorf("input not normalized: %v", ds.InputTable.Sum())
	}
	if ds.VarList.StateSpace() != 24 {
		t.Errorf("state space = %d, want 24", ds.VarList.StateSpace())
	}
}

func TestBuildDatasetValidation(t *testing.T) {
	base := models.DatasetSpec{
		Variables: []models.VariableSpec{{Name: "a", Abbrev: "A", Cardinality: 2}},
	}

	tests := []struct {
		name   string
		mutate func(models.DatasetSpec) models.DatasetSpec
	}{
		{"no variables", func(s models.DatasetSpec) models.DatasetSpec {
			s.Variables = nil
			return s
		}},
		{"value out of range", func(s models.DatasetSpec) models.DatasetSpec {
			s.Rows = []models.DataRow{{Values: []int{5}, Count: 1}}
			return s
		}},
		{"row arity mismatch", func(s models.DatasetSpec) models.DatasetSpec {
			s.Rows = []models.DataRow{{Values: []int{0, 1}, Count: 1}}
			return s
		}},
		{"unknown label", func(s models.DatasetSpec) models.DatasetSpec {
			s.Variables[0].ValueLabels = []string{"no", "yes"}
			s.Rows = []models.DataRow{{Labels: []string{"maybe"}, Count: 1}}
			return s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildDataset(tt.mutate(base)); err == nil {
				t.Error("expected a build error")
			}
		})
	}
}

func TestBuildDatasetLabelsAndNoFrequency(t *testing.T) {
	spec := models.DatasetSpec{
		Name: "labelled",
		Variables: []models.VariableSpec{
			{Name: "answer", Abbrev: "A", Cardinality: 2, ValueLabels: []string{"no", "yes"}},
		},
		Rows: []models.DataRow{
			{Labels: []string{"yes"}},
			{Labels: []string{"yes"}},
			{Labels: []string{"no"}},
		},
		NoFrequency: true,
	}
	ds, err := BuildDataset(spec)
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	if !approxEq(ds.SampleSize, 3, 1e-12) {
		t.Errorf("SampleSize = %v, want 3", ds.SampleSize)
	}
	k := NewKey(ds.VarList.KeySize())
	k.SetValue(ds.VarList, 0, 1)
	if got := ds.InputTable.ValueOf(k); !approxEq(got, 2.0/3, 1e-12) {
		t.Errorf("P(yes) = %v, want 2/3", got)
	}
}

func TestSyntheticChainRecoversTrueModel(t *testing.T) {
	spec := SyntheticChainSpec(5000, 2, 0.9, 42)
	ds, err := BuildDataset(spec)
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	mgr := NewVBManager(ds)

	chain, err := mgr.MakeModel("AB:BC")
	if err != nil {
		t.Fatalf("MakeModel: %v", err)
	}
	fit := mgr.FitModel(context.Background(), chain)
	// the generating process IS AB:BC, so the LR test must not reject it
	if fit.Alpha <= 0.001 {
		t.Errorf("true chain model rejected: alpha = %v", fit.Alpha)
	}

	// independence, by contrast, is overwhelmingly rejected at strength 0.9
	indep := mgr.BottomRefModel()
	indepFit := mgr.FitModel(context.Background(), indep)
	if indepFit.Alpha >= 1e-6 {
		t.Errorf("independence should be rejected on strongly chained data: alpha = %v", indepFit.Alpha)
	}
	if indepFit.LR <= fit.LR {
		t.Error("independence must fit worse than the generating chain")
	}
}
