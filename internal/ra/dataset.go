package ra

import (
	"fmt"
	"math/rand"

	"github.com/rawblock/ra-engine/pkg/models"
)

// Dataset couples a frozen variable list with its normalized contingency
// table. InputTable holds probabilities; SampleSize the original count total.
type Dataset struct {
	VarList    *VariableList
	InputTable *Table
	SampleSize float64
}

// BuildDataset populates a contingency table from a dataset spec: registers
// the variables, packs every row into a key, accumulates counts, then
// sorts, collapses and normalizes. Rows may address values by integer or by
// declared label.
func BuildDataset(spec models.DatasetSpec) (*Dataset, error) {
	if len(spec.Variables) == 0 {
		return nil, fmt.Errorf("dataset %q: no variables", spec.Name)
	}
	vl := NewVariableList()
	labelMaps := make([]map[string]int, len(spec.Variables))
	for i, vs := range spec.Variables {
		if _, err := vl.Add(vs.Name, vs.Abbrev, vs.Cardinality, vs.Dependent); err != nil {
			return nil, err
		}
		if len(vs.ValueLabels) > 0 {
			if len(vs.ValueLabels) != vs.Cardinality {
				return nil, fmt.Errorf("variable %q: %d labels for cardinality %d",
					vs.Name, len(vs.ValueLabels), vs.Cardinality)
			}
			labelMaps[i] = make(map[string]int, len(vs.ValueLabels))
			for val, lab := range vs.ValueLabels {
				labelMaps[i][lab] = val
			}
		}
	}
	vl.Freeze()

	table := NewTable(vl.KeySize())
	for ri, row := range spec.Rows {
		values, err := rowValues(spec, labelMaps, row, ri)
		if err != nil {
			return nil, err
		}
		k := NewKey(vl.KeySize())
		for i, val := range values {
			if val < 0 || val >= int(vl.Get(VariableIndex(i)).Card) {
				return nil, fmt.Errorf("row %d: value %d out of range for variable %q", ri, val, spec.Variables[i].Name)
			}
			k.SetValue(vl, VariableIndex(i), val)
		}
		count := row.Count
		if spec.NoFrequency || count == 0 {
			count = 1
		}
		table.Add(k, count)
	}
	table.Sort()
	table.SumInto()
	sampleSize := table.Normalize()

	return &Dataset{VarList: vl, InputTable: table, SampleSize: sampleSize}, nil
}

func rowValues(spec models.DatasetSpec, labelMaps []map[string]int, row models.DataRow, ri int) ([]int, error) {
	n := len(spec.Variables)
	switch {
	case len(row.Values) == n:
		return row.Values, nil
	case len(row.Labels) == n:
		values := make([]int, n)
		for i, lab := range row.Labels {
			if labelMaps[i] == nil {
				return nil, fmt.Errorf("row %d: variable %q has no value labels", ri, spec.Variables[i].Name)
			}
			val, ok := labelMaps[i][lab]
			if !ok {
				return nil, fmt.Errorf("row %d: unknown label %q for variable %q", ri, lab, spec.Variables[i].Name)
			}
			values[i] = val
		}
		return values, nil
	default:
		return nil, fmt.Errorf("row %d: expected %d values, got %d", ri, n, len(row.Values)+len(row.Labels))
	}
}

// SyntheticChainSpec generates a seeded three-variable Markov chain
// A -> B -> C: A uniform, each successor copying its predecessor with the
// given strength and drawing uniformly otherwise. Used for calibration
// tests and the synthetic demo endpoint.
func SyntheticChainSpec(samples int, cardinality int, strength float64, seed int64) models.DatasetSpec {
	rng := rand.New(rand.NewSource(seed))
	draw := func(prev int) int {
		if rng.Float64() < strength {
			return prev
		}
		return rng.Intn(cardinality)
	}
	spec := models.DatasetSpec{
		Name: "synthetic-chain",
		Variables: []models.VariableSpec{
			{Name: "alpha", Abbrev: "A", Cardinality: cardinality},
			{Name: "beta", Abbrev: "B", Cardinality: cardinality},
			{Name: "gamma", Abbrev: "C", Cardinality: cardinality},
		},
		NoFrequency: true,
	}
	for i := 0; i < samples; i++ {
		a := rng.Intn(cardinality)
		b := draw(a)
		c := draw(b)
		spec.Rows = append(spec.Rows, models.DataRow{Values: []int{a, b, c}})
	}
	return spec
}
