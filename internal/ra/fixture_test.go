package ra

import (
	"testing"

	"github.com/rawblock/ra-engine/pkg/models"
)

// fixtureCounts covers all 24 states of the A:3,B:2,C:2,D:2 system and sums
// to 1008. The values are arbitrary but fixed; every fit test works from
// this one joint distribution.
var fixtureCounts = []float64{
	51, 13, 29, 47, 63, 11, 70, 22,
	16, 58, 34, 42, 8, 66, 27, 39,
	75, 19, 31, 55, 44, 60, 93, 35,
}

// searchFixture builds the canonical 4-variable dataset.
func searchFixture(t *testing.T) *Dataset {
	t.Helper()
	spec := models.DatasetSpec{
		Name: "search-fixture",
		Variables: []models.VariableSpec{
			{Name: "alpha", Abbrev: "A", Cardinality: 3},
			{Name: "beta", Abbrev: "B", Cardinality: 2},
			{Name: "gamma", Abbrev: "C", Cardinality: 2},
			{Name: "delta", Abbrev: "D", Cardinality: 2},
		},
	}
	i := 0
	for a := 0; a < 3; a++ {
		for b := 0; b < 2; b++ {
			for c := 0; c < 2; c++ {
				for d := 0; d < 2; d++ {
					spec.Rows = append(spec.Rows, models.DataRow{
						Values: []int{a, b, c, d},
						Count:  fixtureCounts[i],
					})
					i++
				}
			}
		}
	}
	ds, err := BuildDataset(spec)
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	return ds
}

func fixtureManager(t *testing.T) *VBManager {
	t.Helper()
	return NewVBManager(searchFixture(t))
}
