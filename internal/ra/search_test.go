package ra

import (
	"context"
	"testing"

	"github.com/rawblock/ra-engine/pkg/models"
)

func TestLooplessAscendingNeighbors(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Ascending)
	bottom := mgr.BottomRefModel()
	neighbors := mgr.SearchOneLevel(bottom)
	if len(neighbors) == 0 {
		t.Fatal("independence has ascending neighbors")
	}
	vl := mgr.VarList()
	bottomDF := mgr.ComputeDF(bottom)
	seen := map[string]bool{}
	for _, n := range neighbors {
		name := n.PrintName(vl)
		if seen[name] {
			t.Errorf("duplicate neighbor %q", name)
		}
		seen[name] = true
		if n.HasLoops(vl) {
			t.Errorf("loopless neighbor %q has loops", name)
		}
		if mgr.ComputeDF(n) <= bottomDF {
			t.Errorf("ascending neighbor %q does not increase DF", name)
		}
	}
	// merging two singletons of a 4-variable independence model gives a
	// pair relation; A,B merge must be present
	if !seen["AB:C:D"] {
		t.Error("expected neighbor AB:C:D")
	}
}

func TestSaturatedHasNoAscendingNeighbors(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Ascending)
	if n := mgr.SearchOneLevel(mgr.TopRefModel()); len(n) != 0 {
		t.Errorf("saturated model has %d ascending neighbors, want 0", len(n))
	}
}

func TestIndependenceHasNoDescendingNeighbors(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Descending)
	if n := mgr.SearchOneLevel(mgr.BottomRefModel()); len(n) != 0 {
		t.Errorf("independence has %d descending neighbors, want 0", len(n))
	}
}

func TestDescendingNeighborsDecreaseDF(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Descending)
	top := mgr.TopRefModel()
	topDF := mgr.ComputeDF(top)
	neighbors := mgr.SearchOneLevel(top)
	if len(neighbors) == 0 {
		t.Fatal("saturated has descending neighbors")
	}
	for _, n := range neighbors {
		if mgr.ComputeDF(n) >= topDF {
			t.Errorf("descending neighbor %q does not decrease DF", n.PrintName(mgr.VarList()))
		}
	}
}

func TestDirectedNeighborsPreserveDV(t *testing.T) {
	vl := NewVariableList()
	for _, s := range []struct {
		ab  string
		dep bool
	}{{"X", false}, {"Y", false}, {"Z", true}} {
		if _, err := vl.Add(s.ab, s.ab, 2, s.dep); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	vl.Freeze()
	tb := NewTable(vl.KeySize())
	counts := []float64{40, 10, 12, 38, 9, 41, 37, 13}
	i := 0
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				k := NewKey(vl.KeySize())
				k.SetValue(vl, 0, x)
				k.SetValue(vl, 1, y)
				k.SetValue(vl, 2, z)
				tb.Add(k, counts[i])
				i++
			}
		}
	}
	tb.Sort()
	sample := tb.Normalize()
	mgr := NewVBManager(&Dataset{VarList: vl, InputTable: tb, SampleSize: sample})
	mgr.SetDirection(Ascending)

	for _, n := range mgr.SearchOneLevel(mgr.BottomRefModel()) {
		if !n.ContainsDependent(vl) {
			t.Errorf("directed neighbor %q dropped the DV", n.PrintName(vl))
		}
	}
}

func TestDisjointStrategyKeepsPartitions(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Ascending)
	for _, n := range (DisjointStrategy{}).Neighbors(mgr, mgr.BottomRefModel()) {
		if !isDisjoint(n) {
			t.Errorf("disjoint neighbor %q shares variables", n.PrintName(mgr.VarList()))
		}
	}
	mgr.SetDirection(Descending)
	for _, n := range (DisjointStrategy{}).Neighbors(mgr, mgr.TopRefModel()) {
		if !isDisjoint(n) {
			t.Errorf("disjoint split %q shares variables", n.PrintName(mgr.VarList()))
		}
	}
}

func TestFullStrategyIncludesLoopModels(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Ascending)
	seed, err := mgr.MakeModel("AB:BC:CD")
	if err != nil {
		t.Fatalf("MakeModel: %v", err)
	}
	full := (FullStrategy{}).Neighbors(mgr, seed)
	loopless := (LooplessStrategy{}).Neighbors(mgr, seed)
	if len(full) <= len(loopless) {
		t.Errorf("full generation (%d) should exceed loopless (%d) here", len(full), len(loopless))
	}
}

func TestRunLevelSearchSequential(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Ascending)

	var events []models.ProgressEvent
	cands := RunLevelSearch(context.Background(), mgr, nil, SearchConfig{
		Statistic: StatAIC,
		Width:     3,
		MaxLevels: 3,
		Progress:  func(ev models.ProgressEvent) { events = append(events, ev) },
	})
	if len(cands) == 0 {
		t.Fatal("search found no candidates")
	}
	// ranked best-first under AIC: lower is better
	for i := 1; i < len(cands); i++ {
		if cands[i-1].Statistic > cands[i].Statistic {
			t.Fatal("candidates not sorted ascending by AIC")
		}
	}
	if len(events) < 3 {
		t.Fatalf("want start + levels + complete events, got %d", len(events))
	}
	if events[0].Kind != models.ProgressSearchStarted {
		t.Errorf("first event %q", events[0].Kind)
	}
	if events[len(events)-1].Kind != models.ProgressSearchComplete {
		t.Errorf("last event %q", events[len(events)-1].Kind)
	}
	if events[len(events)-1].ModelsEvaluated == 0 {
		t.Error("completion event should carry the evaluation count")
	}
}

func TestRunLevelSearchParallelMatchesSequential(t *testing.T) {
	seq := fixtureManager(t)
	seq.SetDirection(Ascending)
	par := fixtureManager(t)
	par.SetDirection(Ascending)

	cfg := SearchConfig{Statistic: StatBIC, Width: 3, MaxLevels: 3}
	sc := RunLevelSearch(context.Background(), seq, nil, cfg)

	cfg.Parallel = true
	cfg.Workers = 4
	pc := RunLevelSearch(context.Background(), par, nil, cfg)

	if len(sc) != len(pc) {
		t.Fatalf("sequential found %d candidates, parallel %d", len(sc), len(pc))
	}
	for i := range sc {
		if sc[i].PrintName != pc[i].PrintName {
			t.Fatalf("rank %d: %q vs %q", i, sc[i].PrintName, pc[i].PrintName)
		}
		if !approxEq(sc[i].Statistic, pc[i].Statistic, 1e-9) {
			t.Fatalf("rank %d statistic: %v vs %v", i, sc[i].Statistic, pc[i].Statistic)
		}
	}
}

func TestRunLevelSearchCancellation(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Ascending)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cands := RunLevelSearch(ctx, mgr, nil, SearchConfig{Width: 3, MaxLevels: 5})
	if len(cands) != 0 {
		t.Errorf("cancelled search evaluated %d candidates, want 0", len(cands))
	}
}

func TestDeltaDFStatisticRanksDescending(t *testing.T) {
	mgr := fixtureManager(t)
	mgr.SetDirection(Ascending)
	cands := RunLevelSearch(context.Background(), mgr, nil, SearchConfig{
		Statistic: StatDeltaDF,
		Width:     2,
		MaxLevels: 2,
	})
	for i := 1; i < len(cands); i++ {
		if cands[i-1].Statistic < cands[i].Statistic {
			t.Fatal("delta-DF candidates must rank highest first")
		}
	}
}

func TestEnumerateLattice(t *testing.T) {
	mgr := fixtureManager(t)
	entries := EnumerateLattice(mgr, 40, false)
	if len(entries) == 0 {
		t.Fatal("lattice enumeration is empty")
	}
	if entries[0].Level != 0 || entries[0].Model.PrintName(mgr.VarList()) != "A:B:C:D" {
		t.Error("enumeration must start at the bottom reference model")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Level < entries[i-1].Level {
			t.Fatal("levels must be non-decreasing in BFS order")
		}
	}
	if len(entries) > 40 {
		t.Errorf("maxModels bound exceeded: %d", len(entries))
	}

	loopless := EnumerateLattice(mgr, 40, true)
	for _, e := range loopless {
		if e.HasLoops {
			t.Errorf("loopless enumeration leaked %q", e.Model.PrintName(mgr.VarList()))
		}
	}
}

func TestStatisticSelectors(t *testing.T) {
	fit := models.FitResult{AIC: 1, BIC: 2, DDF: 3}
	tests := []struct {
		name string
		stat Statistic
		want float64
	}{
		{"aic", StatAIC, 1},
		{"bic", StatBIC, 2},
		{"ddf", StatDeltaDF, 3},
	}
	for _, tt := range tests {
		if got := StatisticByName(tt.name); got != tt.stat {
			t.Errorf("StatisticByName(%q) = %v", tt.name, got)
		}
		if got := tt.stat.Value(fit); got != tt.want {
			t.Errorf("%s.Value = %v, want %v", tt.name, got, tt.want)
		}
	}
	if !StatAIC.Better(1, 2) || !StatDeltaDF.Better(2, 1) {
		t.Error("Better orientation wrong")
	}
}
