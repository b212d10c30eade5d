package ra

import (
	"context"
	"sort"
	"sync"

	"github.com/rawblock/ra-engine/pkg/models"
)

// Bounded-beam level search over the model lattice.

// Statistic selects the ranking criterion for candidates.
type Statistic int

const (
	StatAIC Statistic = iota
	StatBIC
	StatDeltaDF
)

// StatisticByName maps request strings; AIC is the default.
func StatisticByName(name string) Statistic {
	switch name {
	case "bic":
		return StatBIC
	case "ddf":
		return StatDeltaDF
	default:
		return StatAIC
	}
}

func (s Statistic) Name() string {
	switch s {
	case StatBIC:
		return "bic"
	case StatDeltaDF:
		return "ddf"
	default:
		return "aic"
	}
}

// Value extracts the ranking statistic from a fit.
func (s Statistic) Value(fit models.FitResult) float64 {
	switch s {
	case StatBIC:
		return fit.BIC
	case StatDeltaDF:
		return fit.DDF
	default:
		return fit.AIC
	}
}

// Better reports whether a outranks b: AIC/BIC lower is better, delta-DF
// higher is better.
func (s Statistic) Better(a, b float64) bool {
	if s == StatDeltaDF {
		return a > b
	}
	return a < b
}

// SearchConfig bounds one level search.
type SearchConfig struct {
	Strategy  NeighborStrategy
	Statistic Statistic
	Width     int
	MaxLevels int
	Parallel  bool
	Workers   int

	// Progress, when set, receives events synchronously from the driver.
	Progress func(models.ProgressEvent)
}

// SearchCandidate is one evaluated model with its level of discovery.
type SearchCandidate struct {
	Model     *Model
	PrintName string
	Statistic float64
	Level     int
	Fit       models.FitResult
}

func (cfg *SearchConfig) normalize() {
	if cfg.Strategy == nil {
		cfg.Strategy = LooplessStrategy{}
	}
	if cfg.Width <= 0 {
		cfg.Width = 3
	}
	if cfg.MaxLevels <= 0 {
		cfg.MaxLevels = 7
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
}

func (cfg *SearchConfig) emit(ev models.ProgressEvent) {
	if cfg.Progress != nil {
		cfg.Progress(ev)
	}
}

// RunLevelSearch explores the lattice from seed for up to MaxLevels levels,
// keeping the Width best candidates per level as the next frontier.
// Cancellation and deadlines are honored between levels: on expiry the best
// candidates found so far are returned. The returned list is every
// evaluated candidate ranked best-first.
func RunLevelSearch(ctx context.Context, mgr *VBManager, seed *Model, cfg SearchConfig) []SearchCandidate {
	cfg.normalize()
	vl := mgr.VarList()
	if seed == nil {
		seed = mgr.DefaultRefModel()
	}

	cfg.emit(models.ProgressEvent{
		Kind:          models.ProgressSearchStarted,
		TotalLevels:   cfg.MaxLevels,
		BestModelName: seed.PrintName(vl),
		StatisticName: cfg.Statistic.Name(),
	})

	frontier := []*Model{seed}
	ranked := map[string]SearchCandidate{}
	evaluated := 0

	for level := 1; level <= cfg.MaxLevels; level++ {
		if ctx != nil && ctx.Err() != nil {
			break
		}

		var levelCands []SearchCandidate
		if cfg.Parallel && len(frontier) > 1 {
			levelCands = evaluateParallel(ctx, mgr, frontier, cfg, level)
		} else {
			levelCands = evaluateSequential(ctx, mgr, frontier, cfg, level)
		}

		// Dedup by print name within the level and against earlier levels.
		var fresh []SearchCandidate
		seen := map[string]bool{}
		for _, c := range levelCands {
			if seen[c.PrintName] {
				continue
			}
			seen[c.PrintName] = true
			if _, ok := ranked[c.PrintName]; ok {
				continue
			}
			ranked[c.PrintName] = c
			fresh = append(fresh, c)
			evaluated++
		}
		if len(fresh) == 0 {
			break
		}

		sortCandidates(fresh, cfg.Statistic)
		if len(fresh) > cfg.Width {
			fresh = fresh[:cfg.Width]
		}
		frontier = frontier[:0]
		for _, c := range fresh {
			frontier = append(frontier, c.Model)
		}

		cfg.emit(models.ProgressEvent{
			Kind:            models.ProgressSearchLevel,
			CurrentLevel:    level,
			TotalLevels:     cfg.MaxLevels,
			ModelsEvaluated: evaluated,
			BestModelName:   fresh[0].PrintName,
			BestStatistic:   fresh[0].Statistic,
			StatisticName:   cfg.Statistic.Name(),
		})
	}

	out := make([]SearchCandidate, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, c)
	}
	sortCandidates(out, cfg.Statistic)

	ev := models.ProgressEvent{
		Kind:            models.ProgressSearchComplete,
		TotalLevels:     cfg.MaxLevels,
		ModelsEvaluated: evaluated,
		StatisticName:   cfg.Statistic.Name(),
	}
	if len(out) > 0 {
		ev.BestModelName = out[0].PrintName
		ev.BestStatistic = out[0].Statistic
	}
	cfg.emit(ev)
	return out
}

func sortCandidates(cands []SearchCandidate, stat Statistic) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Statistic != cands[j].Statistic {
			return stat.Better(cands[i].Statistic, cands[j].Statistic)
		}
		return cands[i].PrintName < cands[j].PrintName
	})
}

func evaluateSeed(ctx context.Context, mgr *VBManager, seed *Model, cfg SearchConfig, level int) []SearchCandidate {
	var out []SearchCandidate
	for _, n := range cfg.Strategy.Neighbors(mgr, seed) {
		fit := mgr.FitModel(ctx, n)
		out = append(out, SearchCandidate{
			Model:     n,
			PrintName: n.PrintName(mgr.VarList()),
			Statistic: cfg.Statistic.Value(fit),
			Level:     level,
			Fit:       fit,
		})
	}
	return out
}

func evaluateSequential(ctx context.Context, mgr *VBManager, frontier []*Model, cfg SearchConfig, level int) []SearchCandidate {
	var out []SearchCandidate
	for _, seed := range frontier {
		out = append(out, evaluateSeed(ctx, mgr, seed, cfg, level)...)
	}
	return out
}

// evaluateParallel fans seeds out to workers, each over an isolated manager
// clone so no cache is shared. The merged result is deduplicated and sorted
// by the caller exactly as in sequential mode, so the final ranking is
// identical by construction.
func evaluateParallel(ctx context.Context, mgr *VBManager, frontier []*Model, cfg SearchConfig, level int) []SearchCandidate {
	results := make([][]SearchCandidate, len(frontier))
	sem := make(chan struct{}, cfg.Workers)
	var wg sync.WaitGroup
	for i, seed := range frontier {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, seed *Model) {
			defer wg.Done()
			defer func() { <-sem }()
			worker := mgr.Clone()
			results[i] = evaluateSeed(ctx, worker, seed, cfg, level)
		}(i, seed)
	}
	wg.Wait()

	var out []SearchCandidate
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
