package ra

import (
	"context"

	"github.com/rawblock/ra-engine/pkg/models"
)

// SearchDirection selects how neighbor generation moves through the
// lattice: ascending adds structure (DF grows), descending removes it.
type SearchDirection int

const (
	Ascending SearchDirection = iota
	Descending
)

func (d SearchDirection) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// VBManager is the variable-based manager: it owns the read-side caches
// (relations, models, projections) over one immutable dataset and drives
// fitting and statistics. Single-owner mutable; parallel search gives every
// worker its own manager over the shared (varList, P0).
type VBManager struct {
	varList    *VariableList
	inputTable *Table // normalized P0
	sampleSize float64
	dataH      float64

	relations    map[string]*Relation
	modelsByName map[string]*Model

	direction SearchDirection
	ipfConfig IPFConfig

	topDF    float64
	topDFSet bool
}

func NewVBManager(ds *Dataset) *VBManager {
	return &VBManager{
		varList:      ds.VarList,
		inputTable:   ds.InputTable,
		sampleSize:   ds.SampleSize,
		dataH:        Entropy(ds.InputTable),
		relations:    make(map[string]*Relation),
		modelsByName: make(map[string]*Model),
		ipfConfig:    DefaultIPFConfig(),
	}
}

// Clone returns an independent manager over the same immutable inputs with
// cold caches. Workers in parallel search each take one.
func (mgr *VBManager) Clone() *VBManager {
	out := &VBManager{
		varList:      mgr.varList,
		inputTable:   mgr.inputTable,
		sampleSize:   mgr.sampleSize,
		dataH:        mgr.dataH,
		relations:    make(map[string]*Relation),
		modelsByName: make(map[string]*Model),
		direction:    mgr.direction,
		ipfConfig:    mgr.ipfConfig,
	}
	return out
}

func (mgr *VBManager) VarList() *VariableList     { return mgr.varList }
func (mgr *VBManager) InputTable() *Table         { return mgr.inputTable }
func (mgr *VBManager) SampleSize() float64        { return mgr.sampleSize }
func (mgr *VBManager) DataEntropy() float64       { return mgr.dataH }
func (mgr *VBManager) Direction() SearchDirection { return mgr.direction }

func (mgr *VBManager) SetDirection(d SearchDirection) { mgr.direction = d }

// SetIPFConfig overrides the loop-model fitting bounds.
func (mgr *VBManager) SetIPFConfig(cfg IPFConfig) { mgr.ipfConfig = cfg }

// GetRelation returns the canonical cached relation for a variable set,
// creating it on miss.
func (mgr *VBManager) GetRelation(vars []VariableIndex) *Relation {
	r := NewRelation(vars)
	key := r.CacheKey()
	if cached, ok := mgr.relations[key]; ok {
		return cached
	}
	mgr.relations[key] = r
	return r
}

// MakeProjection computes and attaches the input-table projection for a
// relation if absent.
func (mgr *VBManager) MakeProjection(r *Relation) *Table {
	if r.projection == nil {
		r.projection = mgr.inputTable.Project(mgr.varList, r)
	}
	return r.projection
}

// internModel canonicalizes a model through the relation and model caches.
func (mgr *VBManager) internModel(m *Model) *Model {
	name := m.PrintName(mgr.varList)
	if cached, ok := mgr.modelsByName[name]; ok {
		return cached
	}
	rels := make([]*Relation, m.Size())
	for i, r := range m.Relations() {
		rels[i] = mgr.GetRelation(r.Variables())
	}
	interned := NewModel(rels)
	mgr.modelsByName[name] = interned
	return interned
}

// MakeModel parses a model spec, simplifies and caches it.
func (mgr *VBManager) MakeModel(spec string) (*Model, error) {
	m, err := ParseModelSpec(mgr.varList, spec)
	if err != nil {
		return nil, err
	}
	return mgr.internModel(m), nil
}

func (mgr *VBManager) TopRefModel() *Model {
	return mgr.internModel(TopReferenceModel(mgr.varList))
}

func (mgr *VBManager) BottomRefModel() *Model {
	return mgr.internModel(BottomReferenceModel(mgr.varList))
}

// DefaultRefModel is the seed used when a search gets no explicit model:
// bottom when ascending, top when descending.
func (mgr *VBManager) DefaultRefModel() *Model {
	if mgr.direction == Descending {
		return mgr.TopRefModel()
	}
	return mgr.BottomRefModel()
}

// fitsWithBP reports whether a model takes the junction-tree path: it must
// be decomposable AND cover every variable. Models leaving variables
// unconstrained go through IPF, which expands uniformly over them, so both
// fit paths always share one state space.
func (mgr *VBManager) fitsWithBP(m *Model, jt *JunctionTree) bool {
	return jt.Valid && m.CoversAll(mgr.varList)
}

// ComputeH is the fitted entropy of a model: closed-form over the junction
// tree for decomposable covering models, IPF otherwise. The empty model
// carries no information and has H = 0 by convention.
func (mgr *VBManager) ComputeH(m *Model) float64 {
	h, _ := mgr.computeH(context.Background(), m)
	return h
}

func (mgr *VBManager) computeH(ctx context.Context, m *Model) (float64, *IPFResult) {
	if m.Size() == 0 {
		return 0, nil
	}
	jt := BuildJunctionTree(m, mgr.varList)
	if mgr.fitsWithBP(m, jt) {
		return DecomposableEntropy(mgr.inputTable, jt, mgr.varList), nil
	}
	res := RunIPF(ctx, mgr.inputTable, m.Relations(), mgr.varList, mgr.ipfConfig)
	return Entropy(res.FitTable), res
}

// ComputeDF is the model's degrees of freedom by inclusion-exclusion.
func (mgr *VBManager) ComputeDF(m *Model) float64 {
	return ModelDegreesOfFreedom(m, mgr.varList)
}

// TopDF caches DF of the saturated model: state space - 1.
func (mgr *VBManager) TopDF() float64 {
	if !mgr.topDFSet {
		mgr.topDF = float64(mgr.varList.StateSpace() - 1)
		mgr.topDFSet = true
	}
	return mgr.topDF
}

// ComputeLR is the likelihood-ratio statistic of a model against the data.
func (mgr *VBManager) ComputeLR(m *Model) float64 {
	return LikelihoodRatio(mgr.sampleSize, mgr.ComputeH(m), mgr.dataH)
}

// ComputeAIC scores a model; lower is better.
func (mgr *VBManager) ComputeAIC(m *Model) float64 {
	fit := mgr.FitModel(context.Background(), m)
	return fit.AIC
}

// ComputeBIC scores a model; lower is better.
func (mgr *VBManager) ComputeBIC(m *Model) float64 {
	fit := mgr.FitModel(context.Background(), m)
	return fit.BIC
}

// FitModel produces the full statistical summary of one model.
func (mgr *VBManager) FitModel(ctx context.Context, m *Model) models.FitResult {
	h, ipf := mgr.computeH(ctx, m)
	df := mgr.ComputeDF(m)
	ddf := mgr.TopDF() - df
	t := h - mgr.dataH
	lr := LikelihoodRatio(mgr.sampleSize, h, mgr.dataH)
	out := models.FitResult{
		ModelName: m.PrintName(mgr.varList),
		HasLoops:  m.HasLoops(mgr.varList),
		H:         h,
		T:         t,
		LR:        lr,
		DF:        df,
		DDF:       ddf,
		AIC:       AIC(lr, ddf),
		BIC:       BIC(lr, ddf, mgr.sampleSize),
		Alpha:     ChiSquaredPValue(lr, ddf),
		Converged: true,
	}
	if ipf != nil {
		out.IPFIterations = ipf.Iterations
		out.IPFError = ipf.Error
		out.Converged = ipf.Converged
	}
	return out
}

// MakeFitTable returns the fitted joint distribution P_M.
func (mgr *VBManager) MakeFitTable(ctx context.Context, m *Model) (*Table, *IPFResult) {
	jt := BuildJunctionTree(m, mgr.varList)
	if mgr.fitsWithBP(m, jt) {
		bp := RunBeliefPropagation(mgr.inputTable, jt, mgr.varList, BPConfig{})
		return bp.Joint(m), nil
	}
	res := RunIPF(ctx, mgr.inputTable, m.Relations(), mgr.varList, mgr.ipfConfig)
	return res.FitTable, res
}

// ComputeResiduals reports P0 - PM over every populated state of either
// table.
func (mgr *VBManager) ComputeResiduals(ctx context.Context, m *Model) models.ResidualReport {
	fit, _ := mgr.MakeFitTable(ctx, m)
	report := models.ResidualReport{ModelName: m.PrintName(mgr.varList)}
	vl := mgr.varList
	vl.EnumerateKeys(vl.AllIndices(), func(k Key) {
		obs := mgr.inputTable.ValueOf(k)
		fitted := fit.ValueOf(k)
		if obs == 0 && fitted == 0 {
			return
		}
		r := obs - fitted
		state := make([]int, vl.Len())
		for i := range state {
			state[i] = k.GetValue(vl, VariableIndex(i))
		}
		report.Cells = append(report.Cells, models.ResidualCell{
			State:    state,
			Observed: obs,
			Fitted:   fitted,
			Residual: r,
		})
		if r < 0 {
			r = -r
		}
		if r > report.MaxAbsResidual {
			report.MaxAbsResidual = r
		}
	})
	return report
}

// ValidateReferenceModel is the best-effort spec validation surfaced to
// callers; unknown tokens are reported one by one, never aborting an
// enclosing search.
func (mgr *VBManager) ValidateReferenceModel(spec string) models.ValidationResult {
	v := ValidateModelSpec(mgr.varList, spec)
	out := models.ValidationResult{Valid: v.Valid}
	for _, e := range v.Errors {
		out.Errors = append(out.Errors, models.TokenIssue{Token: e.Token, Message: e.Message})
	}
	if v.Model != nil {
		out.ModelName = v.Model.PrintName(mgr.varList)
	}
	return out
}

// SearchOneLevel generates the loopless neighbors of a model in the
// manager's current direction.
func (mgr *VBManager) SearchOneLevel(m *Model) []*Model {
	return LooplessStrategy{}.Neighbors(mgr, m)
}
