package models

// VariableSpec declares one categorical variable of a dataset.
type VariableSpec struct {
	Name        string   `json:"name"`
	Abbrev      string   `json:"abbrev"`
	Cardinality int      `json:"cardinality"`
	Dependent   bool     `json:"dependent,omitempty"`
	ValueLabels []string `json:"valueLabels,omitempty"` // optional label per value index
}

// DataRow is one observed joint assignment with its frequency. Values are
// per-variable integers in [0, cardinality); Labels may be used instead
// when the variable declares value labels. A missing or zero Count is
// taken as 1, and every row counts 1 when the dataset sets NoFrequency.
type DataRow struct {
	Values []int    `json:"values,omitempty"`
	Labels []string `json:"labels,omitempty"`
	Count  float64  `json:"count,omitempty"`
}

// DatasetSpec is the abstract input format consumed by the engine: a
// variable list plus frequency rows.
type DatasetSpec struct {
	Name        string         `json:"name"`
	Variables   []VariableSpec `json:"variables"`
	Rows        []DataRow      `json:"rows"`
	NoFrequency bool           `json:"noFrequency,omitempty"` // every row counts 1
}

// DatasetSummary describes a registered dataset.
type DatasetSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	VariableCount int     `json:"variableCount"`
	SampleSize    float64 `json:"sampleSize"`
	StateSpace    int     `json:"stateSpace"`
	PopulatedKeys int     `json:"populatedKeys"`
	KeySegments   int     `json:"keySegments"`
	Directed      bool    `json:"directed"`
	DataEntropy   float64 `json:"dataEntropy"` // bits
}

// FitResult is the full statistical summary of one fitted model.
type FitResult struct {
	ModelName string  `json:"modelName"`
	HasLoops  bool    `json:"hasLoops"`
	H         float64 `json:"h"`   // entropy of the fit, bits
	T         float64 `json:"t"`   // transmission: H(fit) - H(data), bits
	LR        float64 `json:"lr"`  // likelihood-ratio chi-squared vs saturated
	DF        float64 `json:"df"`  // model degrees of freedom
	DDF       float64 `json:"ddf"` // DF(saturated) - DF(model)
	AIC       float64 `json:"aic"`
	BIC       float64 `json:"bic"`
	Alpha     float64 `json:"alpha"` // upper-tail p-value of LR at DDF

	// IPF bookkeeping: iterations and error are zero for junction-tree
	// fits, which always report Converged
	IPFIterations int     `json:"ipfIterations,omitempty"`
	IPFError      float64 `json:"ipfError,omitempty"`
	Converged     bool    `json:"converged"`
}

// SearchCandidate is one ranked model from a level search.
type SearchCandidate struct {
	ModelName string    `json:"modelName"`
	Statistic float64   `json:"statistic"`
	Level     int       `json:"level"`
	Fit       FitResult `json:"fit"`
}

// Progress event kinds emitted by the search driver.
const (
	ProgressSearchStarted  = "SearchStarted"
	ProgressSearchLevel    = "SearchLevel"
	ProgressSearchComplete = "SearchComplete"
)

// ProgressEvent is broadcast synchronously from the search driver after
// each level.
type ProgressEvent struct {
	Kind            string  `json:"kind"`
	RunID           string  `json:"runId,omitempty"`
	CurrentLevel    int     `json:"currentLevel"`
	TotalLevels     int     `json:"totalLevels"`
	ModelsEvaluated int     `json:"modelsEvaluated"`
	BestModelName   string  `json:"bestModelName,omitempty"`
	BestStatistic   float64 `json:"bestStatistic,omitempty"`
	StatisticName   string  `json:"statisticName"`
}

// SearchRequest configures a model-lattice search over a dataset.
type SearchRequest struct {
	Seed      string `json:"seed,omitempty"`      // model spec; empty = default reference
	Direction string `json:"direction,omitempty"` // "ascending" | "descending"
	Strategy  string `json:"strategy,omitempty"`  // "loopless" | "full" | "disjoint"
	Statistic string `json:"statistic,omitempty"` // "aic" | "bic" | "ddf"
	Width     int    `json:"width,omitempty"`
	MaxLevels int    `json:"maxLevels,omitempty"`
	Parallel  bool   `json:"parallel,omitempty"`
	Workers   int    `json:"workers,omitempty"`
	TimeoutMs int64  `json:"timeoutMs,omitempty"`
}

// Search run states.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusComplete  = "complete"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// SearchRun is the persisted state of one search job.
type SearchRun struct {
	ID              string            `json:"id"`
	DatasetID       string            `json:"datasetId"`
	Status          string            `json:"status"`
	Request         SearchRequest     `json:"request"`
	CurrentLevel    int               `json:"currentLevel"`
	ModelsEvaluated int               `json:"modelsEvaluated"`
	Candidates      []SearchCandidate `json:"candidates,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// TokenIssue reports one offending token of a model spec.
type TokenIssue struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// ValidationResult is the best-effort outcome of model-spec validation.
type ValidationResult struct {
	Valid     bool         `json:"valid"`
	Errors    []TokenIssue `json:"errors,omitempty"`
	ModelName string       `json:"modelName,omitempty"`
}

// ResidualCell is one populated state's observed-minus-fitted gap.
type ResidualCell struct {
	State    []int   `json:"state"`
	Observed float64 `json:"observed"`
	Fitted   float64 `json:"fitted"`
	Residual float64 `json:"residual"`
}

// ResidualReport summarizes P0 - PM for a fitted model.
type ResidualReport struct {
	ModelName      string         `json:"modelName"`
	MaxAbsResidual float64        `json:"maxAbsResidual"`
	Cells          []ResidualCell `json:"cells"`
}

// CrosscheckResult records one BP-vs-IPF comparison on a decomposable model.
type CrosscheckResult struct {
	ModelName     string  `json:"modelName"`
	MaxCellDelta  float64 `json:"maxCellDelta"`
	EntropyDelta  float64 `json:"entropyDelta"`
	JensenShannon float64 `json:"jensenShannon"`
	Agrees        bool    `json:"agrees"`
	SnapshotID    int64   `json:"snapshotId"`
}
