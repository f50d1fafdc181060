package model

// Phase identifies one stage of the collection pipeline.
type Phase string

const (
	PhaseSearch     Phase = "search"
	PhaseEnrich     Phase = "enrich"
	PhaseSynthesize Phase = "synthesize"
	PhaseImport     Phase = "import"
)

// PhaseOrder lists the phases in execution order.
var PhaseOrder = []Phase{PhaseSearch, PhaseEnrich, PhaseSynthesize, PhaseImport}

// SearchPair is one (city, search term) unit of work for the search phase.
type SearchPair struct {
	City      string `yaml:"city" json:"city"`
	State     string `yaml:"state" json:"state"`
	StateCode string `yaml:"state_code" json:"state_code"`
	Term      string `yaml:"term,omitempty" json:"term,omitempty"`
}

// PhaseResult summarises one phase of a run for the report.
type PhaseResult struct {
	Phase      Phase  `json:"phase"`
	Items      int    `json:"items"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ItemFailure records a single candidate or page that could not be
// processed, so operators can follow up without digging through logs.
type ItemFailure struct {
	Phase   Phase  `json:"phase"`
	Key     string `json:"key"`
	Message string `json:"message"`
}
