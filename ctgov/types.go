package ctgov

// Intervention is one arm of a trial: what is administered or applied.
// Type carries the registry enum in display form ("Drug", "Biological",
// "Diagnostic Test").
type Intervention struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Intervention types that count as drug-like. Devices, procedures, and
// behavioral arms are neither.
const (
	InterventionDrug       = "Drug"
	InterventionBiological = "Biological"
)

// PrimaryOutcome is one registered primary endpoint.
type PrimaryOutcome struct {
	Measure   string `json:"measure"`
	TimeFrame string `json:"time_frame,omitempty"`
}

// Trial is one registry record, immutable once parsed. Dates keep the
// registry's string form, which may be day, month, or year precision.
// CompletionDate is the primary completion date; References lists linked
// PubMed ids.
type Trial struct {
	NCTID           string           `json:"nct_id"`
	Title           string           `json:"title"`
	BriefSummary    string           `json:"brief_summary,omitempty"`
	Phase           string           `json:"phase"`
	OverallStatus   string           `json:"overall_status"`
	WhyStopped      string           `json:"why_stopped,omitempty"`
	Conditions      []string         `json:"conditions,omitempty"`
	Interventions   []Intervention   `json:"interventions,omitempty"`
	Sponsor         string           `json:"sponsor"`
	Collaborators   []string         `json:"collaborators,omitempty"`
	Enrollment      int              `json:"enrollment,omitempty"`
	StartDate       string           `json:"start_date,omitempty"`
	CompletionDate  string           `json:"completion_date,omitempty"`
	StudyType       string           `json:"study_type"`
	PrimaryOutcomes []PrimaryOutcome `json:"primary_outcomes,omitempty"`
	ResultsPosted   bool             `json:"results_posted"`
	References      []string         `json:"references,omitempty"`
}

// PrimaryDrug returns the trial's first drug or biologic intervention.
// The second return is false when the trial has no such arm.
func (t Trial) PrimaryDrug() (Intervention, bool) {
	for _, arm := range t.Interventions {
		if arm.Type == InterventionDrug || arm.Type == InterventionBiological {
			return arm, true
		}
	}
	return Intervention{}, false
}

// ConditionDrug is one competitor drug in a condition's trial space,
// represented by the strongest trial testing it there.
type ConditionDrug struct {
	NCTID     string `json:"nct_id"`
	DrugName  string `json:"drug_name"`
	Condition string `json:"condition"`
	Phase     string `json:"phase"`
	Status    string `json:"status"`
}

// WhitespaceResult reports whether a drug-condition pair is untried in
// the registry. IsWhitespace is true exactly when ExactMatchCount is
// zero, and only then is ConditionDrugs populated. Computed on demand,
// never cached as a unit.
type WhitespaceResult struct {
	IsWhitespace        bool            `json:"is_whitespace"`
	ExactMatchCount     int             `json:"exact_match_count"`
	DrugOnlyTrials      int             `json:"drug_only_trials"`
	ConditionOnlyTrials int             `json:"condition_only_trials"`
	ConditionDrugs      []ConditionDrug `json:"condition_drugs,omitempty"`
}

// CompetitorEntry is one (sponsor, drug) program in a condition
// landscape, aggregated across that pair's trials. Statuses holds the
// distinct overall statuses observed, sorted.
type CompetitorEntry struct {
	Sponsor         string   `json:"sponsor"`
	DrugName        string   `json:"drug_name"`
	DrugType        string   `json:"drug_type,omitempty"`
	MaxPhase        string   `json:"max_phase"`
	TrialCount      int      `json:"trial_count"`
	Statuses        []string `json:"statuses"`
	TotalEnrollment int      `json:"total_enrollment"`
	MostRecentStart string   `json:"most_recent_start,omitempty"`
}

// RecentStart is one trial started on or after the recent-activity
// cutoff year.
type RecentStart struct {
	NCTID   string `json:"nct_id"`
	Sponsor string `json:"sponsor"`
	Drug    string `json:"drug"`
	Phase   string `json:"phase"`
}

// ConditionLandscape is the competitive picture for one condition.
// TotalTrialCount counts every fetched trial; the phase distribution,
// recent starts, and competitor groups cover only trials with a drug or
// biologic arm.
type ConditionLandscape struct {
	TotalTrialCount   int               `json:"total_trial_count"`
	Competitors       []CompetitorEntry `json:"competitors"`
	PhaseDistribution map[string]int    `json:"phase_distribution"`
	RecentStarts      []RecentStart     `json:"recent_starts,omitempty"`
}

// TerminatedTrial is a trial that stopped early, with the registry's
// free-text stop reason classified into a StopCategory.
type TerminatedTrial struct {
	Trial
	StopCategory StopCategory `json:"stop_category"`
}

// TerminationDate returns the primary completion date, which for a
// stopped trial is when it actually ended.
func (t TerminatedTrial) TerminationDate() string {
	return t.CompletionDate
}
