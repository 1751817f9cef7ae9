package opentargets

// Association is a target-disease association with its per-datatype
// evidence breakdown.
type Association struct {
	DiseaseID        string             `json:"disease_id"`
	DiseaseName      string             `json:"disease_name"`
	OverallScore     float64            `json:"overall_score"`
	DatatypeScores   map[string]float64 `json:"datatype_scores"`
	TherapeuticAreas []string           `json:"therapeutic_areas"`
}

// Pathway is a Reactome pathway the target participates in.
type Pathway struct {
	PathwayID       string `json:"pathway_id"`
	PathwayName     string `json:"pathway_name"`
	TopLevelPathway string `json:"top_level_pathway"`
}

// Interaction is a protein-protein interaction partner.
type Interaction struct {
	InteractingTargetID     string   `json:"interacting_target_id"`
	InteractingTargetSymbol string   `json:"interacting_target_symbol"`
	Score                   *float64 `json:"score"` // null for reactome and signor
	SourceDatabase          string   `json:"source_database"`
	BiologicalRole          string   `json:"biological_role"`
	EvidenceCount           int      `json:"evidence_count"`
	InteractionType         string   `json:"interaction_type,omitempty"`
}

// CellTypeExpression is protein expression in one cell type within a tissue.
type CellTypeExpression struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Reliability bool   `json:"reliability"`
}

// RNAExpression is an RNA expression measurement.
type RNAExpression struct {
	Value    float64 `json:"value"`
	Quantile int     `json:"quantile"`
	Unit     string  `json:"unit"`
}

// ProteinExpression is a protein expression measurement with cell type detail.
type ProteinExpression struct {
	Level       int                  `json:"level"`
	Reliability bool                 `json:"reliability"`
	CellTypes   []CellTypeExpression `json:"cell_types,omitempty"`
}

// TissueExpression is expression data for a single tissue.
type TissueExpression struct {
	TissueID         string            `json:"tissue_id"`
	TissueName       string            `json:"tissue_name"`
	AnatomicalSystem string            `json:"anatomical_system"`
	RNA              RNAExpression     `json:"rna"`
	Protein          ProteinExpression `json:"protein"`
}

// BiologicalModel is a specific mouse model (knockout, knock-in, etc.).
type BiologicalModel struct {
	AllelicComposition string   `json:"allelic_composition"`
	GeneticBackground  string   `json:"genetic_background"`
	Literature         []string `json:"literature,omitempty"`
	ModelID            string   `json:"model_id"`
}

// MousePhenotype is a phenotype observed in mouse models for a target.
type MousePhenotype struct {
	PhenotypeID      string            `json:"phenotype_id"`
	PhenotypeLabel   string            `json:"phenotype_label"`
	Categories       []string          `json:"categories"`
	BiologicalModels []BiologicalModel `json:"biological_models,omitempty"`
}

// SafetyEffect is a safety effect with direction and dosing conditions.
type SafetyEffect struct {
	Direction string `json:"direction"`
	Dosing    string `json:"dosing,omitempty"`
}

// SafetyLiability is a known target safety effect.
type SafetyLiability struct {
	Event      string         `json:"event,omitempty"`
	EventID    string         `json:"event_id,omitempty"`
	Effects    []SafetyEffect `json:"effects,omitempty"`
	Datasource string         `json:"datasource,omitempty"`
	Literature string         `json:"literature,omitempty"`
	URL        string         `json:"url,omitempty"`
}

// AdverseEvent is a significant pharmacovigilance signal for a drug.
type AdverseEvent struct {
	Name               string  `json:"name"`
	MeddraCode         string  `json:"meddra_code,omitempty"`
	Count              int     `json:"count"`
	LogLikelihoodRatio float64 `json:"log_likelihood_ratio"`
}

// GeneticConstraint is a gnomAD loss-of-function intolerance score.
// Pointer fields distinguish "not reported" from a genuine zero.
type GeneticConstraint struct {
	ConstraintType string   `json:"constraint_type"` // "syn", "mis", "lof"
	OE             *float64 `json:"oe,omitempty"`
	OELower        *float64 `json:"oe_lower,omitempty"`
	OEUpper        *float64 `json:"oe_upper,omitempty"`
	Score          *float64 `json:"score,omitempty"`
	UpperBin       *int     `json:"upper_bin,omitempty"` // 0 most constrained, 5 least
}

// KnownDrug is a drug known to act on a target or disease, with indication
// and phase information. Rows come from the knowledge graph's knownDrugs
// collection on both target and disease nodes.
type KnownDrug struct {
	DrugID            string   `json:"drug_id"`
	DrugName          string   `json:"drug_name"`
	DiseaseID         string   `json:"disease_id"`
	DiseaseName       string   `json:"disease_name"`
	Phase             float64  `json:"phase"`
	Status            string   `json:"status,omitempty"`
	MechanismOfAction string   `json:"mechanism_of_action"`
	TrialIDs          []string `json:"trial_ids,omitempty"`
}

// TargetProfile is everything the knowledge graph returns for one target,
// populated by a single fetch and cached under the target id.
type TargetProfile struct {
	TargetID           string              `json:"target_id"`
	Symbol             string              `json:"symbol"`
	Name               string              `json:"name"`
	Associations       []Association       `json:"associations,omitempty"`
	Pathways           []Pathway           `json:"pathways,omitempty"`
	Interactions       []Interaction       `json:"interactions,omitempty"`
	KnownDrugs         []KnownDrug         `json:"known_drugs,omitempty"`
	Expressions        []TissueExpression  `json:"expressions,omitempty"`
	MousePhenotypes    []MousePhenotype    `json:"mouse_phenotypes,omitempty"`
	SafetyLiabilities  []SafetyLiability   `json:"safety_liabilities,omitempty"`
	GeneticConstraints []GeneticConstraint `json:"genetic_constraints,omitempty"`
}

// AssociationsAbove returns the associations with an overall score at or
// above minScore, preserving the graph's score ordering.
func (t TargetProfile) AssociationsAbove(minScore float64) []Association {
	var out []Association
	for _, a := range t.Associations {
		if a.OverallScore >= minScore {
			out = append(out, a)
		}
	}
	return out
}

// TargetRef is a lightweight reference from a drug to one of its targets
// via a mechanism of action. The full TargetProfile is fetched and cached
// separately, keyed by TargetID.
type TargetRef struct {
	TargetID          string `json:"target_id"`
	TargetSymbol      string `json:"target_symbol"`
	MechanismOfAction string `json:"mechanism_of_action"`
	ActionType        string `json:"action_type,omitempty"`
}

// DrugWarning is a black box warning or market withdrawal.
type DrugWarning struct {
	WarningType   string `json:"warning_type"`
	Description   string `json:"description,omitempty"`
	ToxicityClass string `json:"toxicity_class,omitempty"`
	Country       string `json:"country,omitempty"`
	Year          int    `json:"year,omitempty"`
	EFOID         string `json:"efo_id,omitempty"`
}

// Indication is an approved or investigational indication for a drug.
type Indication struct {
	DiseaseID   string  `json:"disease_id"`
	DiseaseName string  `json:"disease_name"`
	MaxPhase    float64 `json:"max_phase"`
}

// DrugProfile is everything the knowledge graph returns for one drug,
// populated by a single fetch and cached under the ChEMBL id. Targets are
// references only; resolve them with GetTarget or GetDrugWithTargets.
type DrugProfile struct {
	ChemblID                   string         `json:"chembl_id"`
	Name                       string         `json:"name"`
	Synonyms                   []string       `json:"synonyms,omitempty"`
	TradeNames                 []string       `json:"trade_names,omitempty"`
	DrugType                   string         `json:"drug_type"`
	IsApproved                 bool           `json:"is_approved"`
	MaxClinicalPhase           float64        `json:"max_clinical_phase"`
	YearFirstApproved          int            `json:"year_first_approved,omitempty"`
	Warnings                   []DrugWarning  `json:"warnings,omitempty"`
	Indications                []Indication   `json:"indications,omitempty"`
	Targets                    []TargetRef    `json:"targets,omitempty"`
	AdverseEvents              []AdverseEvent `json:"adverse_events,omitempty"`
	AdverseEventsCriticalValue float64        `json:"adverse_events_critical_value,omitempty"`
}

// ApprovedDiseaseIDs returns the disease ids with a phase 4 indication.
func (d DrugProfile) ApprovedDiseaseIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, ind := range d.Indications {
		if ind.MaxPhase >= 4 {
			ids[ind.DiseaseID] = true
		}
	}
	return ids
}

// InvestigatedDiseaseIDs returns every disease id under investigation at
// any phase.
func (d DrugProfile) InvestigatedDiseaseIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, ind := range d.Indications {
		ids[ind.DiseaseID] = true
	}
	return ids
}

// TargetIDs returns the distinct target ids referenced by the drug, in
// first-appearance order. A drug with several mechanisms against the same
// target contributes that target once.
func (d DrugProfile) TargetIDs() []string {
	seen := make(map[string]bool, len(d.Targets))
	var ids []string
	for _, ref := range d.Targets {
		if ref.TargetID == "" || seen[ref.TargetID] {
			continue
		}
		seen[ref.TargetID] = true
		ids = append(ids, ref.TargetID)
	}
	return ids
}

// DrugWithTargets bundles a drug profile with the full profile of every
// target it references.
type DrugWithTargets struct {
	Drug DrugProfile `json:"drug"`

	// Targets holds one profile per distinct referenced target, in the
	// same order as Drug.TargetIDs().
	Targets []TargetProfile `json:"targets"`
}

// DiseaseSynonyms holds a disease's synonym terms grouped by relation type.
type DiseaseSynonyms struct {
	DiseaseID   string   `json:"disease_id"`
	DiseaseName string   `json:"disease_name"`
	ParentNames []string `json:"parent_names,omitempty"`
	Exact       []string `json:"exact,omitempty"`
	Related     []string `json:"related,omitempty"`
	Narrow      []string `json:"narrow,omitempty"`
	Broad       []string `json:"broad,omitempty"`
}

// AllSynonyms returns the exact and related terms combined with parent
// disease names, the set used to widen registry searches.
func (s DiseaseSynonyms) AllSynonyms() []string {
	out := make([]string, 0, len(s.Exact)+len(s.Related)+len(s.ParentNames))
	out = append(out, s.Exact...)
	out = append(out, s.Related...)
	out = append(out, s.ParentNames...)
	return out
}
