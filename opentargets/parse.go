package opentargets

import "strings"

// Wire types mirror the GraphQL response shapes field for field. They stay
// private to this package: callers only ever see the types in types.go,
// which carry stable snake_case serialization for the cache tiers.

type searchHit struct {
	ID     string `json:"id"`
	Entity string `json:"entity"`
}

type searchResponse struct {
	Search struct {
		Hits []searchHit `json:"hits"`
	} `json:"search"`
}

type mechanismRow struct {
	MechanismOfAction string `json:"mechanismOfAction"`
	ActionType        string `json:"actionType"`
	Targets           []struct {
		ID             string `json:"id"`
		ApprovedSymbol string `json:"approvedSymbol"`
	} `json:"targets"`
}

type indicationRow struct {
	MaxPhaseForIndication float64 `json:"maxPhaseForIndication"`
	Disease               struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"disease"`
}

type warningRow struct {
	WarningType   string `json:"warningType"`
	Description   string `json:"description"`
	ToxicityClass string `json:"toxicityClass"`
	Country       string `json:"country"`
	Year          int    `json:"year"`
	EFOID         string `json:"efoId"`
}

type adverseEventRow struct {
	Name       string  `json:"name"`
	MeddraCode string  `json:"meddraCode"`
	Count      int     `json:"count"`
	LogLR      float64 `json:"logLR"`
}

type drugNode struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name"`
	Synonyms                  []string `json:"synonyms"`
	TradeNames                []string `json:"tradeNames"`
	DrugType                  string   `json:"drugType"`
	IsApproved                bool     `json:"isApproved"`
	MaximumClinicalTrialPhase float64  `json:"maximumClinicalTrialPhase"`
	YearOfFirstApproval       int      `json:"yearOfFirstApproval"`
	MechanismsOfAction        struct {
		Rows []mechanismRow `json:"rows"`
	} `json:"mechanismsOfAction"`
	Indications struct {
		Rows []indicationRow `json:"rows"`
	} `json:"indications"`
	DrugWarnings  []warningRow `json:"drugWarnings"`
	AdverseEvents struct {
		Rows          []adverseEventRow `json:"rows"`
		CriticalValue float64           `json:"criticalValue"`
	} `json:"adverseEvents"`
}

type drugResponse struct {
	Drug *drugNode `json:"drug"`
}

type associationRow struct {
	Disease struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		TherapeuticAreas []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"therapeuticAreas"`
	} `json:"disease"`
	Score          float64 `json:"score"`
	DatatypeScores []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	} `json:"datatypeScores"`
}

type associationPage struct {
	Rows []associationRow `json:"rows"`
}

type pathwayRow struct {
	PathwayID    string `json:"pathwayId"`
	Pathway      string `json:"pathway"`
	TopLevelTerm string `json:"topLevelTerm"`
}

type interactionRow struct {
	IntB               string   `json:"intB"`
	IntBBiologicalRole string   `json:"intBBiologicalRole"`
	Score              *float64 `json:"score"`
	SourceDatabase     string   `json:"sourceDatabase"`
	Count              int      `json:"count"`
	TargetB            *struct {
		ID             string `json:"id"`
		ApprovedSymbol string `json:"approvedSymbol"`
	} `json:"targetB"`
}

type knownDrugRow struct {
	DrugID            string   `json:"drugId"`
	PrefName          string   `json:"prefName"`
	DiseaseID         string   `json:"diseaseId"`
	Label             string   `json:"label"`
	Phase             float64  `json:"phase"`
	Status            string   `json:"status"`
	MechanismOfAction string   `json:"mechanismOfAction"`
	CTIDs             []string `json:"ctIds"`
}

type expressionRow struct {
	Tissue struct {
		ID                string   `json:"id"`
		Label             string   `json:"label"`
		AnatomicalSystems []string `json:"anatomicalSystems"`
	} `json:"tissue"`
	RNA struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
		Level int     `json:"level"`
	} `json:"rna"`
	Protein struct {
		Level       int  `json:"level"`
		Reliability bool `json:"reliability"`
		CellType    []struct {
			Name        string `json:"name"`
			Level       int    `json:"level"`
			Reliability bool   `json:"reliability"`
		} `json:"cellType"`
	} `json:"protein"`
}

type phenotypeRow struct {
	ModelPhenotypeID      string `json:"modelPhenotypeId"`
	ModelPhenotypeLabel   string `json:"modelPhenotypeLabel"`
	ModelPhenotypeClasses []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"modelPhenotypeClasses"`
	BiologicalModels []struct {
		AllelicComposition string   `json:"allelicComposition"`
		GeneticBackground  string   `json:"geneticBackground"`
		ID                 string   `json:"id"`
		Literature         []string `json:"literature"`
	} `json:"biologicalModels"`
}

type safetyRow struct {
	Event   string `json:"event"`
	EventID string `json:"eventId"`
	Effects []struct {
		Direction string `json:"direction"`
		Dosing    string `json:"dosing"`
	} `json:"effects"`
	Datasource string `json:"datasource"`
	Literature string `json:"literature"`
	URL        string `json:"url"`
}

type constraintRow struct {
	ConstraintType string   `json:"constraintType"`
	Score          *float64 `json:"score"`
	OE             *float64 `json:"oe"`
	OELower        *float64 `json:"oeLower"`
	OEUpper        *float64 `json:"oeUpper"`
	UpperBin       *int     `json:"upperBin"`
}

type targetNode struct {
	ID                 string          `json:"id"`
	ApprovedSymbol     string          `json:"approvedSymbol"`
	ApprovedName       string          `json:"approvedName"`
	AssociatedDiseases associationPage `json:"associatedDiseases"`
	Pathways           []pathwayRow    `json:"pathways"`
	Interactions       struct {
		Rows []interactionRow `json:"rows"`
	} `json:"interactions"`
	KnownDrugs struct {
		Rows []knownDrugRow `json:"rows"`
	} `json:"knownDrugs"`
	Expressions       []expressionRow `json:"expressions"`
	MousePhenotypes   []phenotypeRow  `json:"mousePhenotypes"`
	SafetyLiabilities []safetyRow     `json:"safetyLiabilities"`
	GeneticConstraint []constraintRow `json:"geneticConstraint"`
}

type targetResponse struct {
	Target *targetNode `json:"target"`
}

type associationsPageResponse struct {
	Target *struct {
		AssociatedDiseases associationPage `json:"associatedDiseases"`
	} `json:"target"`
}

type diseaseDrugsResponse struct {
	Disease *struct {
		KnownDrugs struct {
			Rows []knownDrugRow `json:"rows"`
		} `json:"knownDrugs"`
	} `json:"disease"`
}

type diseaseSynonymsResponse struct {
	Disease *struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Parents []struct {
			Name string `json:"name"`
		} `json:"parents"`
		Synonyms []struct {
			Relation string   `json:"relation"`
			Terms    []string `json:"terms"`
		} `json:"synonyms"`
	} `json:"disease"`
}

// interactionTypes maps an interaction source database to the kind of
// relationship that database curates.
var interactionTypes = map[string]string{
	"intact":   "physical",
	"signor":   "signalling",
	"reactome": "enzymatic",
	"string":   "functional",
}

func parseDrug(node drugNode) DrugProfile {
	var targets []TargetRef
	for _, row := range node.MechanismsOfAction.Rows {
		for _, t := range row.Targets {
			targets = append(targets, TargetRef{
				TargetID:          t.ID,
				TargetSymbol:      t.ApprovedSymbol,
				MechanismOfAction: row.MechanismOfAction,
				ActionType:        row.ActionType,
			})
		}
	}

	var warnings []DrugWarning
	for _, w := range node.DrugWarnings {
		warnings = append(warnings, DrugWarning{
			WarningType:   w.WarningType,
			Description:   w.Description,
			ToxicityClass: w.ToxicityClass,
			Country:       w.Country,
			Year:          w.Year,
			EFOID:         w.EFOID,
		})
	}

	var indications []Indication
	for _, row := range node.Indications.Rows {
		indications = append(indications, Indication{
			DiseaseID:   row.Disease.ID,
			DiseaseName: row.Disease.Name,
			MaxPhase:    row.MaxPhaseForIndication,
		})
	}

	var events []AdverseEvent
	for _, ae := range node.AdverseEvents.Rows {
		events = append(events, AdverseEvent{
			Name:               ae.Name,
			MeddraCode:         ae.MeddraCode,
			Count:              ae.Count,
			LogLikelihoodRatio: ae.LogLR,
		})
	}

	return DrugProfile{
		ChemblID:                   node.ID,
		Name:                       node.Name,
		Synonyms:                   node.Synonyms,
		TradeNames:                 node.TradeNames,
		DrugType:                   node.DrugType,
		IsApproved:                 node.IsApproved,
		MaxClinicalPhase:           node.MaximumClinicalTrialPhase,
		YearFirstApproved:          node.YearOfFirstApproval,
		Warnings:                   warnings,
		Indications:                indications,
		Targets:                    targets,
		AdverseEvents:              events,
		AdverseEventsCriticalValue: node.AdverseEvents.CriticalValue,
	}
}

func parseTarget(node targetNode) TargetProfile {
	profile := TargetProfile{
		TargetID:     node.ID,
		Symbol:       node.ApprovedSymbol,
		Name:         node.ApprovedName,
		Associations: parseAssociations(node.AssociatedDiseases.Rows),
	}

	for _, p := range node.Pathways {
		profile.Pathways = append(profile.Pathways, Pathway{
			PathwayID:       p.PathwayID,
			PathwayName:     p.Pathway,
			TopLevelPathway: p.TopLevelTerm,
		})
	}
	for _, i := range node.Interactions.Rows {
		profile.Interactions = append(profile.Interactions, parseInteraction(i))
	}
	for _, d := range node.KnownDrugs.Rows {
		profile.KnownDrugs = append(profile.KnownDrugs, parseKnownDrug(d))
	}
	for _, e := range node.Expressions {
		profile.Expressions = append(profile.Expressions, parseExpression(e))
	}
	for _, m := range node.MousePhenotypes {
		profile.MousePhenotypes = append(profile.MousePhenotypes, parsePhenotype(m))
	}
	for _, s := range node.SafetyLiabilities {
		profile.SafetyLiabilities = append(profile.SafetyLiabilities, parseSafetyLiability(s))
	}
	for _, g := range node.GeneticConstraint {
		profile.GeneticConstraints = append(profile.GeneticConstraints, GeneticConstraint{
			ConstraintType: g.ConstraintType,
			Score:          g.Score,
			OE:             g.OE,
			OELower:        g.OELower,
			OEUpper:        g.OEUpper,
			UpperBin:       g.UpperBin,
		})
	}

	return profile
}

func parseAssociations(rows []associationRow) []Association {
	var out []Association
	for _, row := range rows {
		out = append(out, parseAssociation(row))
	}
	return out
}

func parseAssociation(row associationRow) Association {
	scores := make(map[string]float64, len(row.DatatypeScores))
	for _, s := range row.DatatypeScores {
		scores[s.ID] = s.Score
	}
	var areas []string
	for _, ta := range row.Disease.TherapeuticAreas {
		areas = append(areas, ta.Name)
	}
	return Association{
		DiseaseID:        row.Disease.ID,
		DiseaseName:      row.Disease.Name,
		OverallScore:     row.Score,
		DatatypeScores:   scores,
		TherapeuticAreas: areas,
	}
}

func parseInteraction(row interactionRow) Interaction {
	out := Interaction{
		InteractingTargetID: row.IntB,
		Score:               row.Score,
		SourceDatabase:      row.SourceDatabase,
		BiologicalRole:      row.IntBBiologicalRole,
		EvidenceCount:       row.Count,
		InteractionType:     interactionTypes[strings.ToLower(row.SourceDatabase)],
	}
	// targetB is null when the partner is not itself an annotated target;
	// intB still carries the raw identifier.
	if row.TargetB != nil {
		out.InteractingTargetID = row.TargetB.ID
		out.InteractingTargetSymbol = row.TargetB.ApprovedSymbol
	}
	return out
}

func parseKnownDrug(row knownDrugRow) KnownDrug {
	return KnownDrug{
		DrugID:            row.DrugID,
		DrugName:          row.PrefName,
		DiseaseID:         row.DiseaseID,
		DiseaseName:       row.Label,
		Phase:             row.Phase,
		Status:            row.Status,
		MechanismOfAction: row.MechanismOfAction,
		TrialIDs:          row.CTIDs,
	}
}

func parseExpression(row expressionRow) TissueExpression {
	var system string
	if len(row.Tissue.AnatomicalSystems) > 0 {
		system = row.Tissue.AnatomicalSystems[0]
	}
	var cellTypes []CellTypeExpression
	for _, ct := range row.Protein.CellType {
		cellTypes = append(cellTypes, CellTypeExpression{
			Name:        ct.Name,
			Level:       ct.Level,
			Reliability: ct.Reliability,
		})
	}
	return TissueExpression{
		TissueID:         row.Tissue.ID,
		TissueName:       row.Tissue.Label,
		AnatomicalSystem: system,
		RNA: RNAExpression{
			Value:    row.RNA.Value,
			Quantile: row.RNA.Level,
			Unit:     row.RNA.Unit,
		},
		Protein: ProteinExpression{
			Level:       row.Protein.Level,
			Reliability: row.Protein.Reliability,
			CellTypes:   cellTypes,
		},
	}
}

func parsePhenotype(row phenotypeRow) MousePhenotype {
	var categories []string
	for _, c := range row.ModelPhenotypeClasses {
		categories = append(categories, c.Label)
	}
	var models []BiologicalModel
	for _, m := range row.BiologicalModels {
		models = append(models, BiologicalModel{
			AllelicComposition: m.AllelicComposition,
			GeneticBackground:  m.GeneticBackground,
			Literature:         m.Literature,
			ModelID:            m.ID,
		})
	}
	return MousePhenotype{
		PhenotypeID:      row.ModelPhenotypeID,
		PhenotypeLabel:   row.ModelPhenotypeLabel,
		Categories:       categories,
		BiologicalModels: models,
	}
}

func parseSafetyLiability(row safetyRow) SafetyLiability {
	var effects []SafetyEffect
	for _, e := range row.Effects {
		effects = append(effects, SafetyEffect{Direction: e.Direction, Dosing: e.Dosing})
	}
	return SafetyLiability{
		Event:      row.Event,
		EventID:    row.EventID,
		Effects:    effects,
		Datasource: row.Datasource,
		Literature: row.Literature,
		URL:        row.URL,
	}
}

// dedupeKnownDrugs collapses rows to one entry per drug id, keeping the
// highest-phase row and preserving first-appearance order.
func dedupeKnownDrugs(rows []KnownDrug) []KnownDrug {
	best := make(map[string]int, len(rows))
	var out []KnownDrug
	for _, row := range rows {
		idx, seen := best[row.DrugID]
		if !seen {
			best[row.DrugID] = len(out)
			out = append(out, row)
			continue
		}
		if row.Phase > out[idx].Phase {
			out[idx] = row
		}
	}
	return out
}
