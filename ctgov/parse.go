package ctgov

import "strings"

// Wire types for the registry's v2 study envelope. Absent modules decode
// to zero values, so the parser reads through them without nil checks.

type searchResponse struct {
	Studies       []study `json:"studies"`
	NextPageToken string  `json:"nextPageToken"`
	TotalCount    int     `json:"totalCount"`
}

type study struct {
	ProtocolSection protocolSection `json:"protocolSection"`
	HasResults      bool            `json:"hasResults"`
}

type protocolSection struct {
	Identification identificationModule `json:"identificationModule"`
	Status         statusModule         `json:"statusModule"`
	Design         designModule         `json:"designModule"`
	Description    descriptionModule    `json:"descriptionModule"`
	Sponsors       sponsorModule        `json:"sponsorCollaboratorsModule"`
	Conditions     conditionsModule     `json:"conditionsModule"`
	Arms           armsModule           `json:"armsInterventionsModule"`
	Outcomes       outcomesModule       `json:"outcomesModule"`
	References     referencesModule     `json:"referencesModule"`
}

type identificationModule struct {
	NCTID      string `json:"nctId"`
	BriefTitle string `json:"briefTitle"`
}

type statusModule struct {
	OverallStatus         string     `json:"overallStatus"`
	WhyStopped            string     `json:"whyStopped"`
	StartDate             dateStruct `json:"startDateStruct"`
	PrimaryCompletionDate dateStruct `json:"primaryCompletionDateStruct"`
}

type dateStruct struct {
	Date string `json:"date"`
}

type designModule struct {
	Phases     []string       `json:"phases"`
	StudyType  string         `json:"studyType"`
	Enrollment enrollmentInfo `json:"enrollmentInfo"`
}

type enrollmentInfo struct {
	Count int `json:"count"`
}

type descriptionModule struct {
	BriefSummary string `json:"briefSummary"`
}

type sponsorModule struct {
	LeadSponsor   agency   `json:"leadSponsor"`
	Collaborators []agency `json:"collaborators"`
}

type agency struct {
	Name string `json:"name"`
}

type conditionsModule struct {
	Conditions []string `json:"conditions"`
}

type armsModule struct {
	Interventions []interventionRow `json:"interventions"`
}

type interventionRow struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type outcomesModule struct {
	PrimaryOutcomes []outcomeRow `json:"primaryOutcomes"`
}

type outcomeRow struct {
	Measure   string `json:"measure"`
	TimeFrame string `json:"timeFrame"`
}

type referencesModule struct {
	References []referenceRow `json:"references"`
}

type referenceRow struct {
	PMID string `json:"pmid"`
}

func parseTrial(s study) Trial {
	proto := s.ProtocolSection

	interventions := make([]Intervention, 0, len(proto.Arms.Interventions))
	for _, row := range proto.Arms.Interventions {
		interventions = append(interventions, Intervention{
			Type:        formatInterventionType(row.Type),
			Name:        row.Name,
			Description: row.Description,
		})
	}

	outcomes := make([]PrimaryOutcome, 0, len(proto.Outcomes.PrimaryOutcomes))
	for _, row := range proto.Outcomes.PrimaryOutcomes {
		outcomes = append(outcomes, PrimaryOutcome{
			Measure:   row.Measure,
			TimeFrame: row.TimeFrame,
		})
	}

	collaborators := make([]string, 0, len(proto.Sponsors.Collaborators))
	for _, c := range proto.Sponsors.Collaborators {
		collaborators = append(collaborators, c.Name)
	}

	var references []string
	for _, r := range proto.References.References {
		if r.PMID != "" {
			references = append(references, r.PMID)
		}
	}

	return Trial{
		NCTID:           proto.Identification.NCTID,
		Title:           proto.Identification.BriefTitle,
		BriefSummary:    proto.Description.BriefSummary,
		Phase:           normalizePhase(proto.Design.Phases),
		OverallStatus:   proto.Status.OverallStatus,
		WhyStopped:      proto.Status.WhyStopped,
		Conditions:      proto.Conditions.Conditions,
		Interventions:   interventions,
		Sponsor:         proto.Sponsors.LeadSponsor.Name,
		Collaborators:   collaborators,
		Enrollment:      proto.Design.Enrollment.Count,
		StartDate:       proto.Status.StartDate.Date,
		CompletionDate:  proto.Status.PrimaryCompletionDate.Date,
		StudyType:       proto.Design.StudyType,
		PrimaryOutcomes: outcomes,
		ResultsPosted:   s.HasResults,
		References:      references,
	}
}

// formatInterventionType converts a registry enum like DIAGNOSTIC_TEST
// to its display form, Diagnostic Test.
func formatInterventionType(raw string) string {
	words := strings.Fields(strings.ReplaceAll(raw, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
