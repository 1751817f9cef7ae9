package ctgov

import "strings"

// phaseNames maps the registry's phase enums to display labels.
var phaseNames = map[string]string{
	"EARLY_PHASE1": "Early Phase 1",
	"PHASE1":       "Phase 1",
	"PHASE2":       "Phase 2",
	"PHASE3":       "Phase 3",
	"PHASE4":       "Phase 4",
	"NA":           "Not Applicable",
}

// normalizePhase renders a registry phase list as one display label. An
// empty list is "Not Applicable"; multiple phases join with a slash, so
// ["PHASE2", "PHASE3"] becomes "Phase 2/Phase 3". Unrecognized values
// pass through untouched.
func normalizePhase(phases []string) string {
	if len(phases) == 0 {
		return "Not Applicable"
	}
	names := make([]string, len(phases))
	for i, p := range phases {
		if name, ok := phaseNames[p]; ok {
			names[i] = name
		} else {
			names[i] = p
		}
	}
	return strings.Join(names, "/")
}

// phaseRanks orders phase labels by maturity. A combined label slots
// between its pure neighbors, so Phase 2/Phase 3 outranks Phase 2 but
// not Phase 3.
var phaseRanks = map[string]int{
	"Not Applicable":  0,
	"Early Phase 1":   1,
	"Phase 1":         2,
	"Phase 1/Phase 2": 3,
	"Phase 2":         4,
	"Phase 2/Phase 3": 5,
	"Phase 3":         6,
	"Phase 3/Phase 4": 7,
	"Phase 4":         8,
}

// PhaseRank returns the maturity rank of a phase label. Higher is later
// stage; labels outside the ladder rank zero.
func PhaseRank(phase string) int {
	return phaseRanks[phase]
}
