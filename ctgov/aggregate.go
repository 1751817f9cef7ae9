package ctgov

import (
	"sort"
	"time"

	"github.com/c360/drugscout/pkg/dateutil"
)

// activeStatuses are the overall statuses of a live program. Candidate
// ranking prefers them when phases tie.
var activeStatuses = map[string]bool{
	"RECRUITING":              true,
	"ACTIVE_NOT_RECRUITING":   true,
	"ENROLLING_BY_INVITATION": true,
}

// conditionCompetitors distills condition trials into one row per drug.
// Each trial contributes its first drug or biologic arm, rows rank by
// phase then active status, and only the strongest row per drug name
// survives, capped at limit.
func conditionCompetitors(trials []Trial, limit int) []ConditionDrug {
	candidates := make([]ConditionDrug, 0, len(trials))
	for _, t := range trials {
		arm, ok := t.PrimaryDrug()
		if !ok {
			continue
		}
		condition := ""
		if len(t.Conditions) > 0 {
			condition = t.Conditions[0]
		}
		candidates = append(candidates, ConditionDrug{
			NCTID:     t.NCTID,
			DrugName:  arm.Name,
			Condition: condition,
			Phase:     t.Phase,
			Status:    t.OverallStatus,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := PhaseRank(candidates[i].Phase), PhaseRank(candidates[j].Phase)
		if ri != rj {
			return ri > rj
		}
		return activeStatuses[candidates[i].Status] && !activeStatuses[candidates[j].Status]
	})

	seen := make(map[string]bool, len(candidates))
	unique := make([]ConditionDrug, 0, len(candidates))
	for _, cd := range candidates {
		if seen[cd.DrugName] {
			continue
		}
		seen[cd.DrugName] = true
		unique = append(unique, cd)
		if limit > 0 && len(unique) == limit {
			break
		}
	}
	return unique
}

type competitorKey struct {
	sponsor string
	drug    string
}

// competitorGroup accumulates one (sponsor, drug) pair during landscape
// aggregation. lastStart mirrors entry.MostRecentStart in parsed form
// for comparisons across date precisions.
type competitorGroup struct {
	entry     CompetitorEntry
	statuses  map[string]struct{}
	lastStart time.Time
}

// aggregateLandscape groups drug and biologic trials by sponsor and drug
// name. Trials without such an arm still count toward the total but stay
// out of the distribution, the recent-start list, and the competitor
// groups.
func aggregateLandscape(trials []Trial, topN int) ConditionLandscape {
	distribution := make(map[string]int)
	var recent []RecentStart
	groups := make(map[competitorKey]*competitorGroup)
	var order []competitorKey

	for _, t := range trials {
		arm, ok := t.PrimaryDrug()
		if !ok {
			continue
		}

		distribution[t.Phase]++
		if dateutil.Year(t.StartDate) >= recentStartYear {
			recent = append(recent, RecentStart{
				NCTID:   t.NCTID,
				Sponsor: t.Sponsor,
				Drug:    arm.Name,
				Phase:   t.Phase,
			})
		}

		key := competitorKey{sponsor: t.Sponsor, drug: arm.Name}
		group := groups[key]
		if group == nil {
			group = &competitorGroup{
				entry: CompetitorEntry{
					Sponsor:  t.Sponsor,
					DrugName: arm.Name,
					DrugType: arm.Type,
					MaxPhase: t.Phase,
				},
				statuses: make(map[string]struct{}),
			}
			groups[key] = group
			order = append(order, key)
		}

		group.entry.TrialCount++
		group.statuses[t.OverallStatus] = struct{}{}
		group.entry.TotalEnrollment += t.Enrollment
		if PhaseRank(t.Phase) > PhaseRank(group.entry.MaxPhase) {
			group.entry.MaxPhase = t.Phase
		}
		if start, ok := dateutil.ParseTrialDate(t.StartDate); ok && start.After(group.lastStart) {
			group.lastStart = start
			group.entry.MostRecentStart = t.StartDate
		}
	}

	// Build in first-seen order so full ties after phase and enrollment
	// stay deterministic under the stable sort.
	competitors := make([]CompetitorEntry, 0, len(order))
	for _, key := range order {
		group := groups[key]
		group.entry.Statuses = sortedStatuses(group.statuses)
		competitors = append(competitors, group.entry)
	}
	sort.SliceStable(competitors, func(i, j int) bool {
		ri, rj := PhaseRank(competitors[i].MaxPhase), PhaseRank(competitors[j].MaxPhase)
		if ri != rj {
			return ri > rj
		}
		return competitors[i].TotalEnrollment > competitors[j].TotalEnrollment
	})
	if topN > 0 && len(competitors) > topN {
		competitors = competitors[:topN]
	}

	return ConditionLandscape{
		TotalTrialCount:   len(trials),
		Competitors:       competitors,
		PhaseDistribution: distribution,
		RecentStarts:      recent,
	}
}

func sortedStatuses(set map[string]struct{}) []string {
	statuses := make([]string, 0, len(set))
	for s := range set {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	return statuses
}
