package ctgov

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/c360/drugscout/pkg/dateutil"
)

// SearchQuery describes one registry search. Zero-valued fields stay out
// of the request.
type SearchQuery struct {
	// Drug matches against trial interventions.
	Drug string

	// Condition matches against the studied conditions.
	Condition string

	// Term is free text matched across the whole record.
	Term string

	// DateBefore keeps only trials first posted on or before the cutoff,
	// so a search can be replayed as it would have looked in the past.
	// The zero time means no cutoff.
	DateBefore time.Time

	// PhaseFilter is a clause in the registry's AREA[Phase] syntax, for
	// example "(PHASE2 OR PHASE3 OR PHASE4)".
	PhaseFilter string

	// StatusFilter is a comma-separated list of overall statuses.
	StatusFilter string

	// MaxResults caps how many trials SearchTrials returns; zero means
	// the 200-record default.
	MaxResults int
}

// params renders the query in the registry's wire form. The registry has
// no first-class date or phase parameters; both travel inside the
// free-text term as bracketed AREA clauses, date clause first.
func (q SearchQuery) params(pageSize int, pageToken string) url.Values {
	v := url.Values{}
	v.Set("format", "json")
	v.Set("pageSize", strconv.Itoa(pageSize))
	v.Set("countTotal", "true")

	if q.Condition != "" {
		v.Set("query.cond", q.Condition)
	}
	if q.Drug != "" {
		v.Set("query.intr", q.Drug)
	}

	term := q.Term
	if !q.DateBefore.IsZero() {
		clause := fmt.Sprintf("AREA[StudyFirstPostDate]RANGE[MIN, %s]",
			dateutil.FormatCutoff(q.DateBefore))
		term = joinTerm(term, clause)
	}
	if q.PhaseFilter != "" {
		term = joinTerm(term, "AREA[Phase]"+q.PhaseFilter)
	}
	if term != "" {
		v.Set("query.term", term)
	}

	if q.StatusFilter != "" {
		v.Set("filter.overallStatus", q.StatusFilter)
	}
	if pageToken != "" {
		v.Set("pageToken", pageToken)
	}
	return v
}

func joinTerm(term, clause string) string {
	if term == "" {
		return clause
	}
	return term + " " + clause
}
