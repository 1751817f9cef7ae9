package ctgov

import "strings"

// StopCategory buckets why a trial stopped early.
type StopCategory string

const (
	StopEfficacy   StopCategory = "efficacy"
	StopSafety     StopCategory = "safety"
	StopEnrollment StopCategory = "enrollment"
	StopBusiness   StopCategory = "business"

	// StopOther is reason text that matches no keyword.
	StopOther StopCategory = "other"
	// StopUnknown is a record with no reason text at all.
	StopUnknown StopCategory = "unknown"
)

// stopKeywords pairs reason substrings with categories. Order is the
// classification priority: the first matching entry wins, so a reason
// naming both a safety and a business problem classifies as safety.
var stopKeywords = []struct {
	keyword  string
	category StopCategory
}{
	{"efficacy", StopEfficacy},
	{"futility", StopEfficacy},
	{"lack of efficacy", StopEfficacy},
	{"no benefit", StopEfficacy},
	{"safety", StopSafety},
	{"adverse", StopSafety},
	{"toxicity", StopSafety},
	{"side effect", StopSafety},
	{"enrollment", StopEnrollment},
	{"accrual", StopEnrollment},
	{"recruitment", StopEnrollment},
	{"business", StopBusiness},
	{"strategic", StopBusiness},
	{"funding", StopBusiness},
	{"commercial", StopBusiness},
}

// ClassifyStopReason maps a trial's free-text stop reason onto a
// StopCategory by case-insensitive substring match against the keyword
// table.
func ClassifyStopReason(whyStopped string) StopCategory {
	if whyStopped == "" {
		return StopUnknown
	}
	lower := strings.ToLower(whyStopped)
	for _, entry := range stopKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.category
		}
	}
	return StopOther
}
