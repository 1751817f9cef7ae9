package ctgov

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStopReason(t *testing.T) {
	tests := []struct {
		name       string
		whyStopped string
		want       StopCategory
	}{
		{"no text is unknown", "", StopUnknown},
		{"futility", "Stopped for futility at interim analysis", StopEfficacy},
		{"no benefit", "DSMB found no benefit over placebo", StopEfficacy},
		{"lack of efficacy", "Terminated due to lack of efficacy", StopEfficacy},
		{"adverse events", "Unacceptable rate of adverse events", StopSafety},
		{"toxicity", "Dose-limiting toxicity in cohort 3", StopSafety},
		{"side effects", "Intolerable side effects", StopSafety},
		{"slow accrual", "Terminated due to slow accrual", StopEnrollment},
		{"recruitment", "Recruitment challenges during the pandemic", StopEnrollment},
		{"business", "Business reprioritization of the pipeline", StopBusiness},
		{"funding", "Loss of funding", StopBusiness},
		{"commercial", "Commercial considerations", StopBusiness},
		{"unmatched text is other", "Principal investigator left the institution", StopOther},
		{"match is case-insensitive", "TERMINATED DUE TO TOXICITY", StopSafety},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStopReason(tt.whyStopped))
		})
	}
}

func TestClassifyStopReason_PriorityOrder(t *testing.T) {
	// Safety beats business when the text names both.
	assert.Equal(t, StopSafety,
		ClassifyStopReason("Halted after adverse events and subsequent funding withdrawal"))

	// Efficacy beats safety.
	assert.Equal(t, StopEfficacy,
		ClassifyStopReason("Interim futility analysis plus emerging toxicity signal"))

	// Enrollment beats business.
	assert.Equal(t, StopEnrollment,
		ClassifyStopReason("Accrual shortfall forced a strategic exit"))
}
