package opentargets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDrugName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Semaglutide", "semaglutide"},
		{"strips hydrochloride", "Sertraline Hydrochloride", "sertraline"},
		{"strips dimesylate", "Lisdexamfetamine Dimesylate", "lisdexamfetamine"},
		{"strips succinate", "metoprolol succinate", "metoprolol"},
		{"strips tosylate", "Edoxaban Tosylate", "edoxaban"},
		{"strips anhydrous", "caffeine anhydrous", "caffeine"},
		{"strips one suffix only", "zinc sulfate anhydrous", "zinc sulfate"},
		{"no suffix untouched", "aspirin", "aspirin"},
		{"suffix mid-name untouched", "sulfate buffer solution", "sulfate buffer solution"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDrugName(tt.in))
		})
	}
}
