package opentargets

import "strings"

// saltSuffixes are the salt and form suffixes stripped from drug names
// before search, so "sertraline hydrochloride" and "sertraline" resolve to
// the same compound.
var saltSuffixes = []string{
	" hydrochloride",
	" hydrobromide",
	" sulfate",
	" succinate",
	" chloride",
	" dimesylate",
	" tartrate",
	" citrate",
	" tosylate",
	" mesylate",
	" saccharate",
	" hemihydrate",
	" maleate",
	" phosphate",
	" malate",
	" esylate",
	" anhydrous",
}

// NormalizeDrugName lowercases a drug name and strips one trailing salt or
// form suffix if present.
func NormalizeDrugName(name string) string {
	lowered := strings.ToLower(name)
	for _, suffix := range saltSuffixes {
		if strings.HasSuffix(lowered, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(lowered, suffix))
		}
	}
	return lowered
}
