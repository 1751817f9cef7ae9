package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// RegistryRoute picks the response for one registry request from its
// query parameters.
type RegistryRoute func(params url.Values) map[string]any

// RegistryServer fakes the trial-registry search endpoint. The route
// closure keys each response off the request's query parameters, so
// concurrent sub-queries dispatch correctly regardless of arrival order.
type RegistryServer struct {
	t        *testing.T
	mu       sync.Mutex
	captured []url.Values
	route    RegistryRoute
	server   *httptest.Server
}

// NewRegistryServer starts a fake registry endpoint, closed with the
// test.
func NewRegistryServer(t *testing.T, route RegistryRoute) *RegistryServer {
	t.Helper()
	rs := &RegistryServer{t: t, route: route}
	rs.server = httptest.NewServer(http.HandlerFunc(rs.handle))
	t.Cleanup(rs.server.Close)
	return rs
}

// URL returns the endpoint address for client configuration.
func (rs *RegistryServer) URL() string {
	return rs.server.URL
}

// Requests returns a copy of the captured query parameters in arrival
// order.
func (rs *RegistryServer) Requests() []url.Values {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]url.Values, len(rs.captured))
	copy(out, rs.captured)
	return out
}

func (rs *RegistryServer) handle(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	rs.mu.Lock()
	rs.captured = append(rs.captured, params)
	rs.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rs.route(params))
}

// RegistryPage wraps studies in the v2 search envelope.
func RegistryPage(studies []map[string]any, nextToken string, total int) map[string]any {
	page := map[string]any{"studies": studies}
	if nextToken != "" {
		page["nextPageToken"] = nextToken
	}
	if total > 0 {
		page["totalCount"] = total
	}
	return page
}

// StudyParams sets the fields of a fixture study. Zero values fall back
// to an interventional phase-2 recruiting drug trial.
type StudyParams struct {
	NCTID            string
	Sponsor          string
	Status           string
	Phases           []string
	InterventionType string
	InterventionName string
	Conditions       []string
	StartDate        string
	CompletionDate   string
	Enrollment       int
	WhyStopped       string
	HasResults       bool
}

// Study renders one wire study.
func Study(p StudyParams) map[string]any {
	if p.Status == "" {
		p.Status = "RECRUITING"
	}
	if p.Phases == nil {
		p.Phases = []string{"PHASE2"}
	}
	if p.InterventionType == "" {
		p.InterventionType = "DRUG"
	}
	if p.Conditions == nil {
		p.Conditions = []string{"Condition X"}
	}

	status := map[string]any{"overallStatus": p.Status}
	if p.WhyStopped != "" {
		status["whyStopped"] = p.WhyStopped
	}
	if p.StartDate != "" {
		status["startDateStruct"] = map[string]any{"date": p.StartDate}
	}
	if p.CompletionDate != "" {
		status["primaryCompletionDateStruct"] = map[string]any{"date": p.CompletionDate}
	}

	phases := make([]any, 0, len(p.Phases))
	for _, ph := range p.Phases {
		phases = append(phases, ph)
	}
	conditions := make([]any, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		conditions = append(conditions, c)
	}

	return map[string]any{
		"protocolSection": map[string]any{
			"identificationModule": map[string]any{
				"nctId":      p.NCTID,
				"briefTitle": p.NCTID,
			},
			"statusModule": status,
			"designModule": map[string]any{
				"phases":         phases,
				"studyType":      "INTERVENTIONAL",
				"enrollmentInfo": map[string]any{"count": p.Enrollment},
			},
			"sponsorCollaboratorsModule": map[string]any{
				"leadSponsor": map[string]any{"name": p.Sponsor},
			},
			"conditionsModule": map[string]any{"conditions": conditions},
			"armsInterventionsModule": map[string]any{
				"interventions": []any{
					map[string]any{"type": p.InterventionType, "name": p.InterventionName},
				},
			},
		},
		"hasResults": p.HasResults,
	}
}

// StudyPage renders n uniform recruiting studies naming the drug, with
// ids NCT<prefix>0000 onward.
func StudyPage(prefix, drug string, n int) []map[string]any {
	studies := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		studies = append(studies, Study(StudyParams{
			NCTID:            fmt.Sprintf("NCT%s%04d", prefix, i),
			Sponsor:          "Sponsor",
			InterventionName: drug,
		}))
	}
	return studies
}
