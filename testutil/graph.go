package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
)

var graphOpPattern = regexp.MustCompile(`query\s+([A-Za-z]+)`)

// GraphHandler answers one GraphQL operation. The returned value becomes
// the response's data field; an error becomes a GraphQL error envelope.
type GraphHandler func(vars map[string]any) (any, error)

// GraphServer fakes the knowledge-graph GraphQL endpoint. Operations
// dispatch by name to registered handlers; unhandled operations answer
// with a GraphQL error envelope so a missing registration fails the test
// loudly instead of burning the retry budget. Safe for concurrent
// requests.
type GraphServer struct {
	t        *testing.T
	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]GraphHandler
	server   *httptest.Server
}

// NewGraphServer starts a fake graph endpoint, closed with the test.
func NewGraphServer(t *testing.T) *GraphServer {
	t.Helper()
	g := &GraphServer{
		t:        t,
		calls:    make(map[string]int),
		handlers: make(map[string]GraphHandler),
	}
	g.server = httptest.NewServer(http.HandlerFunc(g.handle))
	t.Cleanup(g.server.Close)
	return g
}

// URL returns the endpoint address for client configuration.
func (g *GraphServer) URL() string {
	return g.server.URL
}

// On registers the handler for an operation name, replacing any earlier
// registration.
func (g *GraphServer) On(op string, handler GraphHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[op] = handler
}

// CallCount returns how many requests named the operation.
func (g *GraphServer) CallCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *GraphServer) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := ""
	if m := graphOpPattern.FindStringSubmatch(req.Query); m != nil {
		name = m[1]
	}

	g.mu.Lock()
	g.calls[name]++
	handler := g.handlers[name]
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	if handler == nil {
		_ = enc.Encode(map[string]any{"errors": []map[string]any{
			{"message": "no handler registered for operation " + name},
		}})
		return
	}

	data, err := handler(req.Variables)
	if err != nil {
		_ = enc.Encode(map[string]any{"errors": []map[string]any{{"message": err.Error()}}})
		return
	}
	_ = enc.Encode(map[string]any{"data": data})
}

// SearchHits wraps entity hits in the search envelope the resolver reads.
func SearchHits(hits ...map[string]any) map[string]any {
	list := make([]any, 0, len(hits))
	for _, h := range hits {
		list = append(list, h)
	}
	return map[string]any{"search": map[string]any{"hits": list}}
}

// DrugHit is a drug entity row for SearchHits.
func DrugHit(chemblID string) map[string]any {
	return map[string]any{"id": chemblID, "entity": "drug"}
}

// DiseaseHit is a disease entity row for SearchHits.
func DiseaseHit(efoID string) map[string]any {
	return map[string]any{"id": efoID, "entity": "disease"}
}

// GraphDrug returns a drug payload under the given id and name, carrying
// one inhibitor mechanism per target id and a phase-4 indication. Wrap it
// as map[string]any{"drug": ...} in a Drug handler.
func GraphDrug(chemblID, name string, targetIDs ...string) map[string]any {
	mechanisms := make([]any, 0, len(targetIDs))
	for i, id := range targetIDs {
		mechanisms = append(mechanisms, map[string]any{
			"mechanismOfAction": fmt.Sprintf("mechanism %d", i+1),
			"actionType":        "INHIBITOR",
			"targets": []any{
				map[string]any{"id": id, "approvedSymbol": fmt.Sprintf("SYM%d", i+1)},
			},
		})
	}
	return map[string]any{
		"id":                        chemblID,
		"name":                      name,
		"synonyms":                  []any{name},
		"drugType":                  "Small molecule",
		"isApproved":                true,
		"maximumClinicalTrialPhase": 4.0,
		"yearOfFirstApproval":       2015,
		"mechanismsOfAction":        map[string]any{"rows": mechanisms},
		"indications": map[string]any{
			"rows": []any{
				map[string]any{
					"maxPhaseForIndication": 4.0,
					"disease":               map[string]any{"id": "EFO_0000001", "name": "test indication"},
				},
			},
		},
	}
}

// GraphTarget returns a target payload with the given number of disease
// associations embedded. Wrap it as map[string]any{"target": ...} in a
// Target handler.
func GraphTarget(targetID, symbol string, associations int) map[string]any {
	return map[string]any{
		"id":             targetID,
		"approvedSymbol": symbol,
		"approvedName":   symbol + " protein",
		"associatedDiseases": map[string]any{
			"rows": AssociationRows(0, associations),
		},
		"pathways": []any{
			map[string]any{
				"pathwayId":    "R-HSA-0000001",
				"pathway":      "test pathway",
				"topLevelTerm": "Signal transduction",
			},
		},
		"interactions": map[string]any{
			"rows": []any{
				map[string]any{
					"intB":               "ENSG00000000002",
					"intBBiologicalRole": "unspecified role",
					"score":              0.7,
					"sourceDatabase":     "intact",
					"count":              2,
					"targetB":            map[string]any{"id": "ENSG00000000002", "approvedSymbol": "PARTNER1"},
				},
			},
		},
		"knownDrugs": map[string]any{
			"rows": []any{
				map[string]any{
					"drugId": "CHEMBL0000001", "prefName": "testdrug",
					"diseaseId": "EFO_0000001", "label": "test indication",
					"phase": 3.0, "status": "Recruiting",
					"mechanismOfAction": "mechanism 1",
					"ctIds":             []any{"NCT90000001"},
				},
			},
		},
	}
}

// AssociationRows builds sequential disease association rows, for paging
// setups that need distinct ids across pages.
func AssociationRows(start, n int) []any {
	rows := make([]any, 0, n)
	for i := start; i < start+n; i++ {
		rows = append(rows, map[string]any{
			"disease": map[string]any{
				"id":   fmt.Sprintf("EFO_%07d", i),
				"name": fmt.Sprintf("disease %d", i),
				"therapeuticAreas": []any{
					map[string]any{"id": "OTAR_0000000", "name": "test area"},
				},
			},
			"score": 0.8,
			"datatypeScores": []any{
				map[string]any{"id": "genetic_association", "score": 0.6},
			},
		})
	}
	return rows
}
