// Package testutil provides fake upstream servers and payload fixtures
// for tests that exercise the retrieval clients end to end.
//
// # Fake Upstreams
//
// GraphServer imitates the knowledge-graph GraphQL endpoint. Handlers
// register per operation name and receive the request variables:
//
//	g := testutil.NewGraphServer(t)
//	g.On("DrugSearch", func(vars map[string]any) (any, error) {
//		return testutil.SearchHits(testutil.DrugHit("CHEMBL25")), nil
//	})
//	g.On("Drug", func(vars map[string]any) (any, error) {
//		return map[string]any{"drug": testutil.GraphDrug("CHEMBL25", "aspirin", "ENSG00000000001")}, nil
//	})
//
// RegistryServer imitates the trial-registry search endpoint. One route
// closure answers every request from its query parameters, which keeps
// concurrent sub-queries deterministic:
//
//	rs := testutil.NewRegistryServer(t, func(p url.Values) map[string]any {
//		if p.Get("pageSize") == "1" {
//			return testutil.RegistryPage(nil, "", 12)
//		}
//		return testutil.RegistryPage(testutil.StudyPage("a", "aspirin", 3), "", 0)
//	})
//
// Both servers start on construction and close with the test.
//
// # Fixtures
//
// The payload builders emit the exact wire shapes the clients parse:
// graph entities (GraphDrug, GraphTarget, AssociationRows, search hits)
// and registry studies (Study, StudyPage, RegistryPage). Fields not set
// on StudyParams fall back to a plain interventional phase-2 recruiting
// drug trial, so tests state only what they assert on.
package testutil
