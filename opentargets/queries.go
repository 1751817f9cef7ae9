package opentargets

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// GraphQL documents sent to the knowledge graph. Field selections mirror
// what the parsers in parse.go consume; trimming a field here without
// updating the wire types silently zeroes it.

const drugSearchQuery = `
query DrugSearch($q: String!) {
    search(queryString: $q, entityNames: ["drug"], page: {index: 0, size: 1}) {
        hits { id entity }
    }
}
`

const diseaseSearchQuery = `
query DiseaseSearch($q: String!) {
    search(queryString: $q, entityNames: ["disease"], page: {index: 0, size: 1}) {
        hits { id entity }
    }
}
`

const drugQuery = `
query Drug($id: String!) {
    drug(chemblId: $id) {
        id name synonyms tradeNames drugType
        isApproved maximumClinicalTrialPhase yearOfFirstApproval

        mechanismsOfAction {
            rows {
                mechanismOfAction actionType
                targets { id approvedSymbol }
            }
        }

        indications {
            rows {
                maxPhaseForIndication
                disease { id name }
            }
        }

        drugWarnings {
            warningType description toxicityClass
            country year efoId
        }

        adverseEvents(page: {index: 0, size: 100}) {
            rows { name meddraCode count logLR }
            criticalValue
        }
    }
}
`

const targetQuery = `
query Target($id: String!) {
    target(ensemblId: $id) {
        id approvedSymbol approvedName

        associatedDiseases(page: {index: 0, size: 500}) {
            rows {
                disease {
                    id name
                    therapeuticAreas { id name }
                }
                score
                datatypeScores { id score }
            }
        }

        pathways { pathwayId pathway topLevelTerm }

        interactions(page: {index: 0, size: 200}) {
            rows {
                intB intBBiologicalRole score
                sourceDatabase count
                targetB { id approvedSymbol }
            }
        }

        knownDrugs(size: 200) {
            rows {
                drugId prefName diseaseId label
                phase status mechanismOfAction ctIds
            }
        }

        expressions {
            tissue {
                id label
                anatomicalSystems
            }
            rna { value unit level }
            protein {
                level reliability
                cellType { name level reliability }
            }
        }

        mousePhenotypes {
            modelPhenotypeId modelPhenotypeLabel
            modelPhenotypeClasses { id label }
            biologicalModels {
                allelicComposition geneticBackground
                id literature
            }
        }

        safetyLiabilities {
            event
            eventId
            effects { direction dosing }
            datasource
            literature
            url
        }

        geneticConstraint {
            constraintType score
            oe oeLower oeUpper upperBin
        }
    }
}
`

const associationsPageQuery = `
query AssociationsPage($id: String!, $index: Int!, $size: Int!) {
    target(ensemblId: $id) {
        associatedDiseases(page: {index: $index, size: $size}) {
            rows {
                disease {
                    id name
                    therapeuticAreas { id name }
                }
                score
                datatypeScores { id score }
            }
        }
    }
}
`

const diseaseDrugsQuery = `
query DiseaseDrugs($id: String!, $size: Int!) {
    disease(efoId: $id) {
        knownDrugs(size: $size) {
            rows {
                drugId prefName diseaseId label
                phase status mechanismOfAction ctIds
            }
        }
    }
}
`

const diseaseSynonymsQuery = `
query DiseaseSynonyms($id: String!) {
    disease(efoId: $id) {
        id
        name
        parents { name }
        synonyms {
            relation
            terms
        }
    }
}
`

// allQueries names every document for validation and tests.
var allQueries = map[string]string{
	"drugSearch":       drugSearchQuery,
	"diseaseSearch":    diseaseSearchQuery,
	"drug":             drugQuery,
	"target":           targetQuery,
	"associationsPage": associationsPageQuery,
	"diseaseDrugs":     diseaseDrugsQuery,
	"diseaseSynonyms":  diseaseSynonymsQuery,
}

// Documents are parsed once at package load so a malformed query is caught
// at startup rather than as an upstream 400 in production.
func init() {
	for name, query := range allQueries {
		if _, err := parser.ParseQuery(&ast.Source{Name: name, Input: query}); err != nil {
			panic(fmt.Sprintf("opentargets: invalid GraphQL document %q: %v", name, err))
		}
	}
}
