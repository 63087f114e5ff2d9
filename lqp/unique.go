package lqp

import "github.com/dot5enko/column-query-engine/expression"

// UniqueColumnCombination declares that the listed column expressions
// are jointly unique in the node's output.
type UniqueColumnCombination struct {
	Expressions []expression.Expression
}

// CoveredBy reports whether every expression of the combination occurs
// in the candidate list, i.e. the candidates functionally determine the
// rest of the row.
func (u UniqueColumnCombination) CoveredBy(candidates []expression.Expression) bool {
	for _, e := range u.Expressions {
		found := false
		for _, c := range candidates {
			if expression.Equal(e, c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// filterSurviving keeps the combinations whose expressions all still
// appear in the surviving column list.
func filterSurviving(sets []UniqueColumnCombination, surviving []expression.Expression) []UniqueColumnCombination {
	var out []UniqueColumnCombination
	for _, s := range sets {
		if s.CoveredBy(surviving) {
			out = append(out, s)
		}
	}
	return out
}
