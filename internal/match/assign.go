package match

import (
	"sort"

	"github.com/redhat-eets/glpi-helper-scripts/internal/inventory"
)

// Candidate is a machine that satisfied a requirement, scored by how closely
// it fits. Lower weight means a tighter fit and a better pick.
type Candidate struct {
	Identifier string
	Name       string
	Weight     float64
}

// Weight scores how loosely record exceeds req: the sum of the
// capacity-to-minimum ratios for the weighted clauses. Minimums of zero
// contribute nothing, so they express "don't care" rather than dividing by
// zero.
func Weight(record inventory.MachineRecord, req Requirement) float64 {
	var w float64
	if req.CPUs > 0 {
		w += float64(record.Sockets) / float64(req.CPUs)
	}
	if req.Cores > 0 {
		w += float64(record.Cores) / float64(req.Cores)
	}
	if req.RAMMB > 0 {
		w += float64(record.RAMMB) / float64(req.RAMMB)
	}
	return w
}

// Assignment is the recommendation for one requirement set.
type Assignment struct {
	Choices   map[string]Candidate
	Fulfilled bool
}

// Assign picks one machine per requirement key from its candidate list,
// never reusing a machine. Picks are made globally tightest-fit first:
// the smallest weight among all unassigned requirement/machine pairs wins
// each round, with requirement key then identifier as deterministic
// tie-breaks. Fulfilled is false when any requirement ends up without a
// machine.
func Assign(keys []string, candidates map[string][]Candidate) Assignment {
	choices := make(map[string]Candidate, len(keys))
	taken := make(map[string]bool)
	remaining := make(map[string]bool, len(keys))
	for _, key := range keys {
		remaining[key] = true
	}

	for len(remaining) > 0 {
		bestKey := ""
		var best Candidate
		found := false
		for key := range remaining {
			for _, c := range sortedCandidates(candidates[key]) {
				if taken[c.Identifier] {
					continue
				}
				if !found || c.Weight < best.Weight ||
					(c.Weight == best.Weight && key < bestKey) {
					bestKey, best, found = key, c, true
				}
				break // candidates are sorted, the first free one is the best for key
			}
		}
		if !found {
			break
		}
		choices[bestKey] = best
		taken[best.Identifier] = true
		delete(remaining, bestKey)
	}

	return Assignment{Choices: choices, Fulfilled: len(choices) == len(keys)}
}

func sortedCandidates(list []Candidate) []Candidate {
	sorted := make([]Candidate, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight < sorted[j].Weight
		}
		return sorted[i].Identifier < sorted[j].Identifier
	})
	return sorted
}
