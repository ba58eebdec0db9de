package scoring

import (
	"fmt"
	"sort"
)

// Default allocation parameters.
//
// The 0.7 diversity weight means a worker's second consecutive assignment
// loses 70% of its score and the third hits the 0.9 cap, making three in a
// row statistically rare without ever being impossible. The cap exists so
// a worker is never reduced to a literal zero score, which would make it
// permanently unselectable even as the only qualified candidate.
const (
	DefaultDiversityWeight = 0.7
	DefaultPenaltyCap      = 0.9
)

// Ranked is one row of a penalty-adjusted ranking.
type Ranked struct {
	WorkerID        string
	BaseScore       float64
	AdjustedScore   float64
	AssignmentCount int
}

// DiversityAllocator converts base scores into a deterministic,
// penalty-adjusted ranking.
//
// penalty  = min(assignmentCount * DiversityWeight, PenaltyCap)
// adjusted = base * (1 - penalty)
//
// Ties after adjustment are broken by lowest assignment count, then by
// worker ID ordering, so selection is deterministic for a given batch.
type DiversityAllocator struct {
	// DiversityWeight is the per-assignment penalty factor in [0,1).
	DiversityWeight float64

	// PenaltyCap bounds the total penalty below 1.
	PenaltyCap float64
}

// NewDiversityAllocator creates an allocator, validating the parameters.
//
// Parameters:
//   - diversityWeight: Per-assignment penalty factor, must be in [0,1)
//   - penaltyCap: Maximum penalty, must be in (0,1)
//
// Returns:
//   - *DiversityAllocator: Initialized allocator
//   - error: When a parameter is out of range
func NewDiversityAllocator(diversityWeight, penaltyCap float64) (*DiversityAllocator, error) {
	if diversityWeight < 0 || diversityWeight >= 1 {
		return nil, fmt.Errorf("diversity weight must be in [0,1), got %v", diversityWeight)
	}
	if penaltyCap <= 0 || penaltyCap >= 1 {
		return nil, fmt.Errorf("penalty cap must be in (0,1), got %v", penaltyCap)
	}

	return &DiversityAllocator{DiversityWeight: diversityWeight, PenaltyCap: penaltyCap}, nil
}

// Allocate ranks workers by penalty-adjusted score, best first.
//
// Parameters:
//   - base: Base relevance score per worker ID
//   - counts: Assignments already made to each worker this cycle; missing
//     entries count as zero
//
// Returns:
//   - []Ranked: All scored workers in deterministic descending order
func (a *DiversityAllocator) Allocate(base map[string]float64, counts map[string]int) []Ranked {
	ranked := make([]Ranked, 0, len(base))
	for workerID, score := range base {
		count := counts[workerID]
		penalty := float64(count) * a.DiversityWeight
		if penalty > a.PenaltyCap {
			penalty = a.PenaltyCap
		}

		ranked = append(ranked, Ranked{
			WorkerID:        workerID,
			BaseScore:       score,
			AdjustedScore:   score * (1 - penalty),
			AssignmentCount: count,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].AdjustedScore != ranked[j].AdjustedScore {
			return ranked[i].AdjustedScore > ranked[j].AdjustedScore
		}
		if ranked[i].AssignmentCount != ranked[j].AssignmentCount {
			return ranked[i].AssignmentCount < ranked[j].AssignmentCount
		}

		return ranked[i].WorkerID < ranked[j].WorkerID
	})

	return ranked
}
