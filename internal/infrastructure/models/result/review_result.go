package result

import "github.com/niklvrr/ReviewRoom/internal/domain"

type SetStatusResult struct {
	Review  *domain.Review
	Changed bool
	// Evicted - id ревью, удаленных из очереди done/deleted
	Evicted []string
}

type MarkReviewedResult struct {
	Review  *domain.Review
	Touched bool
}

type UpdateAssigneesResult struct {
	Review  *domain.Review
	Added   []string
	Removed []string
}

type RemoveReviewerResult struct {
	Review  *domain.Review
	Removed bool
	Empty   bool
}
