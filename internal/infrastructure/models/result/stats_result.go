package result

type ReviewerStats struct {
	Email    string
	Pending  int
	Reviewed int
}

type RoomStatsResult struct {
	Active    int
	Done      int
	Deleted   int
	Reviewers []ReviewerStats
}
