package response

type AssigneeResponse struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

type ReviewResponse struct {
	Id                string             `json:"id"`
	RoomId            string             `json:"roomId"`
	Title             string             `json:"title"`
	Link              string             `json:"link"`
	Status            string             `json:"status"`
	CreatedBy         string             `json:"createdBy"`
	Assignees         []AssigneeResponse `json:"assignees"`
	CreatedAt         string             `json:"createdAt"`
	UpdatedAt         string             `json:"updatedAt"`
	StuckSinceUpdate  bool               `json:"stuckSinceUpdate"`
	StuckSinceCreated bool               `json:"stuckSinceCreated"`
}

type ListReviewsResponse struct {
	RoomId  string            `json:"roomId"`
	Status  string            `json:"status"`
	Reviews []*ReviewResponse `json:"reviews"`
}

type RemoveReviewerResponse struct {
	Review   *ReviewResponse `json:"review"`
	AutoDone bool            `json:"autoDone"`
}
