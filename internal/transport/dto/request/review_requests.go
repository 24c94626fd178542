package request

type CreateReviewRequest struct {
	RoomSlug    string   `json:"-"`
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Assignees   []string `json:"assignees"`
	Actor       string   `json:"-"`
	AccessToken string   `json:"-"`
}

type GetReviewRequest struct {
	ReviewId string `json:"-"`
	Actor    string `json:"-"`
}

type ListReviewsRequest struct {
	RoomSlug string `json:"-"`
	Status   string `json:"-"`
	Actor    string `json:"-"`
}

type SetStatusRequest struct {
	ReviewId    string `json:"-"`
	Status      string `json:"status"`
	Actor       string `json:"-"`
	AccessToken string `json:"-"`
}

// ReviewActionRequest - действие над ревью без тела: reviewed, updated, ping
type ReviewActionRequest struct {
	ReviewId    string `json:"-"`
	Actor       string `json:"-"`
	AccessToken string `json:"-"`
}

type UpdateAssigneesRequest struct {
	ReviewId    string   `json:"-"`
	Assignees   []string `json:"assignees"`
	Actor       string   `json:"-"`
	AccessToken string   `json:"-"`
}

type RemoveReviewerRequest struct {
	ReviewId    string `json:"-"`
	Email       string `json:"-"`
	Actor       string `json:"-"`
	AccessToken string `json:"-"`
}
