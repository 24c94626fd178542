package response

type NotifyResponse struct {
	Success bool `json:"success"`
}

type MemberResponse struct {
	Name        string `json:"name"`
	UserId      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	Type        string `json:"type,omitempty"`
	Role        string `json:"role,omitempty"`
}

type MembersResponse struct {
	SpaceId     string           `json:"spaceId"`
	Memberships []MemberResponse `json:"memberships"`
}
