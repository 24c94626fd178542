package request

type NotifyRequest struct {
	WebhookURL string `json:"webhookUrl"`
	Text       string `json:"text"`
	ThreadKey  string `json:"threadKey,omitempty"`
}

type MembersRequest struct {
	WebhookURL  string `json:"webhookUrl"`
	AccessToken string `json:"accessToken"`
}
