package models

// PushRequest is the payload the database trigger posts to the push relay.
type PushRequest struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

// PushSendResult records the outcome for one device token.
type PushSendResult struct {
	Token string `json:"token"`
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// PushResponse is the relay's reply envelope.
type PushResponse struct {
	OK      bool             `json:"ok"`
	Sent    int              `json:"sent"`
	Results []PushSendResult `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
}
