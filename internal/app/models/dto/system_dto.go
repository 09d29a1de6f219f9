package dto

// SendEmailRequest is the payload for the raw email relay endpoint
type SendEmailRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html" binding:"required"`
}

// WebhookEvent is an external change event pushed by an integration. It is
// re-broadcast on the change feed as-is. Any table name is accepted; the hub
// simply has no subscribers for tables it does not serve.
type WebhookEvent struct {
	Type   string      `json:"type" binding:"required,oneof=INSERT UPDATE DELETE"`
	Table  string      `json:"table" binding:"required"`
	Record interface{} `json:"record" binding:"required"`
}
