package vrchat

// emptyBody is the {} payload sent with accept and hide calls. The
// endpoint path alone selects the action.
type emptyBody struct{}

// OutboundNotification is the body of a send-notification call.
type OutboundNotification struct {
	// Type is the wire string of the notification type under the
	// client's configured revision.
	Type    string `json:"type"`
	Details string `json:"details"`
	Message string `json:"message"`
}

// ErrorResponse is the error envelope the API returns with non-2xx
// responses.
type ErrorResponse struct {
	Error struct {
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"error"`
}
