package handler

// ErrorResponse represents error response
type ErrorResponse struct {
	Error string `json:"error"`
}
