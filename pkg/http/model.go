package http

// APIResponse is the envelope used by the JSON endpoints that are not part of
// the dashboard contract (errors, history, charts).
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"email"`
	Message string                 `json:"message,omitempty" example:"email is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// StatusBody is the {"status": "..."} acknowledgement the dashboard expects.
type StatusBody struct {
	Status string `json:"status"`
}

// ErrorBody is the {"error": "..."} shape the dashboard expects.
type ErrorBody struct {
	Error string `json:"error"`
}
