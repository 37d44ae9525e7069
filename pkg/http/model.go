package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Error   string      `json:"error,omitempty" example:"insufficient_data"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"grouped"`
	Message string                 `json:"message,omitempty" example:"grouped is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
