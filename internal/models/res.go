package models

// ApiResponse is the envelope every endpoint answers with.
type ApiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ListResponse struct {
	Success  bool        `json:"success"`
	Comments interface{} `json:"comments"`
	Total    int         `json:"total"`
}

type CreateResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Comment    PublicReview `json:"comment"`
	OwnerToken string       `json:"owner_token,omitempty"`
}

type DatabaseHealth struct {
	Status     string   `json:"status"`
	ReadyState int      `json:"readyState"`
	Ping       *float64 `json:"ping,omitempty"`
}

type HealthResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Database  DatabaseHealth `json:"database"`
}

func SuccessResponse(message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Message: message,
	}
}

func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
	}
}

func ListOf(comments interface{}, total int) ListResponse {
	return ListResponse{
		Success:  true,
		Comments: comments,
		Total:    total,
	}
}
