package handler

// AnalyzeRequest is the analysis submission body. Duration is a pointer so
// an absent field can be told apart from an explicit zero.
type AnalyzeRequest struct {
	UserID      string         `json:"userId"`
	AudioData   string         `json:"audioData"`
	AudioFormat string         `json:"audioFormat"`
	Duration    *float64       `json:"duration"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// HistoryRequest selects how many past analyses to return. The caller is
// identified by the verified token, never by a body field.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ErrorResponse is the uniform error body for every endpoint.
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// Stable wire codes for the error taxonomy.
const (
	CodeUnauthenticated  = "unauthenticated"
	CodeInvalidArgument  = "invalid-argument"
	CodePermissionDenied = "permission-denied"
	CodeNotFound         = "not-found"
	CodeInternal         = "internal"
)

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}
