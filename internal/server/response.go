package server

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type LanguageResponse struct {
	DetectedLanguage string  `json:"detected_language"`
	LanguageCode     string  `json:"language_code"`
	Confidence       float64 `json:"confidence"`
}

type HealthResponse struct {
	Status       string    `json:"status"`
	Idle         bool      `json:"idle"`
	LastActivity time.Time `json:"last_activity"`
}
