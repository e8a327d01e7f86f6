// Package queue runs the engine as a RabbitMQ worker: jobs arrive on a
// durable queue and results are published to another.
package queue

// Job is one unit of work read from the jobs queue.
type Job struct {
	ID             string `json:"id"`
	AudioPath      string `json:"audio_path"`
	Task           string `json:"task,omitempty"`
	Language       string `json:"language,omitempty"`
	InitialPrompt  string `json:"initial_prompt,omitempty"`
	VADFilter      bool   `json:"vad_filter,omitempty"`
	WordTimestamps bool   `json:"word_timestamps,omitempty"`
	Output         string `json:"output,omitempty"`
	// DetectLanguage runs language detection instead of transcription.
	DetectLanguage bool `json:"detect_language,omitempty"`
}

// Result is published once per handled job.
type Result struct {
	ID           string  `json:"id"`
	Success      bool    `json:"success"`
	Text         string  `json:"text,omitempty"`
	Format       string  `json:"format,omitempty"`
	LanguageCode string  `json:"language_code,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	// Duration is the wall time spent on the job in seconds.
	Duration float64 `json:"duration"`
}
