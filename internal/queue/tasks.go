package queue

import "encoding/json"

const (
	TypeWebhookDeliver = "webhook:deliver"
	TypeClipTranscribe = "response:transcribe"
)

type WebhookDeliverPayload struct {
	WebhookID string          `json:"webhook_id"`
	URL       string          `json:"url"`
	Secret    string          `json:"secret"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
}

// ClipTranscribePayload describes a recorded answer clip awaiting server-side
// transcription. Once transcribed, the text is saved as the question's
// response.
type ClipTranscribePayload struct {
	QuestionID  string `json:"question_id"`
	InterviewID string `json:"interview_id"`
	ClipPath    string `json:"clip_path"`
}
