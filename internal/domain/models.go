package domain

// NoAnswer is the sentinel option index recorded when a participant let the
// round deadline pass without submitting.
const NoAnswer = -1

// Participant identifies one connected user. Identity is independent of the
// transport session; the gateway maps connections to participant IDs.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Question models an MCQ question with exactly one correct option.
// CorrectOption is the index into Options and is never sent to clients.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

// AnswerRecord captures one participant's resolution of one round.
// Written at most once per (participant, question index), immutable after.
type AnswerRecord struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	ElapsedMs      int64  `json:"elapsedMs"`
	Correct        bool   `json:"correct"`
}

// ParticipantResult is the full per-participant outcome of a completed room.
type ParticipantResult struct {
	ParticipantID  string         `json:"participantId"`
	DisplayName    string         `json:"displayName"`
	Score          int            `json:"score"`
	CorrectCount   int            `json:"correctCount"`
	TotalElapsedMs int64          `json:"totalElapsedMs"`
	Won            bool           `json:"won"`
	Answers        []AnswerRecord `json:"answers"`
}

// OpponentSummary is the reduced view of the other participant's result.
// Option selections are withheld; only score and time are shared.
type OpponentSummary struct {
	DisplayName    string `json:"displayName"`
	Score          int    `json:"score"`
	TotalElapsedMs int64  `json:"totalElapsedMs"`
	Won            bool   `json:"won"`
}

// Reward is the progress notification handed to the external wallet/ledger
// once per participant when a room completes.
type Reward struct {
	ParticipantID string `json:"participantId"`
	Subject       string `json:"subject"`
	Score         int    `json:"score"`
	CorrectCount  int    `json:"correctCount"`
	Win           bool   `json:"win"`
}
