package domain

// Event is the outbound envelope delivered to a connected client.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Outbound event types.
const (
	EventMatchmakingStatus = "matchmaking_status"
	EventMatchFound        = "match_found"
	EventQuizStart         = "quiz_start"
	EventQuizQuestion      = "quiz_question"
	EventAnswerResult      = "answer_result"
	EventOpponentAnswered  = "opponent_answered"
	EventQuizEnd           = "quiz_end"
	EventOpponentLeft      = "opponent_left"
	EventError             = "error"
)

// MatchmakingStatus acknowledges a queue join.
type MatchmakingStatus struct {
	Status string `json:"status"`
}

// MatchFound tells both participants a room was created for them.
type MatchFound struct {
	RoomID       string `json:"roomId"`
	OpponentName string `json:"opponentName"`
}

// QuizStart marks the transition from waiting to playing.
type QuizStart struct {
	RoomID      string `json:"roomId"`
	Subject     string `json:"subject"`
	TotalRounds int    `json:"totalRounds"`
}

// QuestionView is a question as delivered to clients: the correct option
// index is deliberately absent.
type QuestionView struct {
	QuestionID  string   `json:"questionId"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Round       int      `json:"round"`
	TotalRounds int      `json:"totalRounds"`
	TimeLimitMs int64    `json:"timeLimitMs"`
}

// AnswerResult goes to the answering participant only.
type AnswerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	NewScore   int    `json:"newScore"`
}

// BattleResult is the quiz_end payload: the recipient's own full record plus
// the opponent's score and time only.
type BattleResult struct {
	RoomID   string            `json:"roomId"`
	Draw     bool              `json:"draw"`
	You      ParticipantResult `json:"myResult"`
	Opponent OpponentSummary   `json:"opponentResult"`
}

// ErrorPayload carries a client-visible error message.
type ErrorPayload struct {
	Message string `json:"message"`
}
