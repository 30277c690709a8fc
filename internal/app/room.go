package app

import (
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

type roomState string

const (
	roomWaiting   roomState = "waiting"
	roomPlaying   roomState = "playing"
	roomCompleted roomState = "completed"
)

type roomPlayer struct {
	id      string
	name    string
	score   int
	answers []*domain.AnswerRecord // one slot per question index, nil until resolved
}

// Room is one two-participant battle from pairing to result delivery.
// All mutation happens under mu, so a command, a timer firing, and a
// disconnect can never interleave mid-transition. The answer slot for a
// question index is the single source of truth for the submit-vs-timeout
// race: whichever path writes it first wins, the other becomes a no-op.
type Room struct {
	id      string
	subject string

	mu        sync.Mutex
	state     roomState
	questions []domain.Question
	current   int // -1 before the first round
	players   [2]*roomPlayer
	rules     scoringRules
	results   [2]domain.ParticipantResult
	draw      bool

	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time
}

func newRoom(id, subject string, a, b domain.Participant, questions []domain.Question, rules scoringRules, now time.Time) *Room {
	r := &Room{
		id:        id,
		subject:   subject,
		state:     roomWaiting,
		questions: questions,
		current:   -1,
		rules:     rules,
		createdAt: now,
	}
	r.players[0] = &roomPlayer{id: a.ID, name: a.DisplayName, answers: make([]*domain.AnswerRecord, len(questions))}
	r.players[1] = &roomPlayer{id: b.ID, name: b.DisplayName, answers: make([]*domain.AnswerRecord, len(questions))}
	return r
}

func (r *Room) ID() string      { return r.id }
func (r *Room) Subject() string { return r.subject }

// ParticipantIDs returns both participants in pairing order.
func (r *Room) ParticipantIDs() [2]string {
	return [2]string{r.players[0].id, r.players[1].id}
}

func (r *Room) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.state)
}

func (r *Room) CurrentIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Room) TotalRounds() int { return len(r.questions) }

// begin moves the room from waiting to playing. Returns false if the room
// already started or was forfeited during the pre-start delay.
func (r *Room) begin(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != roomWaiting {
		return false
	}
	r.state = roomPlaying
	r.startedAt = now
	return true
}

// advanceResult describes the outcome of one advance attempt.
type advanceResult struct {
	question  domain.Question
	index     int
	completed bool
}

// advance moves to the question after fromIndex. It is idempotent per
// transition: a stale timer or duplicate trigger whose fromIndex no longer
// matches the room's actual position does nothing.
func (r *Room) advance(fromIndex int, now time.Time) (advanceResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != roomPlaying || r.current != fromIndex {
		return advanceResult{}, false
	}
	next := fromIndex + 1
	if next >= len(r.questions) {
		r.completeLocked(now)
		return advanceResult{completed: true}, true
	}
	r.current = next
	return advanceResult{question: r.questions[next], index: next}, true
}

// answerOutcome describes an accepted submission.
type answerOutcome struct {
	index        int
	correct      bool
	awarded      int
	newScore     int
	opponentID   string
	bothAnswered bool
}

// recordAnswer validates and applies a submission. Stale rooms, mismatched
// question IDs, and duplicate submissions are silently rejected.
func (r *Room) recordAnswer(participantID, questionID string, selectedOption int, elapsedMs int64) (answerOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != roomPlaying || r.current < 0 {
		return answerOutcome{}, false
	}
	idx := r.current
	question := r.questions[idx]
	if question.ID != questionID {
		return answerOutcome{}, false
	}
	player, opponent := r.playerPairLocked(participantID)
	if player == nil || player.answers[idx] != nil {
		return answerOutcome{}, false
	}

	elapsed := r.rules.clampElapsed(time.Duration(elapsedMs) * time.Millisecond)
	correct := selectedOption == question.CorrectOption
	awarded := r.rules.delta(correct, elapsed)
	player.score += awarded
	player.answers[idx] = &domain.AnswerRecord{
		QuestionID:     question.ID,
		SelectedOption: selectedOption,
		ElapsedMs:      elapsed.Milliseconds(),
		Correct:        correct,
	}
	return answerOutcome{
		index:        idx,
		correct:      correct,
		awarded:      awarded,
		newScore:     player.score,
		opponentID:   opponent.id,
		bothAnswered: opponent.answers[idx] != nil,
	}, true
}

// resolveTimeouts writes the no-answer sentinel for every participant who has
// not answered questionIndex. Returns false when the deadline fired for a
// round the room has already left.
func (r *Room) resolveTimeouts(questionIndex int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != roomPlaying || r.current != questionIndex {
		return false
	}
	question := r.questions[questionIndex]
	for _, player := range r.players {
		if player.answers[questionIndex] != nil {
			continue
		}
		player.answers[questionIndex] = &domain.AnswerRecord{
			QuestionID:     question.ID,
			SelectedOption: domain.NoAnswer,
			ElapsedMs:      r.rules.limit.Milliseconds(),
			Correct:        false,
		}
	}
	return true
}

// forfeit ends the room because leaverID's transport dropped. The remaining
// participant wins outright with their score raised to at least floor.
// Returns false if the room already completed (nothing left to forfeit).
func (r *Room) forfeit(leaverID string, floor int, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == roomCompleted {
		return false
	}
	leaver, stayer := r.playerPairLocked(leaverID)
	if leaver == nil {
		return false
	}
	if stayer.score < floor {
		stayer.score = floor
	}
	r.state = roomCompleted
	r.endedAt = now
	r.buildResultsLocked(stayer.id)
	return true
}

// Results returns the computed per-participant outcomes and whether the room
// ended in a draw. Only meaningful once the room is completed.
func (r *Room) Results() ([2]domain.ParticipantResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results, r.draw
}

// ResultFor assembles the asymmetric quiz_end payload for one participant:
// their own full record plus the opponent's score and time only.
func (r *Room) ResultFor(participantID string) (domain.BattleResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != roomCompleted {
		return domain.BattleResult{}, false
	}
	mine, theirs := 0, 1
	if r.players[1].id == participantID {
		mine, theirs = 1, 0
	} else if r.players[0].id != participantID {
		return domain.BattleResult{}, false
	}
	opp := r.results[theirs]
	return domain.BattleResult{
		RoomID: r.id,
		Draw:   r.draw,
		You:    r.results[mine],
		Opponent: domain.OpponentSummary{
			DisplayName:    opp.DisplayName,
			Score:          opp.Score,
			TotalElapsedMs: opp.TotalElapsedMs,
			Won:            opp.Won,
		},
	}, true
}

func (r *Room) completeLocked(now time.Time) {
	r.state = roomCompleted
	r.endedAt = now
	winnerID := ""
	switch {
	case r.players[0].score > r.players[1].score:
		winnerID = r.players[0].id
	case r.players[1].score > r.players[0].score:
		winnerID = r.players[1].id
	}
	r.buildResultsLocked(winnerID)
}

// buildResultsLocked snapshots both participants' final records. An empty
// winnerID marks a draw, awarded to neither.
func (r *Room) buildResultsLocked(winnerID string) {
	r.draw = winnerID == ""
	for i, player := range r.players {
		answers := make([]domain.AnswerRecord, 0, len(player.answers))
		correctCount := 0
		var totalElapsed int64
		for _, rec := range player.answers {
			if rec == nil {
				continue
			}
			answers = append(answers, *rec)
			totalElapsed += rec.ElapsedMs
			if rec.Correct {
				correctCount++
			}
		}
		r.results[i] = domain.ParticipantResult{
			ParticipantID:  player.id,
			DisplayName:    player.name,
			Score:          player.score,
			CorrectCount:   correctCount,
			TotalElapsedMs: totalElapsed,
			Won:            player.id == winnerID,
			Answers:        answers,
		}
	}
}

// playerPairLocked returns the player matching id and their opponent.
func (r *Room) playerPairLocked(id string) (match, other *roomPlayer) {
	switch id {
	case r.players[0].id:
		return r.players[0], r.players[1]
	case r.players[1].id:
		return r.players[1], r.players[0]
	default:
		return nil, nil
	}
}

// expiredBy reports whether the room completed before cutoff and can be purged.
func (r *Room) expiredBy(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == roomCompleted && r.endedAt.Before(cutoff)
}
