package app

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// QuestionSource supplies the question pool for a subject (from
// cache/backing store). Returns domain.ErrSubjectNotFound for unknown subjects.
type QuestionSource interface {
	Questions(ctx context.Context, subject string) ([]domain.Question, error)
}

// RewardNotifier receives one progress notification per participant when a
// room completes. The wallet/ledger behind it is external to this service.
type RewardNotifier interface {
	Notify(ctx context.Context, reward domain.Reward) error
}

// EventSink delivers outbound events to one connected client. Implementations
// must not block: the engine calls Send from timer callbacks and while
// holding room state.
type EventSink interface {
	Send(event domain.Event)
}

// Settings are the tunable battle parameters. The durations and score
// constants are product knobs, not correctness invariants.
type Settings struct {
	QuestionsPerMatch int
	RoundDuration     time.Duration
	TimeoutBuffer     time.Duration // extra margin before the deadline fires, absorbs network latency
	StartDelay        time.Duration // lets both clients finish transition UI
	RoundDelay        time.Duration // inter-round pause
	Retention         time.Duration // completed-room retention window
	BaseScore         int
	ForfeitFloor      int // minimum score guaranteed to the participant who stayed
}

func DefaultSettings() Settings {
	return Settings{
		QuestionsPerMatch: 10,
		RoundDuration:     15 * time.Second,
		TimeoutBuffer:     time.Second,
		StartDelay:        3 * time.Second,
		RoundDelay:        2 * time.Second,
		Retention:         30 * time.Minute,
		BaseScore:         8,
		ForfeitFloor:      40,
	}
}

type client struct {
	id     string
	name   string
	sink   EventSink
	roomID string
}

// BattleService is the engine facade: it owns the matchmaker, the room
// registry, and the round scheduler, and reacts to the three event kinds —
// inbound commands, timer firings, and disconnects. Each reaction resolves
// against per-room state under the room's own lock, so rooms stay independent.
type BattleService struct {
	questions QuestionSource
	rewards   RewardNotifier
	settings  Settings

	matchmaker *Matchmaker
	registry   *RoomRegistry
	sched      *scheduler
	clock      func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu      sync.RWMutex
	clients map[string]*client
}

func NewBattleService(questions QuestionSource, rewards RewardNotifier, settings Settings) *BattleService {
	return &BattleService{
		questions:  questions,
		rewards:    rewards,
		settings:   settings,
		matchmaker: NewMatchmaker(),
		registry:   NewRoomRegistry(settings.Retention),
		sched:      newScheduler(),
		clock:      time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		clients:    make(map[string]*client),
	}
}

// Close stops background timers and the retention sweep.
func (s *BattleService) Close() {
	s.sched.stop()
	s.registry.Close()
}

// Connect registers a participant's event sink. A second Connect for the same
// identifier replaces the sink (reconnect).
func (s *BattleService) Connect(participantID, displayName string, sink EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.clients[participantID]; ok {
		existing.sink = sink
		if displayName != "" {
			existing.name = displayName
		}
		return
	}
	s.clients[participantID] = &client{id: participantID, name: displayName, sink: sink}
}

// Disconnect removes the participant from matchmaking and, if their room is
// still live, forfeits it in favour of the opponent.
func (s *BattleService) Disconnect(participantID string) {
	s.matchmaker.Remove(participantID)

	s.mu.Lock()
	cl, ok := s.clients[participantID]
	if ok {
		delete(s.clients, participantID)
	}
	s.mu.Unlock()
	if !ok || cl.roomID == "" {
		return
	}

	room, err := s.registry.Get(cl.roomID)
	if err != nil {
		log.Printf("disconnect for unknown room %s: %v", cl.roomID, err)
		return
	}
	if !room.forfeit(participantID, s.settings.ForfeitFloor, s.clock()) {
		return
	}
	s.sched.cancel(taskKey{roomID: room.id, questionIndex: room.CurrentIndex(), kind: taskDeadline})

	stayerID := otherParticipant(room, participantID)
	s.clearRoomAssociation(stayerID, participantID)
	s.emit(stayerID, domain.Event{Type: domain.EventOpponentLeft})
	if result, ok := room.ResultFor(stayerID); ok {
		s.emit(stayerID, domain.Event{Type: domain.EventQuizEnd, Payload: result})
	}
	s.notifyRewards(room)
}

// JoinMatchmaking validates the subject, queues the participant, and pairs
// them as soon as a second participant waits for the same subject.
func (s *BattleService) JoinMatchmaking(ctx context.Context, participantID, subject, displayName string) error {
	if subject == "" {
		return domain.ErrInvalidSubject
	}

	s.mu.Lock()
	cl, ok := s.clients[participantID]
	if !ok {
		s.mu.Unlock()
		return errors.New("participant not connected")
	}
	if cl.roomID != "" {
		s.mu.Unlock()
		return domain.ErrAlreadyInRoom
	}
	if displayName != "" {
		cl.name = displayName
	}
	name := cl.name
	s.mu.Unlock()

	// Preload the pool; participants cannot queue for unknown subjects.
	if _, err := s.questions.Questions(ctx, subject); err != nil {
		if errors.Is(err, domain.ErrSubjectNotFound) {
			return domain.ErrInvalidSubject
		}
		return err
	}

	s.matchmaker.Enqueue(subject, participantID, name)
	s.emit(participantID, domain.Event{Type: domain.EventMatchmakingStatus, Payload: domain.MatchmakingStatus{Status: "waiting"}})
	s.tryMatch(ctx, subject)
	return nil
}

// LeaveMatchmaking removes the participant from their queue. Idempotent.
func (s *BattleService) LeaveMatchmaking(participantID string) {
	s.matchmaker.Remove(participantID)
}

// SubmitAnswer applies a participant's submission to their current room.
// Stale submissions (wrong question, duplicate, finished room) are dropped
// without an error: the room may legitimately have moved on.
func (s *BattleService) SubmitAnswer(ctx context.Context, participantID, questionID string, selectedOption int, elapsedMs int64) {
	s.mu.RLock()
	cl, ok := s.clients[participantID]
	roomID := ""
	if ok {
		roomID = cl.roomID
	}
	s.mu.RUnlock()
	if roomID == "" {
		return
	}

	room, err := s.registry.Get(roomID)
	if err != nil {
		log.Printf("submit for unknown room %s: %v", roomID, err)
		return
	}

	outcome, accepted := room.recordAnswer(participantID, questionID, selectedOption, elapsedMs)
	if !accepted {
		return
	}

	s.emit(participantID, domain.Event{Type: domain.EventAnswerResult, Payload: domain.AnswerResult{
		QuestionID: questionID,
		Correct:    outcome.correct,
		Awarded:    outcome.awarded,
		NewScore:   outcome.newScore,
	}})
	// The opponent learns only that an answer landed, never whether it was
	// right or what it scored.
	s.emit(outcome.opponentID, domain.Event{Type: domain.EventOpponentAnswered})

	if outcome.bothAnswered {
		s.sched.cancel(taskKey{roomID: room.id, questionIndex: outcome.index, kind: taskDeadline})
		s.scheduleAdvance(room, outcome.index)
	}
}

// tryMatch pairs the two longest-waiting participants for subject, if any.
// A provider failure at this point returns both to the head of the queue
// rather than creating a half-initialized room.
func (s *BattleService) tryMatch(ctx context.Context, subject string) {
	first, second, ok := s.matchmaker.TakePair(subject)
	if !ok {
		return
	}

	pool, err := s.questions.Questions(ctx, subject)
	if err != nil || len(pool) == 0 {
		log.Printf("pairing failed for subject %s: %v", subject, err)
		s.matchmaker.Requeue(subject, first, second)
		return
	}

	questions := s.drawQuestions(pool)
	rules := scoringRules{base: s.settings.BaseScore, limit: s.settings.RoundDuration}
	room := s.registry.Create(subject,
		domain.Participant{ID: first.id, DisplayName: first.name},
		domain.Participant{ID: second.id, DisplayName: second.name},
		questions, rules)

	s.setRoomAssociation(first.id, room.id)
	s.setRoomAssociation(second.id, room.id)

	s.emit(first.id, domain.Event{Type: domain.EventMatchFound, Payload: domain.MatchFound{RoomID: room.id, OpponentName: second.name}})
	s.emit(second.id, domain.Event{Type: domain.EventMatchFound, Payload: domain.MatchFound{RoomID: room.id, OpponentName: first.name}})

	s.sched.schedule(taskKey{roomID: room.id, questionIndex: -1, kind: taskStart}, s.settings.StartDelay, func() {
		s.startRoom(room)
	})
}

func (s *BattleService) startRoom(room *Room) {
	if !room.begin(s.clock()) {
		return
	}
	start := domain.QuizStart{RoomID: room.id, Subject: room.subject, TotalRounds: room.TotalRounds()}
	for _, id := range room.ParticipantIDs() {
		s.emit(id, domain.Event{Type: domain.EventQuizStart, Payload: start})
	}
	s.advanceRoom(room, -1)
}

// advanceRoom drives the playing -> playing loop and the terminal transition.
// Safe to call from stale timers: the room rejects a fromIndex it has left.
func (s *BattleService) advanceRoom(room *Room, fromIndex int) {
	res, ok := room.advance(fromIndex, s.clock())
	if !ok {
		return
	}
	if res.completed {
		s.finishRoom(room)
		return
	}

	view := domain.QuestionView{
		QuestionID:  res.question.ID,
		Prompt:      res.question.Prompt,
		Options:     res.question.Options,
		Round:       res.index + 1,
		TotalRounds: room.TotalRounds(),
		TimeLimitMs: s.settings.RoundDuration.Milliseconds(),
	}
	for _, id := range room.ParticipantIDs() {
		s.emit(id, domain.Event{Type: domain.EventQuizQuestion, Payload: view})
	}

	deadline := s.settings.RoundDuration + s.settings.TimeoutBuffer
	s.sched.schedule(taskKey{roomID: room.id, questionIndex: res.index, kind: taskDeadline}, deadline, func() {
		s.handleDeadline(room, res.index)
	})
}

// handleDeadline resolves a round whose timer fired. Participants who
// answered in the meantime keep their records; the rest get the no-answer
// sentinel. Advancing afterwards is idempotent, so racing with a just-in-time
// submission is harmless.
func (s *BattleService) handleDeadline(room *Room, questionIndex int) {
	if !room.resolveTimeouts(questionIndex) {
		return
	}
	s.scheduleAdvance(room, questionIndex)
}

func (s *BattleService) scheduleAdvance(room *Room, fromIndex int) {
	s.sched.schedule(taskKey{roomID: room.id, questionIndex: fromIndex, kind: taskAdvance}, s.settings.RoundDelay, func() {
		s.advanceRoom(room, fromIndex)
	})
}

func (s *BattleService) finishRoom(room *Room) {
	ids := room.ParticipantIDs()
	s.clearRoomAssociation(ids[0], ids[1])
	for _, id := range ids {
		if result, ok := room.ResultFor(id); ok {
			s.emit(id, domain.Event{Type: domain.EventQuizEnd, Payload: result})
		}
	}
	s.notifyRewards(room)
}

// notifyRewards emits one wallet/progress notification per participant.
func (s *BattleService) notifyRewards(room *Room) {
	results, _ := room.Results()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, result := range results {
		reward := domain.Reward{
			ParticipantID: result.ParticipantID,
			Subject:       room.subject,
			Score:         result.Score,
			CorrectCount:  result.CorrectCount,
			Win:           result.Won,
		}
		if err := s.rewards.Notify(ctx, reward); err != nil {
			log.Printf("reward notification failed for %s: %v", result.ParticipantID, err)
		}
	}
}

// drawQuestions picks the match's question sequence: an unbiased shuffle of
// the pool truncated to the configured size, or the whole pool if smaller.
func (s *BattleService) drawQuestions(pool []domain.Question) []domain.Question {
	drawn := make([]domain.Question, len(pool))
	copy(drawn, pool)
	s.rndMu.Lock()
	s.rnd.Shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})
	s.rndMu.Unlock()
	if n := s.settings.QuestionsPerMatch; n > 0 && len(drawn) > n {
		drawn = drawn[:n]
	}
	return drawn
}

func (s *BattleService) setRoomAssociation(participantID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cl, ok := s.clients[participantID]; ok {
		cl.roomID = roomID
	}
}

func (s *BattleService) clearRoomAssociation(participantIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range participantIDs {
		if cl, ok := s.clients[id]; ok {
			cl.roomID = ""
		}
	}
}

func (s *BattleService) emit(participantID string, event domain.Event) {
	s.mu.RLock()
	cl, ok := s.clients[participantID]
	var sink EventSink
	if ok {
		sink = cl.sink
	}
	s.mu.RUnlock()
	if sink == nil {
		return
	}
	sink.Send(event)
}

func otherParticipant(room *Room, participantID string) string {
	ids := room.ParticipantIDs()
	if ids[0] == participantID {
		return ids[1]
	}
	return ids[0]
}
