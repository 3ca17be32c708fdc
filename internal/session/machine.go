// Package session runs a timed study session over one deck: it tracks the
// current card, applies ratings to the card's schedule, rotates the deck and
// reports the outcome when the clock runs out.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/interval"
	"github.com/conorfennell/studydeck/internal/progress"
	"github.com/conorfennell/studydeck/internal/rotation"
)

var (
	ErrAlreadyStarted  = errors.New("session: already started")
	ErrInvalidDuration = errors.New("session: duration must be positive")
)

// DefaultTransitionDelay is how long the machine waits between a rating and
// showing the next card.
const DefaultTransitionDelay = 300 * time.Millisecond

// Deps are the collaborators of a Machine. Any of them may be nil: without a
// Sink or Identity progress stays local, without a Clock the caller drives
// Tick itself.
type Deps struct {
	Identity Identity
	Sink     progress.Sink
	Reporter Reporter
	Notifier Notifier
	Clock    Clock
	Logger   *zap.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithTransitionDelay sets the pause after a rating. Zero switches cards
// immediately.
func WithTransitionDelay(d time.Duration) Option {
	return func(m *Machine) { m.transitionDelay = max(0, d) }
}

// WithRand sets the source used to shuffle the deck.
func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) { m.rng = rng }
}

// WithNow overrides the wall clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithPersistAttempts sets how many times a progress delta is tried.
func WithPersistAttempts(n int) Option {
	return func(m *Machine) { m.persistAttempts = n }
}

// WithID sets the session id instead of a random UUID.
func WithID(id string) Option {
	return func(m *Machine) { m.id = id }
}

// Machine is the state machine of a single study session. All methods are
// safe for concurrent use; events are applied one at a time.
type Machine struct {
	mu sync.Mutex

	id              string
	identity        Identity
	reporter        Reporter
	notifier        Notifier
	clock           Clock
	logger          *zap.Logger
	forwarder       *progress.Forwarder
	transitionDelay time.Duration
	persistAttempts int
	rng             *rand.Rand
	now             func() time.Time

	state         State
	face          Face
	transitioning bool
	generation    int
	timer         *time.Timer

	ctx           context.Context
	deckID        string
	userID        string
	cards         []domain.StudyCard
	index         int
	timeRemaining int
	stats         domain.SessionStats
	startedAt     time.Time
	summary       *domain.SessionSummary

	pending  conc.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
}

// New creates an idle Machine.
func New(deps Deps, opts ...Option) *Machine {
	m := &Machine{
		identity:        deps.Identity,
		reporter:        deps.Reporter,
		notifier:        deps.Notifier,
		clock:           deps.Clock,
		logger:          deps.Logger,
		transitionDelay: DefaultTransitionDelay,
		persistAttempts: 1,
		now:             time.Now,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.id == "" {
		m.id = uuid.NewString()
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("session_id", m.id))
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Sink != nil {
		m.forwarder = progress.NewForwarder(deps.Sink, m.persistAttempts, m.logger)
	}
	return m
}

// ID returns the session id.
func (m *Machine) ID() string {
	return m.id
}

// Start shuffles cards into the session deck and starts the countdown.
func (m *Machine) Start(ctx context.Context, deckID string, cards []domain.Card, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: %d minutes", ErrInvalidDuration, minutes)
	}

	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}

	studyCards := make([]domain.StudyCard, 0, len(cards))
	for _, c := range cards {
		studyCards = append(studyCards, domain.NewStudyCard(c))
	}

	m.ctx = context.WithoutCancel(ctx)
	m.deckID = deckID
	if m.identity != nil {
		m.userID, _ = m.identity.CurrentUser(ctx)
	}
	m.cards = rotation.Shuffle(studyCards, m.rng)
	m.index = 0
	m.timeRemaining = minutes * 60
	m.stats = domain.SessionStats{}
	m.startedAt = m.now()
	m.face = Front
	m.transitioning = false
	m.state = StateActive
	m.mu.Unlock()

	if len(cards) == 0 {
		m.logger.Warn("session started with an empty deck", zap.String("deck_id", deckID))
	}

	if m.clock != nil {
		if err := m.clock.Start(m.Tick); err != nil {
			m.mu.Lock()
			m.state = StateIdle
			m.mu.Unlock()
			return fmt.Errorf("start session clock: %w", err)
		}
	}

	m.logger.Info("session started",
		zap.String("deck_id", deckID),
		zap.Int("cards", len(cards)),
		zap.Int("minutes", minutes),
	)
	return nil
}

// Flip turns the current card over. It does nothing while the next card is
// being brought in.
func (m *Machine) Flip() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive || m.transitioning || len(m.cards) == 0 {
		return
	}
	if m.face == Front {
		m.face = Back
	} else {
		m.face = Front
	}
}

// Tick advances the countdown by one second. When it reaches zero the
// session expires and its summary is reported.
func (m *Machine) Tick() {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return
	}
	if m.timeRemaining > 0 {
		m.timeRemaining--
	}
	if m.timeRemaining > 0 {
		m.mu.Unlock()
		return
	}

	summary := m.expireLocked()
	ctx := m.ctx
	m.mu.Unlock()

	defer m.finish()

	if m.clock != nil {
		m.clock.Stop()
	}
	m.logger.Info("session expired",
		zap.Int("cards_studied", summary.Stats.CardsStudied),
		zap.Int("correct_answers", summary.Stats.CorrectAnswers),
	)
	if m.reporter == nil {
		return
	}
	if err := m.reporter.Report(ctx, summary); err != nil {
		m.logger.Error("failed to report session summary", zap.Error(err))
		m.notifier.Notify(Notice{
			Kind:    NoticeReportFailed,
			Message: "Could not save the session summary",
			Err:     err,
		})
	}
}

func (m *Machine) expireLocked() domain.SessionSummary {
	m.state = StateExpired
	m.stopTimerLocked()

	summary := domain.SessionSummary{
		SessionID:   m.id,
		DeckID:      m.deckID,
		UserID:      m.userID,
		StartedAt:   m.startedAt,
		Stats:       m.stats,
		CompletedAt: m.now(),
	}
	m.summary = &summary
	return summary
}

// Rate records the user's rating of the current card. It only applies while
// the session is running, the answer side is showing and no transition is in
// progress; otherwise it does nothing and returns false.
func (m *Machine) Rate(ctx context.Context, r domain.Rating) bool {
	if !r.IsValid() {
		m.logger.Warn("ignoring invalid rating", zap.Int("rating", int(r)))
		return false
	}

	m.mu.Lock()
	if m.state != StateActive || m.face != Back || m.transitioning ||
		m.timeRemaining <= 0 || len(m.cards) == 0 {
		m.mu.Unlock()
		return false
	}

	now := m.now()
	current := m.cards[m.index]
	updated := interval.ApplyReview(current, r, now)
	m.cards[m.index] = updated

	var notices []Notice
	userID, signedIn := "", false
	if m.identity != nil {
		userID, signedIn = m.identity.CurrentUser(ctx)
	}
	switch {
	case !signedIn:
		notices = append(notices, Notice{
			Kind:    NoticeUnauthenticated,
			Message: "Sign in to save your progress",
		})
	case m.forwarder != nil:
		delta := progress.BuildDelta(userID, m.deckID, current.ID, r, updated, now)
		m.persist(context.WithoutCancel(ctx), userID, delta)
	}

	m.stats.Record(r)

	next, ok := rotation.NextIndex(len(m.cards), m.index, r)
	if !ok {
		m.logger.Warn("invalid card index, restarting rotation",
			zap.Int("index", m.index),
			zap.Int("deck_size", len(m.cards)),
		)
	}
	m.beginTransitionLocked(next)
	m.mu.Unlock()

	for _, n := range notices {
		m.notifier.Notify(n)
	}
	return true
}

// persist hands the delta to the sink without waiting for it. Must be called
// with m.mu held.
func (m *Machine) persist(ctx context.Context, userID string, delta progress.Delta) {
	deckID := m.deckID
	m.pending.Go(func() {
		err := m.forwarder.Forward(ctx, userID, deckID, delta)
		if err == nil {
			return
		}

		m.mu.Lock()
		aborted := m.state == StateAborted
		m.mu.Unlock()

		m.logger.Error("failed to persist review",
			zap.String("card_id", delta.Review.CardID),
			zap.Error(err),
		)
		if aborted {
			return
		}
		m.notifier.Notify(Notice{
			Kind:    NoticePersistFailed,
			Message: "Progress could not be saved",
			Err:     err,
		})
	})
}

func (m *Machine) beginTransitionLocked(next int) {
	m.transitioning = true
	m.face = Front
	m.generation++

	if m.transitionDelay == 0 {
		m.finishTransitionLocked(next)
		return
	}
	gen := m.generation
	m.timer = time.AfterFunc(m.transitionDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation || m.state != StateActive {
			return
		}
		m.finishTransitionLocked(next)
	})
}

func (m *Machine) finishTransitionLocked(next int) {
	m.transitioning = false
	m.face = Front
	m.index = next
	m.timer = nil
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.generation++
}

// Abort ends a running session without a summary. Persistence already in
// flight may still finish, but its outcome is no longer reported.
func (m *Machine) Abort() bool {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return false
	}
	m.state = StateAborted
	m.transitioning = false
	m.stopTimerLocked()
	m.mu.Unlock()

	if m.clock != nil {
		m.clock.Stop()
	}
	m.logger.Info("session aborted")
	m.finish()
	return true
}

// Done is closed once the session has ended: after the summary of an expired
// session was reported, or when it was aborted.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

func (m *Machine) finish() {
	m.doneOnce.Do(func() { close(m.done) })
}

// Wait blocks until every persistence call started by Rate has returned.
func (m *Machine) Wait() {
	m.pending.Wait()
}

// Snapshot returns the current state for display.
func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		ID:            m.id,
		DeckID:        m.deckID,
		State:         m.state,
		Face:          m.face,
		Transitioning: m.transitioning,
		Index:         m.index,
		DeckSize:      len(m.cards),
		TimeRemaining: m.timeRemaining,
		Stats:         m.stats,
	}
	if len(m.cards) > 0 && m.state == StateActive {
		c := m.cards[m.index]
		v.Current = &c
	}
	if m.summary != nil {
		s := *m.summary
		v.Summary = &s
	}
	return v
}

// Cards returns a copy of the session deck in its current order.
func (m *Machine) Cards() []domain.StudyCard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StudyCard(nil), m.cards...)
}
