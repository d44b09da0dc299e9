package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chipinfinity/checkout-api/internal/pix"
	"go.uber.org/zap"
)

// State is the checkout session lifecycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAwaitingPix
	StateHasPix
	StatePaid
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingPix:
		return "awaiting_pix"
	case StateHasPix:
		return "has_pix"
	case StatePaid:
		return "paid"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Payment is the payable artifact held by the session.
type Payment struct {
	TransactionID string
	Code          string
	ImageDataURI  string
	Expiration    string
}

// Options tune the session. The zero value gets production defaults; tests
// shrink TimeUnit to keep the adaptive schedule fast.
type Options struct {
	// TimeUnit scales the adaptive polling schedule. The schedule is
	// 2 units for attempts 1-5, 3 units for 6-10, then 5 units.
	TimeUnit time.Duration

	MaxAttempts         int // normal recovery window (default 25)
	ExtendedMaxAttempts int // opt-in window after exhaustion (default 40)

	PaidPollInterval time.Duration // independent paid watch (default 5s)
	OrderTTL         time.Duration // hard countdown (default 10min)

	// OnTransition observes state changes; called outside the session lock.
	OnTransition func(from, to State)
}

func (o *Options) setDefaults() {
	if o.TimeUnit <= 0 {
		o.TimeUnit = time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 25
	}
	if o.ExtendedMaxAttempts <= 0 {
		o.ExtendedMaxAttempts = 40
	}
	if o.PaidPollInterval <= 0 {
		o.PaidPollInterval = 5 * time.Second
	}
	if o.OrderTTL <= 0 {
		o.OrderTTL = 10 * time.Minute
	}
}

// Session is the client-side polling state machine. One logical PIX-recovery
// loop runs at a time; the paid watch is an independent concurrent timer.
// Both are cancelled on terminal states and on Close.
type Session struct {
	api   *API
	store Store
	log   *zap.Logger
	opts  Options

	mu          sync.Mutex
	state       State
	payment     *Payment
	txID        string
	attempts    int
	maxAttempts int
	softExpired bool
	generation  int // bumps whenever polling restarts; stale results are dropped
	diagnostics []string

	pixPoll  *Scheduler
	paidPoll *Scheduler
	expiry   *time.Timer
}

func NewSession(api *API, store Store, log *zap.Logger, opts Options) *Session {
	opts.setDefaults()
	return &Session{
		api:      api,
		store:    store,
		log:      log,
		opts:     opts,
		state:    StateIdle,
		pixPoll:  NewScheduler(),
		paidPoll: NewScheduler(),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Payment() *Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payment == nil {
		return nil
	}
	cp := *s.payment
	return &cp
}

// SoftExpired reports whether the recovery window ran out without a code;
// RetryExtended is available in that situation.
func (s *Session) SoftExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.softExpired
}

// Diagnostics returns the rolling poll log (debug surface, never shown to
// the buyer as an error).
func (s *Session) Diagnostics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// Submit validates nothing beyond what the server enforces: it submits the
// checkout and either surfaces the PIX immediately or enters the adaptive
// recovery loop. Total creation failure returns the error and resets to Idle.
func (s *Session) Submit(ctx context.Context, form CheckoutForm) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("checkout already in progress (state %s)", s.state)
	}
	s.setStateLocked(StateSubmitting)
	s.mu.Unlock()

	outcome, err := s.api.Create(ctx, form)
	if err != nil {
		s.mu.Lock()
		s.setStateLocked(StateIdle)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome.ID != "" {
		s.txID = outcome.ID
		s.store.SaveTransactionID(outcome.ID)
	}
	s.startCountdownLocked()

	if outcome.Pix != nil {
		s.applyPaymentLocked(outcome.ID, outcome.Pix)
		return nil
	}

	if outcome.ID == "" {
		s.setStateLocked(StateIdle)
		return fmt.Errorf("transaction created without id")
	}

	s.beginPixPollingLocked(s.opts.MaxAttempts)
	return nil
}

// Resume picks up a previously cached transaction after a restart instead of
// creating a duplicate. Returns false when there is nothing to resume.
func (s *Session) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle || s.payment != nil {
		return false
	}
	lastID := s.store.TransactionID()
	if lastID == "" {
		return false
	}
	s.log.Info("resuming cached transaction", zap.String("transaction_id", lastID))
	s.txID = lastID
	s.startCountdownLocked()
	s.beginPixPollingLocked(s.opts.MaxAttempts)
	return true
}

// RetryExtended re-opens polling with the larger attempt budget after the
// normal window was exhausted.
func (s *Session) RetryExtended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.softExpired || s.txID == "" {
		return false
	}
	s.softExpired = false
	s.beginPixPollingLocked(s.opts.ExtendedMaxAttempts)
	return true
}

// Close tears the session down: all timers cancelled, no further transitions.
func (s *Session) Close() {
	s.pixPoll.Stop()
	s.paidPoll.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	s.generation++
}

// --- internals (callers hold s.mu unless noted) ---

func (s *Session) setStateLocked(next State) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	if cb := s.opts.OnTransition; cb != nil {
		// observer runs outside the lock
		go cb(prev, next)
	}
}

func (s *Session) applyPaymentLocked(txID string, payload *pix.Payload) {
	image := payload.Image
	if image == "" {
		if png, err := RenderQR(payload.Code); err == nil {
			image = PNGDataURI(png)
		} else {
			s.log.Warn("local qr render failed", zap.Error(err))
		}
	}
	s.payment = &Payment{
		TransactionID: txID,
		Code:          payload.Code,
		ImageDataURI:  image,
		Expiration:    payload.Expiration,
	}
	s.setStateLocked(StateHasPix)
	s.startPaidWatchLocked()
}

func (s *Session) beginPixPollingLocked(budget int) {
	s.generation++
	s.attempts = 0
	s.maxAttempts = budget
	s.setStateLocked(StateAwaitingPix)
	s.startPaidWatchLocked()

	gen := s.generation
	// first attempt fires immediately, before any fixed delay elapses
	s.pixPoll.Schedule(0, func() { s.pollPixOnce(gen) })
}

// delayFor is the adaptive schedule: fast first, then medium, then slow.
func (s *Session) delayFor(attempt int) time.Duration {
	unit := s.opts.TimeUnit
	switch {
	case attempt <= 5:
		return 2 * unit
	case attempt <= 10:
		return 3 * unit
	default:
		return 5 * unit
	}
}

// pollPixOnce runs one recovery attempt. Runs without the lock during I/O;
// results from a superseded generation are discarded.
func (s *Session) pollPixOnce(gen int) {
	s.mu.Lock()
	if gen != s.generation || s.state != StateAwaitingPix {
		s.mu.Unlock()
		return
	}
	s.attempts++
	attempt := s.attempts
	txID := s.txID
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	started := time.Now()
	outcome, err := s.api.Status(ctx, txID)
	cancel()
	latency := time.Since(started).Milliseconds()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return // superseded while the request was in flight
	}

	if err != nil {
		s.recordLocked(fmt.Sprintf("poll #%d error (%dms): %v", attempt, latency, err))
	} else {
		codeLen := 0
		if outcome.Pix != nil {
			codeLen = len(outcome.Pix.Code)
		}
		s.recordLocked(fmt.Sprintf("poll #%d (%dms): codeLen=%d status=%s", attempt, latency, codeLen, outcome.Status))

		if outcome.Status == string(pix.StatusPaid) {
			s.markPaidLocked()
			return
		}
		if s.state == StateAwaitingPix && outcome.Pix != nil {
			s.pixPoll.Cancel()
			s.applyPaymentLocked(txID, outcome.Pix)
			return
		}
	}

	if s.state != StateAwaitingPix {
		return
	}
	if attempt >= s.maxAttempts {
		// soft expiry: the buyer may opt into the extended window
		s.softExpired = true
		s.recordLocked(fmt.Sprintf("recovery window exhausted after %d attempts", attempt))
		s.setStateLocked(StateExpired)
		return
	}
	s.pixPoll.Schedule(s.delayFor(attempt), func() { s.pollPixOnce(gen) })
}

// startPaidWatchLocked arms the independent confirmation poll. It keeps its
// own fixed interval and is not gated by PIX recovery.
func (s *Session) startPaidWatchLocked() {
	gen := s.generation
	s.paidPoll.Schedule(s.opts.PaidPollInterval, func() { s.watchPaidOnce(gen) })
}

func (s *Session) watchPaidOnce(gen int) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if s.state != StateHasPix && s.state != StateAwaitingPix && s.state != StateExpired {
		s.mu.Unlock()
		return
	}
	txID := s.txID
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	outcome, err := s.api.Status(ctx, txID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if err == nil && outcome.Status == string(pix.StatusPaid) {
		s.markPaidLocked()
		return
	}
	if err != nil {
		s.recordLocked(fmt.Sprintf("paid watch error: %v", err))
	}
	s.paidPoll.Schedule(s.opts.PaidPollInterval, func() { s.watchPaidOnce(gen) })
}

func (s *Session) markPaidLocked() {
	s.pixPoll.Cancel()
	s.paidPoll.Cancel()
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	s.generation++
	s.softExpired = false
	s.setStateLocked(StatePaid)
}

func (s *Session) startCountdownLocked() {
	if s.expiry != nil {
		s.expiry.Stop()
	}
	s.expiry = time.AfterFunc(s.opts.OrderTTL, s.hardExpire)
}

// hardExpire fires when the order countdown elapses without confirmation:
// payment data is discarded and the session returns to the pre-checkout state.
func (s *Session) hardExpire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePaid || s.state == StateIdle {
		return
	}
	s.pixPoll.Cancel()
	s.paidPoll.Cancel()
	s.generation++
	s.setStateLocked(StateExpired)
	s.payment = nil
	s.txID = ""
	s.attempts = 0
	s.softExpired = false
	s.store.Clear()
	s.setStateLocked(StateIdle)
}

const maxDiagnostics = 100

func (s *Session) recordLocked(entry string) {
	s.diagnostics = append(s.diagnostics, entry)
	if len(s.diagnostics) > maxDiagnostics {
		s.diagnostics = s.diagnostics[len(s.diagnostics)-maxDiagnostics:]
	}
}
