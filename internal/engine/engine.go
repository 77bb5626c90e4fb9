// internal/engine/engine.go
package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ScoreFunc is the external scoring collaborator: pure and deterministic,
// it rates a player's run against the current tile layout.
type ScoreFunc func(start StartPosition, elapsedMs int, layout string) (points, pathLength int)

// BonusFunc computes the winner's time-based bonus from the elapsed time and
// the match duration budget, both in milliseconds.
type BonusFunc func(elapsedMs, budgetMs int) int

// Hooks are the persistence collaborators. They are invoked fire-and-forget
// after the authoritative state mutation; failures are logged and never roll
// back a transition.
type Hooks struct {
	// CreateSession is called once per room lifetime, on the first match
	// start. The returned id becomes the room's persistence handle.
	CreateSession func(ctx context.Context, snap RoomSnapshot) (uuid.UUID, error)

	// RecordMatch is called on every match completion with the final ranking.
	RecordMatch func(ctx context.Context, sessionID uuid.UUID, snap RoomSnapshot, ranking []RankEntry) error
}

// Config carries the engine's tunables.
type Config struct {
	// RequiredClientVersion rejects joins from other client builds when set.
	RequiredClientVersion string

	// MaxRooms caps each policy's registry. <=0 uses the registry default.
	MaxRooms int
}

// Engine is the room state machine shared by all three matchmaking policies.
// Every inbound event, client message or timer expiry alike, is serialized
// through Dispatch so no two events ever mutate a room concurrently. Handling
// an event never blocks on I/O; transport and persistence effects are
// returned as notices or spawned after the mutation completes.
type Engine struct {
	mu sync.Mutex

	log   *logrus.Logger
	clock Clock
	score ScoreFunc
	bonus BonusFunc
	hooks Hooks

	policies   map[Mode]Policy
	registries map[Mode]*Registry

	requiredVersion string
	rng             *rand.Rand

	// notify receives notices produced by timer-origin events, which have no
	// caller to hand them back to. Set by the transport before serving.
	notify func([]Notice)
}

// New assembles an engine with the three standard policies.
func New(cfg Config, clock Clock, log *logrus.Logger, score ScoreFunc, bonus BonusFunc, hooks Hooks) *Engine {
	if clock == nil {
		clock = NewClock()
	}
	if log == nil {
		log = logrus.New()
	}
	e := &Engine{
		log:             log,
		clock:           clock,
		score:           score,
		bonus:           bonus,
		hooks:           hooks,
		policies:        make(map[Mode]Policy),
		registries:      make(map[Mode]*Registry),
		requiredVersion: cfg.RequiredClientVersion,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, p := range []Policy{RandomPolicy{}, CustomPolicy{}, RoyalePolicy{}} {
		e.policies[p.Mode()] = p
		e.registries[p.Mode()] = NewRegistry(p.Mode(), cfg.MaxRooms)
	}
	return e
}

// SetNotify installs the sink for notices produced by timer expiries.
func (e *Engine) SetNotify(fn func([]Notice)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notify = fn
}

// Registry exposes one policy's registry for tests and diagnostics.
func (e *Engine) Registry(mode Mode) *Registry {
	return e.registries[mode]
}

// Snapshots returns sanitized views of every non-free room across all modes.
func (e *Engine) Snapshots() []RoomSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	var snaps []RoomSnapshot
	for _, mode := range []Mode{ModeRandom, ModeCustom, ModeRoyale} {
		for _, room := range e.registries[mode].Rooms() {
			if room.State != StateFree {
				snaps = append(snaps, room.Snapshot())
			}
		}
	}
	return snaps
}

// Dispatch consumes one inbound event and returns the outbound notices the
// caller must deliver. This is the single entry point for every event source.
func (e *Engine) Dispatch(ev Event) []Notice {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case EventJoin:
		return e.handleJoin(ev)
	case EventValidate:
		return e.handleValidate(ev)
	case EventHeartbeat:
		return e.handleHeartbeat(ev)
	case EventReady:
		return e.handleReady(ev)
	case EventPositioned:
		return e.handlePositioned(ev)
	case EventEndAnimation:
		return e.handleEndAnimation(ev)
	case EventQuit:
		return e.handleQuit(ev)
	case EventScheduledStart:
		return e.handleScheduledStart(ev)
	default:
		e.log.Warnf("engine: dropping unknown event type %q", ev.Type)
		return nil
	}
}

// dispatchAsync feeds a timer-origin event through Dispatch and pushes the
// resulting notices to the notify sink.
func (e *Engine) dispatchAsync(ev Event) {
	notices := e.Dispatch(ev)
	e.mu.Lock()
	notify := e.notify
	e.mu.Unlock()
	if notify != nil && len(notices) > 0 {
		notify(notices)
	}
}

func (e *Engine) room(mode Mode, id int) *Room {
	reg, ok := e.registries[mode]
	if !ok {
		return nil
	}
	return reg.Get(id)
}

// --- join -------------------------------------------------------------

func (e *Engine) handleJoin(ev Event) []Notice {
	if e.requiredVersion != "" && ev.ClientVersion != e.requiredVersion {
		e.log.Infof("engine: rejecting join from %s: %v (got %q, want %q)",
			ev.UserID, ErrVersionMismatch, ev.ClientVersion, e.requiredVersion)
		return []Notice{joinFailure(ev.CorrelationID)}
	}
	policy, ok := e.policies[ev.Mode]
	if !ok {
		e.log.Warnf("engine: join for unknown mode %q", ev.Mode)
		return []Notice{joinFailure(ev.CorrelationID)}
	}

	reg := e.registries[ev.Mode]
	req := JoinRequest{
		UserID:     ev.UserID,
		Nickname:   ev.Nickname,
		Code:       ev.Code,
		MaxPlayers: ev.MaxPlayers,
		Wall:       ev.Wall,
		StartAt:    ev.StartAt,
	}
	room, seat, err := policy.Assign(reg, req)
	if err != nil {
		e.log.Infof("engine: %s join failed for %s: %v", ev.Mode, ev.UserID, err)
		return []Notice{joinFailure(ev.CorrelationID)}
	}

	s := room.Players[seat]
	s.Occupied = true
	s.UserID = ev.UserID
	s.Nickname = ev.Nickname
	s.Validated = ev.Nickname != ""
	if seat == 0 && room.WallMode {
		// The wall host displays, never competes, and is always ready.
		s.Wall = true
		s.Validated = true
		s.Ready = true
	} else if seat == 0 {
		s.Organizer = true
	}
	e.assignRoyaleOrganizer(room)
	e.armHeartbeat(room, seat, policy.HeartbeatTTL())

	if room.Mode == ModeRoyale && seat == 0 && !ev.StartAt.IsZero() {
		e.armScheduledStart(room, ev.StartAt)
	}

	e.log.Infof("engine: %s joined %s room %d seat %d (code %s)",
		ev.UserID, room.Mode, room.ID, seat, room.Code)

	snap := room.Snapshot()
	return []Notice{
		directReply(ev.CorrelationID, true, room.Code, room.ID, seat, &snap),
		broadcast(NoticePlayerAdded, room, seat),
	}
}

// assignRoyaleOrganizer promotes the first human validated occupant of a wall
// room when no organizer exists yet.
func (e *Engine) assignRoyaleOrganizer(room *Room) {
	if room.Mode != ModeRoyale || !room.WallMode || room.Organizer() >= 0 {
		return
	}
	for _, s := range room.Players {
		if s.Occupied && s.Validated && !s.Wall {
			s.Organizer = true
			return
		}
	}
}

// --- validate ---------------------------------------------------------

func (e *Engine) handleValidate(ev Event) []Notice {
	room := e.room(ev.Mode, ev.RoomID)
	if room == nil {
		return nil
	}
	s := room.Slot(ev.PlayerID)
	if s == nil || !s.Occupied {
		return nil
	}
	if room.State != StateMatchmaking || s.Validated {
		// A validate that cannot be honored is an implicit quit.
		return e.quitSlot(room, ev.PlayerID, uuid.Nil)
	}
	s.Nickname = ev.Nickname
	s.Validated = true
	e.assignRoyaleOrganizer(room)
	return []Notice{broadcast(NoticePlayerAdded, room, ev.PlayerID)}
}

// --- heartbeat --------------------------------------------------------

func (e *Engine) handleHeartbeat(ev Event) []Notice {
	room := e.room(ev.Mode, ev.RoomID)
	if room == nil {
		return nil
	}
	s := room.Slot(ev.PlayerID)
	if s == nil || !s.Occupied {
		// Heartbeat against a cleared seat: the quit already happened.
		return nil
	}
	e.armHeartbeat(room, ev.PlayerID, e.policies[room.Mode].HeartbeatTTL())
	return nil
}

// armHeartbeat installs the slot's liveness timer, cancelling the previous
// one first so a stale expiry can never fire against a reused seat. The
// expiry funnels into the quit path carrying the seat's identity at arm time.
func (e *Engine) armHeartbeat(room *Room, seat int, ttl time.Duration) {
	s := room.Players[seat]
	if s.hbTimer != nil {
		s.hbTimer.Stop()
	}
	mode, roomID, owner := room.Mode, room.ID, s.UserID
	s.hbTimer = e.clock.AfterFunc(ttl, func() {
		e.dispatchAsync(Event{
			Type:     EventQuit,
			Mode:     mode,
			RoomID:   roomID,
			PlayerID: seat,
			UserID:   owner,
		})
	})
}

// --- ready ------------------------------------------------------------

func (e *Engine) handleReady(ev Event) []Notice {
	room := e.room(ev.Mode, ev.RoomID)
	if room == nil {
		return nil
	}
	s := room.Slot(ev.PlayerID)
	if s == nil || !s.Occupied || !s.Validated {
		return nil
	}
	if room.State != StateMatchmaking && room.State != StateAftermatch {
		return nil
	}
	s.Ready = true
	if !readyBarrier(room) {
		return nil
	}
	return e.tryStartMatch(room)
}

// tryStartMatch runs the quorum check and either starts the next match or
// tears the room down.
func (e *Engine) tryStartMatch(room *Room) []Notice {
	if room.ValidatedCount() < 2 {
		e.log.Infof("engine: %s room %d quorum shortfall, tearing down", room.Mode, room.ID)
		return e.teardown(room)
	}
	return e.startMatch(room)
}

func (e *Engine) startMatch(room *Room) []Notice {
	// Unvalidated occupants never made it in; their seats are freed before
	// the match locks the roster.
	for _, s := range room.Players {
		if s.Occupied && !s.Validated {
			if s.hbTimer != nil {
				s.hbTimer.Stop()
			}
			s.clear()
		}
	}
	if room.scheduleTimer != nil {
		room.scheduleTimer.Stop()
		room.scheduleTimer = nil
	}
	room.ScheduledStartAt = time.Time{}

	firstMatch := room.MatchCount == 0 && room.SessionID == uuid.Nil
	room.resetMatchState()
	room.TileLayout = e.generateLayout()
	room.State = StatePlaying

	e.log.Infof("engine: %s room %d match %d started (%d players)",
		room.Mode, room.ID, room.MatchCount+1, room.ValidatedCount())

	if firstMatch && e.hooks.CreateSession != nil {
		snap := room.Snapshot()
		mode, roomID := room.Mode, room.ID
		go func() {
			id, err := e.hooks.CreateSession(context.Background(), snap)
			if err != nil {
				e.log.Warnf("engine: create session for %s room %d failed: %v", mode, roomID, err)
				return
			}
			e.setSessionID(mode, roomID, id)
		}()
	}

	return []Notice{broadcast(NoticeStartMatch, room, -1)}
}

// setSessionID records the persistence handle delivered by the session hook.
// It re-enters the event lock because the hook completes asynchronously.
func (e *Engine) setSessionID(mode Mode, roomID int, id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	room := e.room(mode, roomID)
	if room == nil || room.State == StateFree || room.SessionID != uuid.Nil {
		return
	}
	room.SessionID = id
}

// generateLayout draws a fresh 25-symbol layout from {R, Y, G}.
func (e *Engine) generateLayout() string {
	const colors = "RYG"
	buf := make([]byte, TileCount)
	for i := range buf {
		buf[i] = colors[e.rng.Intn(len(colors))]
	}
	return string(buf)
}

// --- positioned -------------------------------------------------------

func (e *Engine) handlePositioned(ev Event) []Notice {
	room := e.room(ev.Mode, ev.RoomID)
	if room == nil || room.State != StatePlaying || room.animationStarted {
		return nil
	}
	s := room.Slot(ev.PlayerID)
	if s == nil || !s.Occupied || !s.Validated || s.Wall || s.Match.Positioned {
		return nil
	}
	s.Match.Positioned = true
	s.Match.Start = StartPosition{Side: ev.Side, Distance: ev.Distance}
	s.Match.Time = ev.Elapsed
	if e.score != nil {
		s.Match.Points, s.Match.PathLength = e.score(s.Match.Start, ev.Elapsed, room.TileLayout)
	}
	if !positionedBarrier(room) {
		return nil
	}
	return e.finishPositioning(room)
}

func (e *Engine) finishPositioning(room *Room) []Notice {
	ranking := resolveWinner(room, e.bonus)
	room.animationStarted = true
	n := broadcast(NoticeStartAnimation, room, -1)
	n.Ranking = ranking
	return []Notice{n}
}

// --- end animation ----------------------------------------------------

func (e *Engine) handleEndAnimation(ev Event) []Notice {
	room := e.room(ev.Mode, ev.RoomID)
	if room == nil || room.State != StatePlaying || !room.animationStarted {
		return nil
	}
	s := room.Slot(ev.PlayerID)
	if s == nil || !s.Occupied || !s.Validated || s.Wall {
		return nil
	}
	s.Match.AnimationEnded = true
	if !animationBarrier(room) {
		return nil
	}
	return e.finishMatch(room)
}

func (e *Engine) finishMatch(room *Room) []Notice {
	room.MatchCount++
	room.State = StateAftermatch
	ranking := buildRanking(room)

	e.log.Infof("engine: %s room %d finished match %d", room.Mode, room.ID, room.MatchCount)

	if e.hooks.RecordMatch != nil {
		snap := room.Snapshot()
		sessionID := room.SessionID
		mode, roomID := room.Mode, room.ID
		rankCopy := make([]RankEntry, len(ranking))
		copy(rankCopy, ranking)
		go func() {
			if err := e.hooks.RecordMatch(context.Background(), sessionID, snap, rankCopy); err != nil {
				e.log.Warnf("engine: record match for %s room %d failed: %v", mode, roomID, err)
			}
		}()
	}

	// Clear ready flags so the next round waits on everyone again.
	for _, s := range room.Players {
		if s.Occupied {
			s.Ready = s.Wall
		}
	}

	n := broadcast(NoticeEndMatch, room, -1)
	n.Ranking = ranking
	return []Notice{n}
}

// --- quit / expiry ----------------------------------------------------

func (e *Engine) handleQuit(ev Event) []Notice {
	room := e.room(ev.Mode, ev.RoomID)
	if room == nil {
		return nil
	}
	return e.quitSlot(room, ev.PlayerID, ev.UserID)
}

// quitSlot clears a seat and runs the disconnect cascade. owner, when
// non-nil, guards against a stale expiry firing after the seat was reused.
func (e *Engine) quitSlot(room *Room, seat int, owner uuid.UUID) []Notice {
	s := room.Slot(seat)
	if s == nil || !s.Occupied {
		return nil // already quit, idempotent
	}
	if owner != uuid.Nil && s.UserID != owner {
		return nil // seat was reassigned since the timer was armed
	}
	if s.hbTimer != nil {
		s.hbTimer.Stop()
	}
	wasOrganizer := s.Organizer
	wasWall := s.Wall
	user := s.UserID
	s.clear()

	e.log.Infof("engine: %s left %s room %d seat %d", user, room.Mode, room.ID, seat)

	if e.shouldTeardown(room, wasOrganizer, wasWall) {
		return e.teardown(room)
	}

	notices := []Notice{broadcast(NoticePlayerRemoved, room, seat)}

	// Removing the seat may have been the only thing blocking a barrier.
	// At most one can fire; each performs the same mutation as its
	// explicit-event counterpart.
	switch {
	case readyBarrier(room):
		notices = append(notices, e.tryStartMatch(room)...)
	case positionedBarrier(room):
		notices = append(notices, e.finishPositioning(room)...)
	case animationBarrier(room):
		notices = append(notices, e.finishMatch(room)...)
	}
	return notices
}

func (e *Engine) shouldTeardown(room *Room, wasOrganizer, wasWall bool) bool {
	if room.OccupiedCount() == 0 {
		return true
	}
	if room.State != StateMatchmaking && room.ValidatedCount() <= 1 {
		return true
	}
	if wasOrganizer && room.State == StateMatchmaking && room.ScheduledStartAt.IsZero() {
		return true
	}
	if room.WallMode && wasWall {
		return true
	}
	return false
}

// teardown resets the room to free and emits the single room-closed notice to
// whoever is still seated.
func (e *Engine) teardown(room *Room) []Notice {
	recipients := room.UserIDs()
	roomID, code, mode := room.ID, room.Code, room.Mode
	e.registries[room.Mode].Release(room)
	e.log.Infof("engine: %s room %d closed", mode, roomID)
	if len(recipients) == 0 {
		return nil
	}
	return []Notice{{
		Type:       NoticeGameQuit,
		Recipients: recipients,
		Success:    true,
		Code:       code,
		RoomID:     roomID,
		PlayerID:   -1,
	}}
}

// --- scheduled start --------------------------------------------------

// armScheduledStart registers the royale forced-start timer.
func (e *Engine) armScheduledStart(room *Room, at time.Time) {
	if room.scheduleTimer != nil {
		room.scheduleTimer.Stop()
	}
	room.ScheduledStartAt = at
	d := at.Sub(e.clock.Now())
	if d < 0 {
		d = 0
	}
	mode, roomID := room.Mode, room.ID
	room.scheduleTimer = e.clock.AfterFunc(d, func() {
		e.dispatchAsync(Event{Type: EventScheduledStart, Mode: mode, RoomID: roomID, StartAt: at})
	})
}

func (e *Engine) handleScheduledStart(ev Event) []Notice {
	room := e.room(ev.Mode, ev.RoomID)
	if room == nil || room.State != StateMatchmaking || room.Mode != ModeRoyale {
		return nil
	}
	// A fire whose scheduled time does not match the room's is a stale timer
	// surviving a room reuse; the reused room runs on its own schedule.
	if room.ScheduledStartAt.IsZero() || !room.ScheduledStartAt.Equal(ev.StartAt) {
		return nil
	}
	room.scheduleTimer = nil
	room.ScheduledStartAt = time.Time{}
	if room.ValidatedCount() < 2 {
		e.log.Infof("engine: royale room %d scheduled start with insufficient players", room.ID)
		return e.teardown(room)
	}
	return e.startMatch(room)
}
