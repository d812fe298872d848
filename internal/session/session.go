package session

import (
	"context"
	"errors"
	"time"

	"github.com/gamesy/storefront/internal/engine"
	"github.com/gamesy/storefront/internal/order"
	"github.com/gamesy/storefront/internal/snapshot"
	"github.com/gamesy/storefront/internal/storage"
	"go.uber.org/zap"
)

type Msg interface{ isSessionMsg() }

type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// loginElapsed is sent by the login timer; stale generations are dropped.
type loginElapsed struct {
	Gen      int
	Username string
}

func (loginElapsed) isSessionMsg() {}

type idleElapsed struct{ Gen int }

func (idleElapsed) isSessionMsg() {}

// Snapshot is what clients receive. Err is set only on the snapshot sent back
// to the client whose command failed; OrderLink only when an order was just
// handed off and the browser should open it.
type Snapshot struct {
	Version   int
	State     engine.State
	Err       error
	OrderLink string
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Config struct {
	Device     string
	Store      storage.Store
	Dispatcher *order.Dispatcher
	LoginDelay time.Duration
	// IdleTimeout stops the session once it has had no clients and no pending
	// login for this long. Zero keeps it alive until shutdown.
	IdleTimeout time.Duration
	// OnIdle is called from the session goroutine after an idle stop.
	OnIdle func(*Session)
	Logger *zap.Logger
}

type Session struct {
	inbox      chan Msg
	state      engine.State
	version    int
	clients    map[string]chan Snapshot
	key        string
	store      storage.Store
	dispatcher *order.Dispatcher
	loginDelay time.Duration
	loginGen   int
	loginTimer *time.Timer
	idleAfter  time.Duration
	idleGen    int
	idleTimer  *time.Timer
	onIdle     func(*Session)
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(parent context.Context, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)

	if cfg.Store == nil {
		cfg.Store = storage.NewMemory()
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = order.NewDispatcher("", "", cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Session{
		inbox:      make(chan Msg, 64),
		version:    0,
		clients:    make(map[string]chan Snapshot),
		key:        storage.DeviceKey(cfg.Device),
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		loginDelay: cfg.LoginDelay,
		idleAfter:  cfg.IdleTimeout,
		onIdle:     cfg.OnIdle,
		log:        cfg.Logger.With(zap.String("device", cfg.Device)),
		ctx:        ctx,
		cancel:     cancel,
	}

	go func() {
		// Messages queue in the inbox while the store is read.
		s.state = s.restore()
		s.loop()
	}()
	return s
}

// restore never fails: missing or corrupt snapshots fall back to a fresh session.
func (s *Session) restore() engine.State {
	data, err := s.store.Load(s.ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return engine.NewEmptyState()
	}
	if err != nil {
		s.log.Warn("failed to load session snapshot", zap.Error(err))
		return engine.NewEmptyState()
	}

	state, err := snapshot.Decode(data)
	if err != nil {
		s.log.Warn("discarding corrupt session snapshot", zap.Error(err))
		if err := s.store.Delete(s.ctx, s.key); err != nil {
			s.log.Warn("failed to delete corrupt snapshot", zap.Error(err))
		}
		return engine.NewEmptyState()
	}
	return state
}

func (s *Session) loop() {
	for {
		s.checkIdle()

		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: s.version, State: s.state}

			case Leave:
				delete(s.clients, msg.ClientID)

			case FromClient:
				s.apply(msg.ClientID, msg.Cmd)

			case loginElapsed:
				if msg.Gen != s.loginGen {
					break
				}
				s.loginTimer = nil
				s.apply("", engine.Command{Type: engine.CmdCompleteLogin, Username: msg.Username})

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
				}

			case idleElapsed:
				if msg.Gen != s.idleGen {
					break
				}
				s.idleTimer = nil
				if !s.idle() {
					break
				}
				s.log.Debug("stopping idle session")
				s.shutdown()
				if s.onIdle != nil {
					s.onIdle(s)
				}
				return

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) apply(clientID string, cmd engine.Command) {
	events, newState, err := engine.Apply(s.state, cmd)
	if err != nil {
		s.log.Debug("command rejected", zap.String("command", string(cmd.Type)), zap.Error(err))
		s.reply(clientID, Snapshot{Version: s.version, State: s.state, Err: err})
		return
	}
	if len(events) == 0 {
		return
	}

	s.state = newState
	s.version++
	snap := Snapshot{Version: s.version, State: s.state}

	if ev, ok := engine.FindEvent(events, engine.EvtLoginRequested); ok {
		s.armLoginTimer(ev.Username)
	}
	if ev, ok := engine.FindEvent(events, engine.EvtOrderPlaced); ok {
		snap.OrderLink = s.dispatcher.Dispatch(s.ctx, order.OpenerFunc(s.logHandoff), ev.Message)
	}

	if engine.ContainsEvent(events, engine.EvtLoggedOut) {
		if err := s.store.Delete(s.ctx, s.key); err != nil {
			s.log.Warn("failed to clear session snapshot", zap.Error(err))
		}
	} else {
		s.persist()
	}

	s.broadcast(snap)
}

// The browser opens the link once it receives the snapshot carrying it.
func (s *Session) logHandoff(_ context.Context, link string) error {
	s.log.Info("order handed off", zap.Int("items", len(s.state.Cart)), zap.String("link", link))
	return nil
}

func (s *Session) persist() {
	if !s.state.LoggedIn() {
		return
	}
	data, err := snapshot.Encode(s.state)
	if err != nil {
		s.log.Warn("failed to encode session snapshot", zap.Error(err))
		return
	}
	if err := s.store.Save(s.ctx, s.key, data); err != nil {
		s.log.Warn("failed to save session snapshot", zap.Error(err))
	}
}

func (s *Session) armLoginTimer(username string) {
	s.loginGen++
	gen := s.loginGen
	if s.loginTimer != nil {
		s.loginTimer.Stop()
	}
	s.loginTimer = time.AfterFunc(s.loginDelay, func() {
		select {
		case s.inbox <- loginElapsed{Gen: gen, Username: username}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) idle() bool {
	return len(s.clients) == 0 && s.loginTimer == nil
}

func (s *Session) checkIdle() {
	if s.idleAfter <= 0 {
		return
	}
	switch {
	case s.idle() && s.idleTimer == nil:
		s.idleGen++
		gen := s.idleGen
		s.idleTimer = time.AfterFunc(s.idleAfter, func() {
			select {
			case s.inbox <- idleElapsed{Gen: gen}:
			case <-s.ctx.Done():
			}
		})
	case !s.idle() && s.idleTimer != nil:
		s.idleTimer.Stop()
		s.idleTimer = nil
		s.idleGen++
	}
}

func (s *Session) shutdown() {
	if s.loginTimer != nil {
		s.loginTimer.Stop()
		s.loginTimer = nil
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.loginGen++
	s.idleGen++
	for id, ch := range s.clients {
		close(ch) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()

	// Joins that raced the stop never get a snapshot; close their outboxes.
	for {
		select {
		case m := <-s.inbox:
			if j, ok := m.(Join); ok {
				close(j.Outbox)
			}
		default:
			return
		}
	}
}

func (s *Session) reply(clientID string, snap Snapshot) {
	ch, ok := s.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- snap:
	default:
		close(ch)
		delete(s.clients, clientID)
	}
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Send delivers msg unless the session has already shut down.
func (s *Session) Send(msg Msg) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.inbox <- msg:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }
