package hub

import (
	"context"
	"time"

	"github.com/gamesy/storefront/internal/order"
	"github.com/gamesy/storefront/internal/session"
	"github.com/gamesy/storefront/internal/storage"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

type GetSession struct {
	Device string
	Reply  chan *session.Session
}

// EnsureSession returns the live session for Device, restoring it from the
// store when this is the first connection since startup.
type EnsureSession struct {
	Device string
	Reply  chan *session.Session
}

// RemoveSession forgets Device. When Session is set, the entry is only dropped
// if it still points at that session, so a late idle report cannot evict a
// replacement.
type RemoveSession struct {
	Device  string
	Session *session.Session
}

type CountSessions struct {
	Reply chan int
}

type ShutdownHub struct {
	Done chan struct{} // optional, closed once every session was told to stop
}

func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (CountSessions) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

const DefaultIdleTimeout = 30 * time.Second

type Options struct {
	Store      storage.Store
	Dispatcher *order.Dispatcher
	LoginDelay time.Duration
	// IdleTimeout defaults to DefaultIdleTimeout; negative disables reclaiming.
	IdleTimeout time.Duration
	Logger      *zap.Logger
}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	opts     Options
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Store == nil {
		opts.Store = storage.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Ensure is the blocking form of EnsureSession. It returns nil once the hub
// has stopped.
func (h *Hub) Ensure(ctx context.Context, device string) *session.Session {
	reply := make(chan *session.Session, 1)
	select {
	case h.inbox <- EnsureSession{Device: device, Reply: reply}:
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
	select {
	case s := <-reply:
		return s
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetSession:
				msg.Reply <- h.live(msg.Device) // May be nil

			case EnsureSession:
				if s := h.live(msg.Device); s != nil {
					msg.Reply <- s
					break
				}
				s := session.New(h.ctx, session.Config{
					Device:      msg.Device,
					Store:       h.opts.Store,
					Dispatcher:  h.opts.Dispatcher,
					LoginDelay:  h.opts.LoginDelay,
					IdleTimeout: h.opts.IdleTimeout,
					OnIdle:      h.idleReporter(msg.Device),
					Logger:      h.opts.Logger,
				})
				h.sessions[msg.Device] = s
				msg.Reply <- s

			case RemoveSession:
				s := h.sessions[msg.Device]
				if s == nil || (msg.Session != nil && msg.Session != s) {
					break
				}
				s.Send(session.Shutdown{})
				delete(h.sessions, msg.Device)

			case CountSessions:
				for device := range h.sessions {
					h.live(device)
				}
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

func (h *Hub) idleReporter(device string) func(*session.Session) {
	return func(s *session.Session) {
		select {
		case h.inbox <- RemoveSession{Device: device, Session: s}:
		case <-h.ctx.Done():
		}
	}
}

// Count is the blocking form of CountSessions. It returns -1 once the hub has
// stopped.
func (h *Hub) Count(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.inbox <- CountSessions{Reply: reply}:
	case <-ctx.Done():
		return -1
	case <-h.ctx.Done():
		return -1
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return -1
	case <-h.ctx.Done():
		return -1
	}
}

// live drops sessions that shut down on their own.
func (h *Hub) live(device string) *session.Session {
	s := h.sessions[device]
	if s == nil {
		return nil
	}
	select {
	case <-s.Done():
		delete(h.sessions, device)
		return nil
	default:
		return s
	}
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		s.Send(session.Shutdown{})
	}
	clear(h.sessions)
}
