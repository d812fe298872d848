// Package assistant runs the storefront's support chat. A Widget holds one
// conversation seeded with what the shopper is looking at; the reply to each
// message is streamed from a Model and accumulated into the message log.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gamesy/storefront/internal/cart"
	"github.com/gamesy/storefront/internal/catalog"
	"github.com/gamesy/storefront/internal/engine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	Greeting        = "Hello! How can I help you today?"
	FallbackMessage = "Sorry, I'm having trouble connecting. Please try again later."
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrBusy         = errors.New("reply still streaming")
	ErrClosed       = errors.New("assistant closed")
	// ErrStreamDone ends a Stream.
	ErrStreamDone = errors.New("stream done")
)

var tracer = otel.Tracer("github.com/gamesy/storefront/internal/assistant")

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Model opens conversations with a generative chat service.
type Model interface {
	StartChat(instruction string) Chat
}

type Chat interface {
	SendStream(ctx context.Context, text string) Stream
}

// Stream yields reply fragments until it returns ErrStreamDone.
type Stream interface {
	Next() (string, error)
}

// Context is the shopper state the assistant is told about.
type Context struct {
	Cart     cart.Cart
	View     engine.View
	Category *catalog.Category
}

func ContextFromState(s engine.State) Context {
	return Context{Cart: s.Cart, View: s.View, Category: s.SelectedCategory}
}

func Instruction(c Context) string {
	items := make([]string, 0, len(c.Cart))
	for _, e := range c.Cart {
		items = append(items, fmt.Sprintf("%s (%s)", e.Name, e.Price))
	}
	cartDescription := strings.Join(items, ", ")
	if cartDescription == "" {
		cartDescription = "The cart is empty"
	}

	where := "The user is browsing the main product categories."
	switch {
	case c.View == engine.ViewProducts && c.Category != nil:
		where = fmt.Sprintf("The user is currently viewing products in the '%s' category.", c.Category.Name)
	case c.View == engine.ViewCart:
		where = "The user is currently in their shopping cart."
	}

	return "You are a friendly and helpful shopping assistant for Game SY, a digital store. " +
		where +
		" Here are the items in the user's cart: " + cartDescription + "." +
		" Help them with any questions they have about their items, payment, or other products available in the store." +
		" Keep your answers concise and helpful."
}

// Widget is safe for concurrent use. Every Open starts a new generation;
// fragments from a stream of an older generation are dropped.
type Widget struct {
	model Model
	log   *zap.Logger

	mu       sync.Mutex
	gen      uint64
	chat     Chat
	messages []Message
	loading  bool
	cancel   context.CancelFunc
}

func NewWidget(model Model, logger *zap.Logger) *Widget {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Widget{model: model, log: logger}
}

// Open (re)seeds the conversation and returns the fresh log.
func (w *Widget) Open(c Context) []Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.discardLocked()
	w.chat = w.model.StartChat(Instruction(c))
	w.messages = []Message{{Role: RoleModel, Text: Greeting}}
	return w.snapshotLocked()
}

func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.discardLocked()
	w.chat = nil
	w.messages = nil
}

func (w *Widget) discardLocked() {
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.loading = false
}

func (w *Widget) history() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Widget) busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

func (w *Widget) snapshotLocked() []Message {
	return append([]Message(nil), w.messages...)
}

// Send posts text and blocks until the reply stream ends. onUpdate, if set,
// gets a copy of the log and the loading flag after every change; it is never
// called for a stale generation.
func (w *Widget) Send(ctx context.Context, text string, onUpdate func([]Message, bool)) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	w.mu.Lock()
	if w.chat == nil {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.loading {
		w.mu.Unlock()
		return ErrBusy
	}
	gen := w.gen
	chat := w.chat
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.loading = true
	w.messages = append(w.messages, Message{Role: RoleUser, Text: text})
	update := w.snapshotLocked()
	w.mu.Unlock()
	defer cancel()

	notify(onUpdate, update, true)

	ctx, span := tracer.Start(ctx, "assistant.Send")
	defer span.End()

	stream := chat.SendStream(ctx, text)
	var reply strings.Builder
	started := false
	chunks := 0

	for {
		fragment, err := stream.Next()
		if errors.Is(err, ErrStreamDone) {
			break
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stream failed")
			w.log.Warn("assistant stream failed", zap.Error(err))
			w.finish(gen, &Message{Role: RoleModel, Text: FallbackMessage}, onUpdate)
			return nil
		}

		chunks++
		reply.WriteString(fragment)

		w.mu.Lock()
		if w.gen != gen {
			w.mu.Unlock()
			return nil
		}
		if !started {
			w.messages = append(w.messages, Message{Role: RoleModel})
			started = true
		}
		w.messages[len(w.messages)-1].Text = reply.String()
		update = w.snapshotLocked()
		w.mu.Unlock()

		notify(onUpdate, update, true)
	}

	span.SetAttributes(attribute.Int("assistant.chunks", chunks))
	w.finish(gen, nil, onUpdate)
	return nil
}

func (w *Widget) finish(gen uint64, extra *Message, onUpdate func([]Message, bool)) {
	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		return
	}
	if extra != nil {
		w.messages = append(w.messages, *extra)
	}
	w.loading = false
	w.cancel = nil
	update := w.snapshotLocked()
	w.mu.Unlock()

	notify(onUpdate, update, false)
}

func notify(onUpdate func([]Message, bool), msgs []Message, loading bool) {
	if onUpdate != nil {
		onUpdate(msgs, loading)
	}
}
