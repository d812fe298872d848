package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gamesy/storefront/internal/assistant"
	"github.com/gamesy/storefront/internal/engine"
	"github.com/gamesy/storefront/internal/hub"
	"github.com/gamesy/storefront/internal/session"
	"github.com/gamesy/storefront/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 2 * time.Minute
)

func Handler(h *hub.Hub, model assistant.Model, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == nil {
		model = assistant.Offline{}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		device := r.URL.Query().Get("device")
		if device == "" {
			http.Error(w, "missing device", http.StatusBadRequest)
			return
		}

		clientID := uuid.NewString()
		log := logger.With(zap.String("device", device), zap.String("client", clientID))

		sess, out, first, ok := join(r.Context(), h, device, clientID)
		if !ok {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		defer sess.Send(session.Leave{ClientID: clientID})

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		write := func(msg types.ServerMessage) {
			payload, err := json.Marshal(msg)
			if err != nil {
				log.Error("marshal server message", zap.Error(err))
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			defer wcancel()
			_ = conn.Write(wctx, websocket.MessageText, payload)
		}

		// Writer goroutine
		go func() {
			for _, msg := range toServerMessages(first) {
				write(msg)
			}
			for {
				select {
				case <-ctx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// Dropped as slow, or the session stopped.
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					for _, msg := range toServerMessages(snap) {
						write(msg)
					}
				}
			}
		}()

		widget := assistant.NewWidget(model, log)
		defer widget.Close()

		// Reader loop
		for {
			rctx, rcancel := context.WithTimeout(ctx, idleTimeout)
			_, data, err := conn.Read(rctx)
			rcancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				write(types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			switch cm.Type {
			case "AssistantOpen":
				state, ok := currentState(ctx, sess)
				if !ok {
					return
				}
				msgs := widget.Open(assistant.ContextFromState(state))
				write(types.ServerMessage{Type: "Assistant", Messages: msgs})

			case "AssistantSend":
				text := cm.Text
				go func() {
					err := widget.Send(ctx, text, func(msgs []assistant.Message, loading bool) {
						write(types.ServerMessage{Type: "Assistant", Messages: msgs, Loading: loading})
					})
					if err != nil && !errors.Is(err, assistant.ErrEmptyMessage) {
						write(types.ServerMessage{Type: "Error", Error: err.Error()})
					}
				}()

			case "AssistantClose":
				widget.Close()

			default:
				cmd, ok := toEngineCommand(cm)
				if !ok {
					write(types.ServerMessage{Type: "Error", Error: "unknown type"})
					continue
				}
				if !sess.Send(session.FromClient{ClientID: clientID, Cmd: cmd}) {
					return
				}
			}
		}
	}
}

const joinAttempts = 3

// join registers clientID with the device's session and waits for the first
// snapshot. An idle session can stop between Ensure and Join; the hub then
// hands out a fresh one on the next attempt.
func join(ctx context.Context, h *hub.Hub, device, clientID string) (*session.Session, chan session.Snapshot, session.Snapshot, bool) {
	for range joinAttempts {
		sess := h.Ensure(ctx, device)
		if sess == nil {
			break
		}
		out := make(chan session.Snapshot, 8)
		if !sess.Send(session.Join{ClientID: clientID, Outbox: out}) {
			continue
		}
		select {
		case first, ok := <-out:
			if ok {
				return sess, out, first, true
			}
		case <-sess.Done():
			select {
			case first, ok := <-out:
				if ok {
					return sess, out, first, true
				}
			default:
			}
		case <-ctx.Done():
			return nil, nil, session.Snapshot{}, false
		}
	}
	return nil, nil, session.Snapshot{}, false
}

func currentState(ctx context.Context, sess *session.Session) (engine.State, bool) {
	reply := make(chan session.View, 1)
	if !sess.Send(session.GetState{Reply: reply}) {
		return engine.State{}, false
	}
	select {
	case v := <-reply:
		return v.State, true
	case <-ctx.Done():
		return engine.State{}, false
	case <-sess.Done():
		return engine.State{}, false
	}
}

func toServerMessages(snap session.Snapshot) []types.ServerMessage {
	state := types.NewStateView(snap.State)
	if snap.Err != nil {
		return []types.ServerMessage{{Type: "Error", Version: snap.Version, State: state, Error: types.UserMessage(snap.Err)}}
	}
	msgs := []types.ServerMessage{{Type: "StateSnapshot", Version: snap.Version, State: state}}
	if snap.OrderLink != "" {
		msgs = append(msgs, types.ServerMessage{Type: "OpenLink", Version: snap.Version, URL: snap.OrderLink})
	}
	return msgs
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "Login":
		return engine.Command{Type: engine.CmdSubmitLogin, Username: m.Username, Password: m.Password}, true
	case "SelectCategory":
		return engine.Command{Type: engine.CmdSelectCategory, CategoryID: m.CategoryID}, true
	case "OpenCart":
		return engine.Command{Type: engine.CmdOpenCart}, true
	case "Back":
		return engine.Command{Type: engine.CmdBack}, true
	case "AddToCart":
		return engine.Command{Type: engine.CmdAddToCart, ProductID: m.ProductID}, true
	case "RemoveFromCart":
		return engine.Command{Type: engine.CmdRemoveFromCart, CartItemID: m.CartItemID}, true
	case "Checkout":
		return engine.Command{Type: engine.CmdCheckout}, true
	case "SetPlayerID":
		return engine.Command{Type: engine.CmdSetPlayerID, PlayerID: m.PlayerID}, true
	case "ConfirmOrder":
		return engine.Command{Type: engine.CmdConfirmOrder}, true
	case "NewOrder":
		return engine.Command{Type: engine.CmdNewOrder}, true
	case "Logout":
		return engine.Command{Type: engine.CmdLogout}, true
	default:
		// CompleteLogin is internal to the session and never accepted from clients.
		return engine.Command{}, false
	}
}
