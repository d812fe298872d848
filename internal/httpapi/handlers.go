package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/gamesy/storefront/internal/catalog"
	"github.com/gamesy/storefront/internal/hub"
	"github.com/gamesy/storefront/internal/session"
	"go.uber.org/zap"
)

const deviceIDLength = 12

func GenerateDeviceID() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, deviceIDLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateDevice(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var device string
		for {
			c, err := GenerateDeviceID()
			if err != nil {
				http.Error(w, "failed to generate device id", http.StatusInternalServerError)
				return
			}
			existing, ok := lookup(r.Context(), h, c)
			if !ok {
				http.Error(w, "request cancelled", http.StatusServiceUnavailable)
				return
			}
			if existing == nil {
				device = c
				break
			}
			logger.Warn("device id collision, regenerating")
		}

		if h.Ensure(r.Context(), device) == nil {
			http.Error(w, "failed to create session", http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Device string `json:"device"`
		}{Device: device})
	}
}

func lookup(ctx context.Context, h *hub.Hub, device string) (*session.Session, bool) {
	reply := make(chan *session.Session, 1)
	select {
	case h.Inbox() <- hub.GetSession{Device: device, Reply: reply}:
	case <-ctx.Done():
		return nil, false
	}
	select {
	case s := <-reply:
		return s, true
	case <-ctx.Done():
		return nil, false
	}
}

func Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Categories []catalog.Category `json:"categories"`
	}{Categories: catalog.Categories()})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
