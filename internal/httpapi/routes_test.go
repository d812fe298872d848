package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gamesy/storefront/internal/assistant"
	"github.com/gamesy/storefront/internal/catalog"
	"github.com/gamesy/storefront/internal/hub"
	"github.com/gamesy/storefront/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (http.Handler, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, hub.Options{})
	return SetupRoutes(h, assistant.Offline{}, nil), h
}

func TestHealthz(t *testing.T) {
	r, _ := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalog(t *testing.T) {
	r, _ := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Categories []catalog.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Categories, 4)
	assert.Equal(t, "pubg-uc", body.Categories[0].ID)
	assert.Equal(t, "$4.99", body.Categories[0].Products[1].Price)
}

func TestCreateDevice_RegistersSession(t *testing.T) {
	r, h := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/devices", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Device string `json:"device"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{12}$`), body.Device)

	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.GetSession{Device: body.Device, Reply: reply}
	assert.NotNil(t, <-reply)
}

func TestGenerateDeviceID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := GenerateDeviceID()
		require.NoError(t, err)
		require.Len(t, id, deviceIDLength)
		require.False(t, seen[id])
		seen[id] = true
	}
}
