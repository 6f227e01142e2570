package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	instrumententity "fintrade/internal/feature/instruments/domain/entity"
	instrumenthandler "fintrade/internal/feature/instruments/transport/handler"
	"fintrade/internal/feature/prices/domain/entity"
	runhandler "fintrade/internal/feature/prices/transport/handler"
	"fintrade/internal/feature/prices/usecase"
	"fintrade/internal/platform/http/handler"
	jwtmw "fintrade/internal/platform/jwt"
)

const secret = "router-test-secret"

type stubInstruments struct{}

func (stubInstruments) ListActiveInstruments(ctx context.Context) ([]instrumententity.Instrument, error) {
	return []instrumententity.Instrument{{Symbol: "AAPL"}}, nil
}

type stubRuns struct{}

func (stubRuns) Trigger(ctx context.Context) (entity.RunOutcome, error) {
	return entity.RunOutcome{RunID: "r", Status: entity.StatusSuccess}, nil
}

func (stubRuns) Start(ctx context.Context) (<-chan usecase.RunResult, error) {
	done := make(chan usecase.RunResult, 1)
	done <- usecase.RunResult{}
	return done, nil
}

func (stubRuns) Replay(ctx context.Context, symbol string, window entity.Window) (entity.EntityOutcome, error) {
	return entity.EntityOutcome{Symbol: symbol, Status: entity.StatusSuccess}, nil
}

func (stubRuns) Latest(ctx context.Context) (entity.RunOutcome, bool, error) {
	return entity.RunOutcome{RunID: "r"}, true, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(Handlers{
		Health:      handler.NewHealth(nil),
		Instruments: instrumenthandler.NewInstrumentHandler(stubInstruments{}),
		Runs:        runhandler.NewRunHandler(stubRuns{}, context.Background()),
	}, secret)
}

func token(t *testing.T, scope string) string {
	t.Helper()
	tok, err := jwtmw.NewGenerator(secret, time.Minute).GenerateToken("orchestrator", scope)
	require.NoError(t, err)
	return tok
}

func TestRouter(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
	}{
		{"health is public", http.MethodGet, "/healthz", "", http.StatusOK},
		{"instruments are public", http.MethodGet, "/instruments", "", http.StatusOK},
		{"latest run is public", http.MethodGet, "/runs/latest", "", http.StatusOK},
		{"trigger needs a token", http.MethodPost, "/runs", "", http.StatusUnauthorized},
		{"trigger needs the scope", http.MethodPost, "/runs", token(t, "read"), http.StatusForbidden},
		{"trigger with scoped token", http.MethodPost, "/runs", token(t, jwtmw.ScopeTriggerRuns), http.StatusAccepted},
		{"replay needs a token", http.MethodPost, "/runs/replay", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
