package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"breakout-trading-bot/internal/alpaca"
	"breakout-trading-bot/internal/auth"
	"breakout-trading-bot/internal/bot"
	"breakout-trading-bot/internal/events"
	"breakout-trading-bot/internal/logbuf"

	"github.com/rs/zerolog"
)

// fakeController records control calls and serves canned data.
type fakeController struct {
	running    bool
	settings   bot.Settings
	entries    []logbuf.Entry
	account    *alpaca.Account
	accountErr error
}

func (f *fakeController) Start() bool {
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakeController) Stop()         { f.running = false }
func (f *fakeController) Running() bool { return f.running }

func (f *fakeController) Settings() bot.Settings { return f.settings }

func (f *fakeController) SetSymbols(symbols []string) bot.Settings {
	f.settings.Symbols = symbols
	return f.settings
}

func (f *fakeController) SetPositionSize(size int) bot.Settings {
	f.settings.PositionSize = size
	return f.settings
}

func (f *fakeController) SetStopLoss(fraction float64) bot.Settings {
	f.settings.StopLossPercent = fraction
	return f.settings
}

func (f *fakeController) SetTakeProfit(fraction float64) bot.Settings {
	f.settings.TakeProfitPercent = fraction
	return f.settings
}

func (f *fakeController) Logs(n int) []logbuf.Entry {
	if n > len(f.entries) {
		n = len(f.entries)
	}
	return f.entries[len(f.entries)-n:]
}

func (f *fakeController) Balance(ctx context.Context) (*alpaca.Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func newTestServer(ctrl *fakeController) *Server {
	cfg := ServerConfig{
		Port:           8080,
		AllowedOrigins: "*",
		ProductionMode: true,
	}
	return NewServer(cfg, ctrl, nil, events.NewEventBus(), zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, w.Body.String())
	}
	return out
}

func TestStartStopStatus(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl)

	w := doRequest(t, s, http.MethodGet, "/start", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if got := decodeBody(t, w)["status"]; got != "Bot started" {
		t.Errorf("unexpected start response: %v", got)
	}

	w = doRequest(t, s, http.MethodGet, "/start", "")
	if got := decodeBody(t, w)["status"]; got != "Bot already running" {
		t.Errorf("second start should report already running, got %v", got)
	}

	w = doRequest(t, s, http.MethodGet, "/status", "")
	if got := decodeBody(t, w)["running"]; got != true {
		t.Errorf("expected running true, got %v", got)
	}

	w = doRequest(t, s, http.MethodGet, "/stop", "")
	if got := decodeBody(t, w)["status"]; got != "Bot stopping..." {
		t.Errorf("unexpected stop response: %v", got)
	}

	w = doRequest(t, s, http.MethodGet, "/status", "")
	if got := decodeBody(t, w)["running"]; got != false {
		t.Errorf("expected running false after stop, got %v", got)
	}
}

func TestGetConfig(t *testing.T) {
	ctrl := &fakeController{settings: bot.Settings{
		Symbols:           []string{"AAPL", "TSLA"},
		PositionSize:      2,
		StopLossPercent:   0.02,
		TakeProfitPercent: 0.04,
	}}
	s := newTestServer(ctrl)

	w := doRequest(t, s, http.MethodGet, "/config", "")
	body := decodeBody(t, w)
	if body["position_size"] != float64(2) || body["stop_loss"] != 0.02 {
		t.Errorf("unexpected config: %v", body)
	}
}

func TestSetSymbols(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl)

	w := doRequest(t, s, http.MethodPost, "/set-symbols", `{"symbols": ["AMD", "NVDA"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if len(ctrl.settings.Symbols) != 2 || ctrl.settings.Symbols[0] != "AMD" {
		t.Errorf("symbols not applied: %v", ctrl.settings.Symbols)
	}

	// An empty list is valid and disables entries
	w = doRequest(t, s, http.MethodPost, "/set-symbols", `{"symbols": []}`)
	if w.Code != http.StatusOK {
		t.Errorf("empty symbol list must be accepted, got %d", w.Code)
	}
	if len(ctrl.settings.Symbols) != 0 {
		t.Errorf("expected empty symbols, got %v", ctrl.settings.Symbols)
	}
}

func TestSetStopLossAcceptsAnyValue(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl)

	// Out-of-range values pass through unvalidated
	for _, body := range []string{`{"stop_loss": 0.05}`, `{"stop_loss": 0}`, `{"stop_loss": 1.5}`} {
		w := doRequest(t, s, http.MethodPost, "/set-stop-loss", body)
		if w.Code != http.StatusOK {
			t.Errorf("expected 200 for %s, got %d", body, w.Code)
		}
	}
	if ctrl.settings.StopLossPercent != 1.5 {
		t.Errorf("expected last value applied, got %v", ctrl.settings.StopLossPercent)
	}
}

func TestSetStopLossRejectsMalformedBody(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl)

	for _, body := range []string{`{}`, `not json`, `{"stop_loss": "abc"}`} {
		w := doRequest(t, s, http.MethodPost, "/set-stop-loss", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %q, got %d", body, w.Code)
		}
	}
}

func TestSetTakeProfitAndPositionSize(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl)

	w := doRequest(t, s, http.MethodPost, "/set-take-profit", `{"take_profit": 0.08}`)
	if w.Code != http.StatusOK || ctrl.settings.TakeProfitPercent != 0.08 {
		t.Errorf("take profit not applied: code=%d value=%v", w.Code, ctrl.settings.TakeProfitPercent)
	}

	w = doRequest(t, s, http.MethodPost, "/set-position-size", `{"position_size": 5}`)
	if w.Code != http.StatusOK || ctrl.settings.PositionSize != 5 {
		t.Errorf("position size not applied: code=%d value=%v", w.Code, ctrl.settings.PositionSize)
	}
}

func TestGetLogs(t *testing.T) {
	var entries []logbuf.Entry
	base := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entries = append(entries, logbuf.Entry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Message:   "cycle",
		})
	}
	ctrl := &fakeController{entries: entries}
	s := newTestServer(ctrl)

	w := doRequest(t, s, http.MethodGet, "/logs?limit=3", "")
	body := decodeBody(t, w)
	logs, ok := body["logs"].([]interface{})
	if !ok {
		t.Fatalf("expected logs array, got %v", body)
	}
	if len(logs) != 3 {
		t.Errorf("expected 3 entries, got %d", len(logs))
	}
	if first, _ := logs[0].(string); !strings.Contains(first, " - cycle") {
		t.Errorf("unexpected log line format: %v", logs[0])
	}
}

func TestGetBalance(t *testing.T) {
	ctrl := &fakeController{account: &alpaca.Account{Cash: 1200.50, PortfolioValue: 8900.25}}
	s := newTestServer(ctrl)

	w := doRequest(t, s, http.MethodGet, "/balance", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["cash"] != 1200.50 || body["portfolio_value"] != 8900.25 {
		t.Errorf("unexpected balance: %v", body)
	}
}

func TestGetBalanceGatewayError(t *testing.T) {
	ctrl := &fakeController{accountErr: errors.New("alpaca unreachable")}
	s := newTestServer(ctrl)

	w := doRequest(t, s, http.MethodGet, "/balance", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != true {
		t.Errorf("expected error flag, got %v", body)
	}
}

func TestHealthAndHome(t *testing.T) {
	s := newTestServer(&fakeController{})

	w := doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health returned %d", w.Code)
	}

	w = doRequest(t, s, http.MethodGet, "/", "")
	if !strings.Contains(w.Body.String(), "Trading Bot API is live") {
		t.Errorf("unexpected home body: %s", w.Body.String())
	}
}

func TestAuthEnforcedWhenConfigured(t *testing.T) {
	ctrl := &fakeController{}
	cfg := ServerConfig{Port: 8080, AllowedOrigins: "*", ProductionMode: true}
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	s := NewServer(cfg, ctrl, jwtManager, events.NewEventBus(), zerolog.Nop())

	// Control routes reject missing credentials
	w := doRequest(t, s, http.MethodGet, "/status", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	// Liveness stays public
	w = doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health must stay public, got %d", w.Code)
	}

	// A valid token passes
	token, err := jwtManager.GenerateToken("ops")
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}
}
