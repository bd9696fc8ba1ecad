package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/config"
	"github.com/sawerbase/sawerbase/internal/logging"
)

func devApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	app := fiber.New()
	if err := Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func TestSetupRequiresBackingStoresOutsideDev(t *testing.T) {
	cfg := config.Config{AppEnv: "production"}
	if err := Setup(fiber.New(), Deps{Cfg: cfg, Logger: logging.Discard()}); err == nil {
		t.Fatal("expected an error without Postgres and Redis in production")
	}
}

func TestHealthWithoutBackingStores(t *testing.T) {
	app := devApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestDonationStatusAnonymous(t *testing.T) {
	app := devApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/donations/status?amount=50000", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != "LOGIN_NEEDED" {
		t.Fatalf("expected LOGIN_NEEDED, got %s", body.State)
	}
}

func TestLeaderboardAndHistoryStartEmpty(t *testing.T) {
	app := devApp(t)
	const streamer = "0x7777777777777777777777777777777777777777"
	for _, path := range []string{
		"/api/v1/leaderboard/" + streamer,
		"/api/v1/streamers/" + streamer + "/donations",
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestProtectedWritesNeedIdentity(t *testing.T) {
	app := devApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/withdrawals", strings.NewReader(`{"recipient":"0x7777777777777777777777777777777777777777","amount":"1"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
