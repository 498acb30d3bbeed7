package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/bemcuidar/internal/cache"
	"github.com/terraincognita07/bemcuidar/internal/clients/viacep"
	"github.com/terraincognita07/bemcuidar/internal/db"
	"github.com/terraincognita07/bemcuidar/internal/metrics"
	"gorm.io/gorm"
)

const testPassword = "segredo1"

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeAddressLookup struct {
	address viacep.Address
	err     error
	calls   int
}

func (lookup *fakeAddressLookup) Lookup(_ context.Context, _ string) (viacep.Address, error) {
	lookup.calls++
	return lookup.address, lookup.err
}

type testApp struct {
	app       *fiber.App
	database  *gorm.DB
	handler   *Handler
	addresses *fakeAddressLookup
	metrics   *metrics.Metrics
	exams     *cache.Memory
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	databasePath := filepath.Join(t.TempDir(), "bemcuidar-api-test.db")
	database, err := db.OpenSQLite(databasePath, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	addresses := &fakeAddressLookup{}
	appMetrics := metrics.New()
	examCache := cache.NewMemory(time.Hour)
	handler, err := NewHandler(Options{
		Database:  database,
		SecretKey: "test-secret-key",
		Location:  time.UTC,
		Addresses: addresses,
		Metrics:   appMetrics,
		ExamCache: examCache,
		Now: func() time.Time {
			return testNow
		},
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}

	app := fiber.New()
	app.Use(appMetrics.Middleware())
	RegisterRoutes(app, handler)
	return &testApp{app: app, database: database, handler: handler, addresses: addresses, metrics: appMetrics, exams: examCache}
}

func registrationPayload(email string, cpf string) map[string]any {
	return map[string]any{
		"full_name":        "Maria da Silva",
		"cpf":              cpf,
		"birth_date":       "1970-03-10",
		"sex":              "Feminino",
		"phone":            "(11) 98765-4321",
		"email":            email,
		"password":         testPassword,
		"confirm_password": testPassword,
		"address": map[string]any{
			"zip_code":     "01310-100",
			"street":       "Avenida Paulista",
			"number":       "1000",
			"neighborhood": "Bela Vista",
			"city":         "São Paulo",
			"state":        "SP",
		},
		"health": map[string]any{
			"smoking_status":   "nunca",
			"has_hypertension": true,
			"family_history": map[string]any{
				"breast_cancer": true,
			},
		},
		"exam_history": map[string]any{
			"bloodTests": map[string]any{"done": true, "last_date": "2025-01-10"},
		},
	}
}

func (env *testApp) request(t *testing.T, method string, path string, payload any, cookie string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, body)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		request.Header.Set("Cookie", authCookieName+"="+cookie)
	}

	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return response
}

// registerUser creates the default test account and returns its session token.
func (env *testApp) registerUser(t *testing.T) string {
	t.Helper()

	response := env.request(t, http.MethodPost, "/api/auth/register", registrationPayload("maria@example.com", "123.456.789-01"), "")
	defer response.Body.Close()
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("expected register status 201, got %d: %s", response.StatusCode, readBody(t, response.Body))
	}

	token := responseCookieValue(response.Cookies(), authCookieName)
	if token == "" {
		t.Fatal("expected auth cookie after registration")
	}
	return token
}

func decodeJSON(t *testing.T, body io.Reader, target any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func readBody(t *testing.T, body io.Reader) string {
	t.Helper()
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return string(raw)
}

func responseCookieValue(cookies []*http.Cookie, name string) string {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func responseCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func readAPIError(t *testing.T, body io.Reader) string {
	t.Helper()

	payload := map[string]string{}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return payload["error"]
}
