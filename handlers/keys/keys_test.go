package keys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inferly/content-tags/model"
	"github.com/inferly/content-tags/services"
	"github.com/inferly/content-tags/utils/auth"
	"github.com/inferly/content-tags/utils/middleware"
)

const (
	testJWTSecret = "test-secret"
	testIssuer    = "inferly-test"
)

func setupKeysApp(t *testing.T) (*fiber.App, *services.KeyService) {
	t.Helper()

	dsn := fmt.Sprintf("file:keys_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.APIKey{}, &model.UserKey{}, &model.UsageLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := services.NewKeyService(db)
	handler := NewHandler(svc)
	authMW := middleware.NewAuthMiddleware(auth.NewJWTManager(testJWTSecret, testIssuer))

	app := fiber.New()
	group := app.Group("/api/v1/keys", authMW.Required())
	group.Post("/", handler.CreateKey)
	group.Get("/", handler.GetKey)
	group.Post("/regenerate", handler.RegenerateKey)
	group.Delete("/", handler.DeleteKey)
	group.Get("/usage", handler.GetUsage)

	return app, svc
}

func mintSessionToken(t *testing.T, userID string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doKeysRequest(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	decoded := map[string]interface{}{}
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}
	return resp, decoded
}

func TestKeysRequireSessionToken(t *testing.T) {
	app, _ := setupKeysApp(t)

	resp, _ := doKeysRequest(t, app, http.MethodGet, "/api/v1/keys/", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestKeysRejectForgedToken(t *testing.T) {
	app, _ := setupKeysApp(t)

	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp, _ := doKeysRequest(t, app, http.MethodGet, "/api/v1/keys/", forged, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestProvisionAndFetchKey(t *testing.T) {
	app, _ := setupKeysApp(t)
	token := mintSessionToken(t, "u1")

	resp, body := doKeysRequest(t, app, http.MethodPost, "/api/v1/keys/", token, map[string]string{"tier": "startup"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %v", resp.StatusCode, body)
	}

	data := body["data"].(map[string]interface{})
	fullKey, _ := data["api_key"].(string)
	if !strings.HasPrefix(fullKey, model.KeyPrefix) {
		t.Fatalf("created key %q missing prefix", fullKey)
	}

	// Reads return only the masked form.
	resp, body = doKeysRequest(t, app, http.MethodGet, "/api/v1/keys/", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	data = body["data"].(map[string]interface{})
	masked, _ := data["key"].(string)
	if masked == fullKey {
		t.Error("read endpoint must not return the full token")
	}
	if !strings.Contains(masked, "...") {
		t.Errorf("masked key %q has unexpected shape", masked)
	}
}

func TestProvisionTwiceConflicts(t *testing.T) {
	app, _ := setupKeysApp(t)
	token := mintSessionToken(t, "u1")

	resp, _ := doKeysRequest(t, app, http.MethodPost, "/api/v1/keys/", token, map[string]string{"tier": "free"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create status = %d", resp.StatusCode)
	}
	resp, _ = doKeysRequest(t, app, http.MethodPost, "/api/v1/keys/", token, map[string]string{"tier": "free"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second create status = %d, want 409", resp.StatusCode)
	}
}

func TestProvisionRejectsUnknownTier(t *testing.T) {
	app, _ := setupKeysApp(t)
	token := mintSessionToken(t, "u1")

	resp, _ := doKeysRequest(t, app, http.MethodPost, "/api/v1/keys/", token, map[string]string{"tier": "platinum"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRegenerateEndpoint(t *testing.T) {
	app, svc := setupKeysApp(t)
	token := mintSessionToken(t, "u1")

	created, err := svc.CreateKey(context.Background(), "u1", model.TierGrowth)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	resp, body := doKeysRequest(t, app, http.MethodPost, "/api/v1/keys/regenerate", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", resp.StatusCode, body)
	}

	data := body["data"].(map[string]interface{})
	fresh, _ := data["api_key"].(string)
	if fresh == created.Token {
		t.Error("regeneration should return a new token")
	}
	if !strings.HasPrefix(fresh, model.KeyPrefix) {
		t.Errorf("new token %q missing prefix", fresh)
	}
}

func TestRegenerateWithoutKey(t *testing.T) {
	app, _ := setupKeysApp(t)
	token := mintSessionToken(t, "u1")

	resp, _ := doKeysRequest(t, app, http.MethodPost, "/api/v1/keys/regenerate", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteKeyEndpoint(t *testing.T) {
	app, svc := setupKeysApp(t)
	token := mintSessionToken(t, "u1")

	if _, err := svc.CreateKey(context.Background(), "u1", model.TierFree); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	resp, _ := doKeysRequest(t, app, http.MethodDelete, "/api/v1/keys/", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, _ = doKeysRequest(t, app, http.MethodGet, "/api/v1/keys/", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestUsageEndpoint(t *testing.T) {
	app, svc := setupKeysApp(t)
	token := mintSessionToken(t, "u1")
	ctx := context.Background()

	created, err := svc.CreateKey(ctx, "u1", model.TierStartup)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if err := svc.Store().UpdateFields(ctx, created.Token, map[string]interface{}{"total_usage": int64(120)}); err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	resp, body := doKeysRequest(t, app, http.MethodGet, "/api/v1/keys/usage", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	data := body["data"].(map[string]interface{})
	if data["total_usage"].(float64) != 120 {
		t.Errorf("total_usage = %v, want 120", data["total_usage"])
	}
	if data["monthly_quota"].(float64) != float64(model.QuotaFor(model.TierStartup)) {
		t.Errorf("monthly_quota = %v", data["monthly_quota"])
	}
}
