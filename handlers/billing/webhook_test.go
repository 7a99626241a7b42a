package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inferly/content-tags/model"
	"github.com/inferly/content-tags/services"
)

const testSecret = "whsec_test"

func setupWebhookApp(t *testing.T) (*fiber.App, *services.KeyService) {
	t.Helper()

	dsn := fmt.Sprintf("file:billing_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
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
	handler := NewHandler(svc, testSecret)

	app := fiber.New()
	app.Post("/api/v1/billing/events", handler.HandleEvent)
	return app, svc
}

func postEvent(t *testing.T, app *fiber.App, secret string, payload map[string]interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	app, _ := setupWebhookApp(t)

	resp := postEvent(t, app, "", map[string]interface{}{
		"type": "checkout.completed", "user_id": "u1", "tier": "startup",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	app, _ := setupWebhookApp(t)

	resp := postEvent(t, app, "whsec_wrong", map[string]interface{}{
		"type": "checkout.completed", "user_id": "u1", "tier": "startup",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWebhookCheckoutProvisionsKey(t *testing.T) {
	app, svc := setupWebhookApp(t)

	resp := postEvent(t, app, testSecret, map[string]interface{}{
		"type": "checkout.completed", "user_id": "u1", "tier": "startup",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	key, err := svc.GetKeyForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("key not provisioned: %v", err)
	}
	if key.Tier != model.TierStartup {
		t.Errorf("tier = %s, want startup", key.Tier)
	}
	if !key.Active {
		t.Error("provisioned key should be active")
	}
}

func TestWebhookCheckoutForExistingKeyUpgradesTier(t *testing.T) {
	app, svc := setupWebhookApp(t)
	ctx := context.Background()

	if _, err := svc.CreateKey(ctx, "u1", model.TierFree); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if _, err := svc.PauseKey(ctx, "u1"); err != nil {
		t.Fatalf("PauseKey: %v", err)
	}

	resp := postEvent(t, app, testSecret, map[string]interface{}{
		"type": "checkout.completed", "user_id": "u1", "tier": "growth",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	key, err := svc.GetKeyForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetKeyForUser: %v", err)
	}
	if key.Tier != model.TierGrowth {
		t.Errorf("tier = %s, want growth", key.Tier)
	}
	if !key.Active {
		t.Error("resubscribe should reactivate the key")
	}
}

func TestWebhookSubscriptionPastDuePausesKey(t *testing.T) {
	app, svc := setupWebhookApp(t)
	ctx := context.Background()

	if _, err := svc.CreateKey(ctx, "u1", model.TierStartup); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	resp := postEvent(t, app, testSecret, map[string]interface{}{
		"type": "subscription.updated", "user_id": "u1", "status": "past_due",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	key, err := svc.GetKeyForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetKeyForUser: %v", err)
	}
	if key.Active {
		t.Error("past_due should pause the key")
	}

	// Payment recovered.
	resp = postEvent(t, app, testSecret, map[string]interface{}{
		"type": "subscription.updated", "user_id": "u1", "status": "active",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	key, err = svc.GetKeyForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetKeyForUser: %v", err)
	}
	if !key.Active {
		t.Error("active status should resume the key")
	}
}

func TestWebhookCancellationPausesButKeepsKey(t *testing.T) {
	app, svc := setupWebhookApp(t)
	ctx := context.Background()

	created, err := svc.CreateKey(ctx, "u1", model.TierStartup)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	resp := postEvent(t, app, testSecret, map[string]interface{}{
		"type": "subscription.canceled", "user_id": "u1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	key, err := svc.GetKeyForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("key should survive cancellation: %v", err)
	}
	if key.Active {
		t.Error("canceled subscription should pause the key")
	}
	if key.Token != created.Token {
		t.Error("cancellation must not rotate the token")
	}
}

func TestWebhookToleratesUnknownUser(t *testing.T) {
	app, _ := setupWebhookApp(t)

	resp := postEvent(t, app, testSecret, map[string]interface{}{
		"type": "subscription.updated", "user_id": "ghost", "status": "past_due",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unknown user event status = %d, want 200", resp.StatusCode)
	}
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	app, _ := setupWebhookApp(t)

	resp := postEvent(t, app, testSecret, map[string]interface{}{
		"type": "invoice.finalized", "user_id": "u1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unknown event status = %d, want 200", resp.StatusCode)
	}
}
