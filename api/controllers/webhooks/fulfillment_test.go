package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/memowindow/memowindow-backend/internal/orders"
	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"github.com/memowindow/memowindow-backend/pkg/enums"
	"github.com/memowindow/memowindow-backend/pkg/logger"
)

type stubFulfillmentMarker struct {
	orderID int64
	input   orders.FulfillmentInput
	called  bool
}

func (s *stubFulfillmentMarker) MarkFulfilled(ctx context.Context, orderID int64, input orders.FulfillmentInput) (*models.Order, error) {
	s.called = true
	s.orderID = orderID
	s.input = input
	return &models.Order{ID: orderID, Status: enums.OrderStatusFulfilled}, nil
}

func signBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestFulfillmentWebhookAcceptsSignedPayload(t *testing.T) {
	svc := &stubFulfillmentMarker{}
	handler := FulfillmentWebhook(svc, "whsec_print", logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	body := `{"order_id": 40, "fulfillment_order_id": "pf-778", "tracking_number": "1Z999"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/fulfillment", strings.NewReader(body))
	req.Header.Set(fulfillmentSignatureHeader, signBody("whsec_print", body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if !svc.called {
		t.Fatal("service not called")
	}
	if svc.orderID != 40 || svc.input.FulfillmentOrderID != "pf-778" || svc.input.TrackingNumber != "1Z999" {
		t.Fatalf("unexpected input orderID=%d %+v", svc.orderID, svc.input)
	}
}

func TestFulfillmentWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubFulfillmentMarker{}
	handler := FulfillmentWebhook(svc, "whsec_print", logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	body := `{"order_id": 40, "fulfillment_order_id": "pf-778"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/fulfillment", strings.NewReader(body))
	req.Header.Set(fulfillmentSignatureHeader, signBody("wrong_secret", body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
	if svc.called {
		t.Fatal("service must not run on bad signature")
	}
}

func TestFulfillmentWebhookRejectsMissingSignature(t *testing.T) {
	svc := &stubFulfillmentMarker{}
	handler := FulfillmentWebhook(svc, "whsec_print", logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/fulfillment", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}
