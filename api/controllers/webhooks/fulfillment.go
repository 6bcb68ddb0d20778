package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/memowindow/memowindow-backend/api/responses"
	"github.com/memowindow/memowindow-backend/internal/orders"
	"github.com/memowindow/memowindow-backend/pkg/db/models"
	pkgerrors "github.com/memowindow/memowindow-backend/pkg/errors"
	"github.com/memowindow/memowindow-backend/pkg/logger"
)

const fulfillmentSignatureHeader = "X-Fulfillment-Signature"

type fulfillmentMarker interface {
	MarkFulfilled(ctx context.Context, orderID int64, input orders.FulfillmentInput) (*models.Order, error)
}

type fulfillmentPayload struct {
	OrderID            int64  `json:"order_id"`
	FulfillmentOrderID string `json:"fulfillment_order_id"`
	TrackingNumber     string `json:"tracking_number"`
}

// FulfillmentWebhook receives shipment notifications from the print partner.
// The partner signs the raw body with HMAC-SHA256 over a shared secret.
func FulfillmentWebhook(svc fulfillmentMarker, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment secret unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !verifyFulfillmentSignature(payload, r.Header.Get(fulfillmentSignatureHeader), secret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		var body fulfillmentPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payload"))
			return
		}

		order, err := svc.MarkFulfilled(ctx, body.OrderID, orders.FulfillmentInput{
			FulfillmentOrderID: body.FulfillmentOrderID,
			TrackingNumber:     body.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func verifyFulfillmentSignature(payload []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
