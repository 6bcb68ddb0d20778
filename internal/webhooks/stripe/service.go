package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/memowindow/memowindow-backend/internal/orders"
	"github.com/memowindow/memowindow-backend/internal/subscriptions"
	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"github.com/memowindow/memowindow-backend/pkg/enums"
	pkgerrors "github.com/memowindow/memowindow-backend/pkg/errors"
	"github.com/memowindow/memowindow-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
)

type orderWriter interface {
	Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
	MarkPaid(ctx context.Context, paymentSessionID string, amountPaidCents int) (*models.Order, error)
}

type ledgerWriter interface {
	CreateOrUpdate(ctx context.Context, input subscriptions.UpsertInput) (*models.Subscription, error)
	MarkStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status enums.SubscriptionStatus) (bool, error)
}

// ServiceParams wires the webhook processor dependencies.
type ServiceParams struct {
	Orders        orderWriter
	Subscriptions ledgerWriter
	Logger        *logger.Logger
}

// Service routes verified Stripe events into the order store and the
// subscription ledger. Events that carry no MemoWindow metadata are ignored;
// the Stripe account may host more than this backend.
type Service struct {
	orders        orderWriter
	subscriptions ledgerWriter
	logger        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:        params.Orders,
		subscriptions: params.Subscriptions,
		logger:        params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	ctx = s.logger.WithEventID(ctx, event.ID)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.handleCheckoutCompleted(ctx, &session)
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &stripeSub)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.markByStripeID(ctx, stripeSub.ID, enums.SubscriptionStatusCancelled)
	case stripe.EventTypeInvoicePaid:
		return s.markFromInvoice(ctx, event, enums.SubscriptionStatusActive)
	case stripe.EventTypeInvoicePaymentFailed:
		return s.markFromInvoice(ctx, event, enums.SubscriptionStatusPastDue)
	default:
		return nil
	}
}

// handleCheckoutCompleted promotes the pending order tied to the session, or
// creates a paid order from the session metadata when checkout started
// outside this backend.
func (s *Service) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	if session.Mode == stripe.CheckoutSessionModeSubscription {
		// Subscription checkouts arrive as customer.subscription events.
		return nil
	}

	amountPaid := int(session.AmountTotal)

	_, err := s.orders.MarkPaid(ctx, session.ID, amountPaid)
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return err
	}

	userID := parseMetaInt(session.Metadata, "user_id")
	memoryID := parseMetaInt(session.Metadata, "memory_id")
	productKey := session.Metadata["product_key"]
	if userID <= 0 || memoryID <= 0 || productKey == "" {
		s.logger.Warn(ctx, "checkout session missing order metadata, skipping")
		return nil
	}

	quantity := int(parseMetaInt(session.Metadata, "quantity"))
	sessionID := session.ID

	_, err = s.orders.Create(ctx, orders.CreateOrderInput{
		UserID:           userID,
		MemoryID:         memoryID,
		ProductKey:       productKey,
		Quantity:         quantity,
		Status:           enums.OrderStatusPaid,
		PaymentSessionID: &sessionID,
		AmountPaidCents:  amountPaid,
	})
	return err
}

func (s *Service) syncSubscription(ctx context.Context, stripeSub *stripe.Subscription) error {
	if stripeSub == nil || stripeSub.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}

	userID := parseMetaInt(stripeSub.Metadata, "user_id")
	packageID := parseMetaInt(stripeSub.Metadata, "package_id")
	if userID <= 0 || packageID <= 0 {
		s.logger.Warn(ctx, "subscription event missing ledger metadata, skipping")
		return nil
	}

	input := subscriptions.UpsertInput{
		UserID:               userID,
		PackageID:            packageID,
		StripeSubscriptionID: stripeSub.ID,
		Status:               mapStripeStatus(stripeSub.Status),
	}
	if stripeSub.Customer != nil {
		input.StripeCustomerID = stripeSub.Customer.ID
	}

	if item := firstItem(stripeSub); item != nil {
		if item.Price != nil {
			input.AmountCents = int(item.Price.UnitAmount)
			if item.Price.Recurring != nil && item.Price.Recurring.Interval == stripe.PriceRecurringIntervalYear {
				input.BillingCycle = enums.BillingCycleYearly
			}
		}
		if item.CurrentPeriodStart > 0 {
			start := time.Unix(item.CurrentPeriodStart, 0).UTC().Format(time.RFC3339)
			input.CurrentPeriodStart = &start
		}
		if item.CurrentPeriodEnd > 0 {
			end := time.Unix(item.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339)
			input.CurrentPeriodEnd = &end
		}
	}

	_, err := s.subscriptions.CreateOrUpdate(ctx, input)
	return err
}

func (s *Service) markFromInvoice(ctx context.Context, event *stripe.Event, status enums.SubscriptionStatus) error {
	subscriptionID := event.GetObjectValue("subscription")
	if subscriptionID == "" {
		subscriptionID = event.GetObjectValue("parent", "subscription_details", "subscription")
	}
	if subscriptionID == "" {
		s.logger.Warn(ctx, "invoice event without subscription id, skipping")
		return nil
	}
	return s.markByStripeID(ctx, subscriptionID, status)
}

func (s *Service) markByStripeID(ctx context.Context, stripeSubscriptionID string, status enums.SubscriptionStatus) error {
	updated, err := s.subscriptions.MarkStatusByStripeID(ctx, stripeSubscriptionID, status)
	if err != nil {
		return err
	}
	if !updated {
		s.logger.Warn(ctx, fmt.Sprintf("no ledger row for stripe subscription %s", stripeSubscriptionID))
	}
	return nil
}

func firstItem(sub *stripe.Subscription) *stripe.SubscriptionItem {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	return sub.Items.Data[0]
}

// mapStripeStatus folds the provider's status vocabulary into the ledger's.
// trialing counts as active; unpaid keeps the recoverable past_due shape.
func mapStripeStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return enums.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return enums.SubscriptionStatusCancelled
	default:
		return enums.SubscriptionStatusActive
	}
}

func parseMetaInt(metadata map[string]string, key string) int64 {
	raw, ok := metadata[key]
	if !ok {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}
