package orders

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/memowindow/memowindow-backend/internal/memories"
	"github.com/memowindow/memowindow-backend/internal/products"
	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"github.com/memowindow/memowindow-backend/pkg/enums"
	"github.com/memowindow/memowindow-backend/pkg/errors"
	"github.com/memowindow/memowindow-backend/pkg/logger"
	"gorm.io/gorm"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the order store surface.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Order, error)
	Cancel(ctx context.Context, orderID, userID int64, reason string) (*CancelResult, error)
	Reconcile(ctx context.Context, orderID int64) (*models.Order, error)
	MarkPaid(ctx context.Context, paymentSessionID string, amountPaidCents int) (*models.Order, error)
	MarkFulfilled(ctx context.Context, orderID int64, input FulfillmentInput) (*models.Order, error)
}

// CreateOrderInput carries the fields a caller may set when placing an order.
type CreateOrderInput struct {
	UserID           int64
	MemoryID         int64
	ProductKey       string
	Quantity         int
	Status           enums.OrderStatus
	PaymentSessionID *string
	AmountPaidCents  int
	ShippingAddress  *string
}

// CancelResult reports what a cancellation did.
type CancelResult struct {
	OrderID       int64 `json:"order_id"`
	RefundFlagged bool  `json:"refund_flagged"`
}

// FulfillmentInput carries the print partner's identifiers for a shipped order.
type FulfillmentInput struct {
	FulfillmentOrderID string
	TrackingNumber     string
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo     Repository
	Memories memories.Repository
	Products products.Repository
	Tx       TxRunner
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	memories memories.Repository
	products products.Repository
	tx       TxRunner
	logger   *logger.Logger
}

// NewService builds the order service and validates its dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders: repo is required")
	}
	if params.Memories == nil {
		return nil, fmt.Errorf("orders: memories repo is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("orders: products repo is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("orders: tx runner is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("orders: logger is required")
	}

	return &service{
		repo:     params.Repo,
		memories: params.Memories,
		products: params.Products,
		tx:       params.Tx,
		logger:   params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID <= 0 {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if input.MemoryID <= 0 {
		return nil, errors.New(errors.CodeValidation, "memory id is required")
	}
	if input.ProductKey == "" {
		return nil, errors.New(errors.CodeValidation, "product key is required")
	}

	status := input.Status
	if status == "" {
		status = enums.OrderStatusPending
	}
	if status != enums.OrderStatusPending && status != enums.OrderStatusPaid {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("orders cannot be created in status %q", status))
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	order := &models.Order{
		UserID:           input.UserID,
		MemoryID:         input.MemoryID,
		ProductKey:       input.ProductKey,
		Quantity:         quantity,
		Status:           status,
		PaymentSessionID: input.PaymentSessionID,
		AmountPaidCents:  input.AmountPaidCents,
		ShippingAddress:  input.ShippingAddress,
	}

	s.applyDisplayFields(ctx, order)

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "creating order")
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID), "order created")
	return order, nil
}

// applyDisplayFields fills the denormalized memory/product columns and the
// price snapshot. Missing catalog or memory rows are tolerated; the reconcile
// operation can backfill them later.
func (s *service) applyDisplayFields(ctx context.Context, order *models.Order) {
	if asset, err := s.memories.FindByID(ctx, order.MemoryID); err == nil {
		order.MemoryTitle = &asset.Title
		order.MemoryImageURL = &asset.ImageURL
	} else if !isNotFound(err) {
		s.logger.Warn(ctx, fmt.Sprintf("memory lookup failed for order display fields: %v", err))
	}

	if product, err := s.products.FindByKey(ctx, order.ProductKey); err == nil {
		order.ProductName = &product.Name
		order.UnitPriceCents = product.UnitPriceCents
	} else if !isNotFound(err) {
		s.logger.Warn(ctx, fmt.Sprintf("product lookup failed for order display fields: %v", err))
	}

	order.TotalPriceCents = order.UnitPriceCents * order.Quantity
}

func (s *service) ListForUser(ctx context.Context, userID int64) ([]models.Order, error) {
	if userID <= 0 {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}

	orderList, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing orders")
	}
	return orderList, nil
}

// Cancel removes an order owned by userID. When the order was already paid
// against a payment session, a refund flag row is written in the same
// transaction so the owed refund survives the row deletion.
func (s *service) Cancel(ctx context.Context, orderID, userID int64, reason string) (*CancelResult, error) {
	if orderID <= 0 {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	if userID <= 0 {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}

	result := &CancelResult{OrderID: orderID}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUser(ctx, orderID, userID)
		if err != nil {
			if isNotFound(err) {
				return errors.New(errors.CodeNotFound, "order not found")
			}
			return errors.Wrap(errors.CodeDependency, err, "loading order")
		}

		if !order.Status.IsCancellable() {
			return errors.New(errors.CodeStateConflict,
				fmt.Sprintf("order in status %q cannot be cancelled", order.Status))
		}

		if order.Status == enums.OrderStatusPaid && order.PaymentSessionID != nil && *order.PaymentSessionID != "" {
			flag := &models.RefundFlag{
				OrderID:          order.ID,
				UserID:           order.UserID,
				PaymentSessionID: *order.PaymentSessionID,
				AmountCents:      order.AmountPaidCents,
				Reason:           reason,
			}
			if err := repo.CreateRefundFlag(ctx, flag); err != nil {
				return errors.Wrap(errors.CodeDependency, err, "flagging refund")
			}
			result.RefundFlagged = true
		}

		if err := repo.Delete(ctx, order.ID); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "deleting order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithOrderID(ctx, orderID)
	if result.RefundFlagged {
		ctx = s.logger.WithField(ctx, "refund_flagged", true)
	}
	s.logger.Info(ctx, "order cancelled")
	return result, nil
}

// Reconcile re-resolves the denormalized memory/product columns for one
// order. Rows whose memory or product no longer exists keep their stored
// values, so repeated runs converge.
func (s *service) Reconcile(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order")
	}

	if asset, err := s.memories.FindByID(ctx, order.MemoryID); err == nil {
		order.MemoryTitle = &asset.Title
		order.MemoryImageURL = &asset.ImageURL
	} else if !isNotFound(err) {
		return nil, errors.Wrap(errors.CodeDependency, err, "resolving memory")
	}

	if product, err := s.products.FindByKey(ctx, order.ProductKey); err == nil {
		order.ProductName = &product.Name
		if order.UnitPriceCents == 0 {
			order.UnitPriceCents = product.UnitPriceCents
		}
	} else if !isNotFound(err) {
		return nil, errors.Wrap(errors.CodeDependency, err, "resolving product")
	}

	order.TotalPriceCents = order.UnitPriceCents * order.Quantity

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "saving reconciled order")
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID), "order reconciled")
	return order, nil
}

// MarkPaid promotes the pending order tied to a payment session. Replays for
// an already-paid order return it unchanged.
func (s *service) MarkPaid(ctx context.Context, paymentSessionID string, amountPaidCents int) (*models.Order, error) {
	if paymentSessionID == "" {
		return nil, errors.New(errors.CodeValidation, "payment session id is required")
	}

	order, err := s.repo.FindByPaymentSessionID(ctx, paymentSessionID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "order not found for payment session")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order")
	}

	if order.Status == enums.OrderStatusPaid {
		return order, nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("order in status %q cannot be marked paid", order.Status))
	}

	order.Status = enums.OrderStatusPaid
	order.AmountPaidCents = amountPaidCents

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "saving paid order")
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID), "order marked paid")
	return order, nil
}

// MarkFulfilled records the print partner's shipment of a paid order. Webhook
// replays carrying the same fulfillment reference are accepted silently.
func (s *service) MarkFulfilled(ctx context.Context, orderID int64, input FulfillmentInput) (*models.Order, error) {
	if orderID <= 0 {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	if input.FulfillmentOrderID == "" {
		return nil, errors.New(errors.CodeValidation, "fulfillment order id is required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order")
	}

	if order.Status == enums.OrderStatusFulfilled {
		if order.FulfillmentOrderID != nil && *order.FulfillmentOrderID == input.FulfillmentOrderID {
			return order, nil
		}
		return nil, errors.New(errors.CodeStateConflict, "order already fulfilled by a different reference")
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("order in status %q cannot be fulfilled", order.Status))
	}

	order.Status = enums.OrderStatusFulfilled
	order.FulfillmentOrderID = &input.FulfillmentOrderID
	if input.TrackingNumber != "" {
		order.TrackingNumber = &input.TrackingNumber
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "saving fulfilled order")
	}

	s.logger.Info(s.logger.WithOrderID(ctx, order.ID), "order fulfilled")
	return order, nil
}

func isNotFound(err error) bool {
	return stdErrors.Is(err, gorm.ErrRecordNotFound)
}
