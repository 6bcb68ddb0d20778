package orders

import (
	"context"
	"io"
	"testing"

	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"github.com/memowindow/memowindow-backend/pkg/enums"
	pkgerrors "github.com/memowindow/memowindow-backend/pkg/errors"
	"github.com/memowindow/memowindow-backend/pkg/logger"
	"gorm.io/gorm"
)

type stubOrdersRepo struct {
	orders      map[int64]*models.Order
	nextID      int64
	refundFlags []models.RefundFlag
	deletedIDs  []int64
	createErr   error
	updateErr   error
}

func newStubOrdersRepo(seed ...*models.Order) *stubOrdersRepo {
	repo := &stubOrdersRepo{orders: make(map[int64]*models.Order), nextID: 1}
	for _, order := range seed {
		if order.ID == 0 {
			order.ID = repo.nextID
		}
		if order.ID >= repo.nextID {
			repo.nextID = order.ID + 1
		}
		repo.orders[order.ID] = order
	}
	return repo
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	order.ID = s.nextID
	s.nextID++
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) FindByIDForUser(ctx context.Context, id, userID int64) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok || order.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) FindByPaymentSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.PaymentSessionID != nil && *order.PaymentSessionID == sessionID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) Update(ctx context.Context, order *models.Order) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.orders[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.orders, id)
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func (s *stubOrdersRepo) CreateRefundFlag(ctx context.Context, flag *models.RefundFlag) error {
	s.refundFlags = append(s.refundFlags, *flag)
	return nil
}

type stubMemoriesRepo struct {
	assets map[int64]*models.WaveAsset
	count  int64
}

func (s *stubMemoriesRepo) FindByID(ctx context.Context, id int64) (*models.WaveAsset, error) {
	asset, ok := s.assets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return asset, nil
}

func (s *stubMemoriesRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return s.count, nil
}

type stubProductsRepo struct {
	products map[string]*models.PrintProduct
}

func (s *stubProductsRepo) FindByKey(ctx context.Context, key string) (*models.PrintProduct, error) {
	product, ok := s.products[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubProductsRepo) ListActive(ctx context.Context) ([]models.PrintProduct, error) {
	var out []models.PrintProduct
	for _, product := range s.products {
		out = append(out, *product)
	}
	return out, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo Repository, mem *stubMemoriesRepo, prod *stubProductsRepo) Service {
	t.Helper()

	if mem == nil {
		mem = &stubMemoriesRepo{}
	}
	if prod == nil {
		prod = &stubProductsRepo{}
	}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Memories: mem,
		Products: prod,
		Tx:       stubTxRunner{},
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func strPtr(s string) *string { return &s }

func TestCreateDefaultsAndPriceSnapshot(t *testing.T) {
	repo := newStubOrdersRepo()
	mem := &stubMemoriesRepo{assets: map[int64]*models.WaveAsset{
		42: {ID: 42, UserID: 7, Title: "Grandma's lullaby", ImageURL: "https://cdn/m/42.png"},
	}}
	prod := &stubProductsRepo{products: map[string]*models.PrintProduct{
		"framed_8x10": {Key: "framed_8x10", Name: "Framed Print 8x10", UnitPriceCents: 4500, IsActive: true},
	}}
	svc := newTestService(t, repo, mem, prod)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		UserID:     7,
		MemoryID:   42,
		ProductKey: "framed_8x10",
		Quantity:   0,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending got %s", order.Status)
	}
	if order.Quantity != 1 {
		t.Fatalf("expected quantity default 1 got %d", order.Quantity)
	}
	if order.UnitPriceCents != 4500 || order.TotalPriceCents != 4500 {
		t.Fatalf("unexpected price snapshot %d/%d", order.UnitPriceCents, order.TotalPriceCents)
	}
	if order.MemoryTitle == nil || *order.MemoryTitle != "Grandma's lullaby" {
		t.Fatalf("memory title not denormalized: %v", order.MemoryTitle)
	}
	if order.ProductName == nil || *order.ProductName != "Framed Print 8x10" {
		t.Fatalf("product name not denormalized: %v", order.ProductName)
	}
}

func TestCreateToleratesMissingCatalogRows(t *testing.T) {
	repo := newStubOrdersRepo()
	svc := newTestService(t, repo, nil, nil)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		UserID:     7,
		MemoryID:   42,
		ProductKey: "gone_product",
		Quantity:   2,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.MemoryTitle != nil || order.ProductName != nil {
		t.Fatal("expected display fields to stay empty")
	}
	if order.TotalPriceCents != 0 {
		t.Fatalf("expected zero total got %d", order.TotalPriceCents)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t, newStubOrdersRepo(), nil, nil)

	cases := []CreateOrderInput{
		{MemoryID: 1, ProductKey: "k"},
		{UserID: 1, ProductKey: "k"},
		{UserID: 1, MemoryID: 1},
		{UserID: 1, MemoryID: 1, ProductKey: "k", Status: enums.OrderStatusCancelled},
	}
	for i, input := range cases {
		_, err := svc.Create(context.Background(), input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error got %v", i, err)
		}
	}
}

func TestCancelPendingDeletesWithoutRefundFlag(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{ID: 10, UserID: 7, Status: enums.OrderStatusPending})
	svc := newTestService(t, repo, nil, nil)

	result, err := svc.Cancel(context.Background(), 10, 7, "changed my mind")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.RefundFlagged {
		t.Fatal("pending order must not flag a refund")
	}
	if len(repo.refundFlags) != 0 {
		t.Fatalf("unexpected refund flags %d", len(repo.refundFlags))
	}
	if _, err := repo.FindByID(context.Background(), 10); err != gorm.ErrRecordNotFound {
		t.Fatal("expected order row to be deleted")
	}
}

func TestCancelPaidFlagsRefundThenDeletes(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{
		ID:               11,
		UserID:           7,
		Status:           enums.OrderStatusPaid,
		PaymentSessionID: strPtr("cs_test_123"),
		AmountPaidCents:  4500,
	})
	svc := newTestService(t, repo, nil, nil)

	result, err := svc.Cancel(context.Background(), 11, 7, "damaged frame")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !result.RefundFlagged {
		t.Fatal("expected refund flag")
	}
	if len(repo.refundFlags) != 1 {
		t.Fatalf("expected one refund flag got %d", len(repo.refundFlags))
	}
	flag := repo.refundFlags[0]
	if flag.OrderID != 11 || flag.UserID != 7 || flag.PaymentSessionID != "cs_test_123" {
		t.Fatalf("refund flag mismatch %+v", flag)
	}
	if flag.AmountCents != 4500 {
		t.Fatalf("expected amount 4500 got %d", flag.AmountCents)
	}
	if flag.Reason != "damaged frame" {
		t.Fatalf("expected reason recorded got %q", flag.Reason)
	}
	if len(repo.deletedIDs) != 1 || repo.deletedIDs[0] != 11 {
		t.Fatalf("expected deletion of order 11 got %v", repo.deletedIDs)
	}
}

func TestCancelPaidWithoutSessionSkipsFlag(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{ID: 12, UserID: 7, Status: enums.OrderStatusPaid})
	svc := newTestService(t, repo, nil, nil)

	result, err := svc.Cancel(context.Background(), 12, 7, "")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.RefundFlagged {
		t.Fatal("no payment session means nothing to refund")
	}
}

func TestCancelWrongOwnerIsNotFound(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{ID: 13, UserID: 7, Status: enums.OrderStatusPending})
	svc := newTestService(t, repo, nil, nil)

	_, err := svc.Cancel(context.Background(), 13, 99, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
	if _, findErr := repo.FindByID(context.Background(), 13); findErr != nil {
		t.Fatal("order must survive a foreign cancel attempt")
	}
}

func TestCancelFulfilledIsStateConflict(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{ID: 14, UserID: 7, Status: enums.OrderStatusFulfilled})
	svc := newTestService(t, repo, nil, nil)

	_, err := svc.Cancel(context.Background(), 14, 7, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestReconcileBackfillsDisplayFields(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{
		ID:         20,
		UserID:     7,
		MemoryID:   42,
		ProductKey: "framed_8x10",
		Quantity:   2,
		Status:     enums.OrderStatusPaid,
	})
	mem := &stubMemoriesRepo{assets: map[int64]*models.WaveAsset{
		42: {ID: 42, Title: "First words", ImageURL: "https://cdn/m/42.png"},
	}}
	prod := &stubProductsRepo{products: map[string]*models.PrintProduct{
		"framed_8x10": {Key: "framed_8x10", Name: "Framed Print 8x10", UnitPriceCents: 4500},
	}}
	svc := newTestService(t, repo, mem, prod)

	order, err := svc.Reconcile(context.Background(), 20)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.MemoryTitle == nil || *order.MemoryTitle != "First words" {
		t.Fatalf("memory title not backfilled: %v", order.MemoryTitle)
	}
	if order.UnitPriceCents != 4500 || order.TotalPriceCents != 9000 {
		t.Fatalf("price not backfilled %d/%d", order.UnitPriceCents, order.TotalPriceCents)
	}
}

func TestReconcileSkipsMissingReferences(t *testing.T) {
	title := "kept title"
	repo := newStubOrdersRepo(&models.Order{
		ID:             21,
		UserID:         7,
		MemoryID:       404,
		ProductKey:     "discontinued",
		Quantity:       1,
		UnitPriceCents: 2500,
		MemoryTitle:    &title,
		Status:         enums.OrderStatusPaid,
	})
	svc := newTestService(t, repo, nil, nil)

	order, err := svc.Reconcile(context.Background(), 21)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.MemoryTitle == nil || *order.MemoryTitle != "kept title" {
		t.Fatal("stored title must survive a missing memory")
	}
	if order.TotalPriceCents != 2500 {
		t.Fatalf("expected total from stored unit price got %d", order.TotalPriceCents)
	}
}

func TestReconcileUnknownOrder(t *testing.T) {
	svc := newTestService(t, newStubOrdersRepo(), nil, nil)

	_, err := svc.Reconcile(context.Background(), 999)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestMarkPaidPromotesPendingOrder(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{
		ID:               30,
		UserID:           7,
		Status:           enums.OrderStatusPending,
		PaymentSessionID: strPtr("cs_test_abc"),
	})
	svc := newTestService(t, repo, nil, nil)

	order, err := svc.MarkPaid(context.Background(), "cs_test_abc", 4500)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid got %s", order.Status)
	}
	if order.AmountPaidCents != 4500 {
		t.Fatalf("expected amount recorded got %d", order.AmountPaidCents)
	}

	again, err := svc.MarkPaid(context.Background(), "cs_test_abc", 4500)
	if err != nil {
		t.Fatalf("replay must be accepted got %v", err)
	}
	if again.ID != order.ID {
		t.Fatal("replay must return the same order")
	}
}

func TestMarkFulfilledTransitionsAndReplays(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{ID: 40, UserID: 7, Status: enums.OrderStatusPaid})
	svc := newTestService(t, repo, nil, nil)

	order, err := svc.MarkFulfilled(context.Background(), 40, FulfillmentInput{
		FulfillmentOrderID: "pf-778",
		TrackingNumber:     "1Z999",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.Status != enums.OrderStatusFulfilled {
		t.Fatalf("expected fulfilled got %s", order.Status)
	}
	if order.TrackingNumber == nil || *order.TrackingNumber != "1Z999" {
		t.Fatalf("tracking not recorded: %v", order.TrackingNumber)
	}

	if _, err := svc.MarkFulfilled(context.Background(), 40, FulfillmentInput{FulfillmentOrderID: "pf-778"}); err != nil {
		t.Fatalf("same-reference replay must be accepted got %v", err)
	}

	_, err = svc.MarkFulfilled(context.Background(), 40, FulfillmentInput{FulfillmentOrderID: "pf-999"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestMarkFulfilledRequiresPaid(t *testing.T) {
	repo := newStubOrdersRepo(&models.Order{ID: 41, UserID: 7, Status: enums.OrderStatusPending})
	svc := newTestService(t, repo, nil, nil)

	_, err := svc.MarkFulfilled(context.Background(), 41, FulfillmentInput{FulfillmentOrderID: "pf-1"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}
