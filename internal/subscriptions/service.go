package subscriptions

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/memowindow/memowindow-backend/internal/memories"
	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"github.com/memowindow/memowindow-backend/pkg/enums"
	"github.com/memowindow/memowindow-backend/pkg/errors"
	"github.com/memowindow/memowindow-backend/pkg/logger"
	"github.com/memowindow/memowindow-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Free tier limits applied to users without an entitling subscription row.
const (
	FreeTierMemoryLimit     = 3
	FreeTierVoiceCloneLimit = 0
	FreeTierMaxAudioSeconds = 60
)

// Service is the subscription ledger surface.
type Service interface {
	GetUserLimits(ctx context.Context, userID int64) (*UserLimits, error)
	GetUserSubscription(ctx context.Context, userID int64) (*SubscriptionView, error)
	CreateOrUpdate(ctx context.Context, input UpsertInput) (*models.Subscription, error)
	Cancel(ctx context.Context, userID int64) (bool, error)
	MarkStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status enums.SubscriptionStatus) (bool, error)
	ListAvailablePackages(ctx context.Context) ([]PackageView, error)
	GetPackageBySlug(ctx context.Context, slug string) (*PackageView, error)
}

// UserLimits is the effective entitlement snapshot for one user.
type UserLimits struct {
	MemoryLimit     int              `json:"memory_limit"`
	MemoryUsed      int64            `json:"memory_used"`
	VoiceCloneLimit int              `json:"voice_clone_limit"`
	MaxAudioSeconds int              `json:"max_audio_seconds"`
	Features        types.FeatureSet `json:"features"`
	IsSubscribed    bool             `json:"is_subscribed"`
	PackageSlug     *string          `json:"package_slug,omitempty"`
	PackageName     *string          `json:"package_name,omitempty"`
	CanCreateMemory CreateGate       `json:"can_create_memory"`
}

// CreateGate answers whether the next memory upload is allowed.
type CreateGate struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// SubscriptionView is a ledger row joined with its package for API responses.
type SubscriptionView struct {
	ID                 int64                    `json:"id"`
	PackageID          int64                    `json:"package_id"`
	PackageSlug        string                   `json:"package_slug"`
	PackageName        string                   `json:"package_name"`
	Status             enums.SubscriptionStatus `json:"status"`
	BillingCycle       enums.BillingCycle       `json:"billing_cycle"`
	AmountCents        int                      `json:"amount_cents"`
	CurrentPeriodStart *string                  `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *string                  `json:"current_period_end,omitempty"`
}

// PackageView is a catalog tier with display prices.
type PackageView struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Slug            string           `json:"slug"`
	MonthlyPrice    string           `json:"monthly_price"`
	YearlyPrice     string           `json:"yearly_price"`
	Features        types.FeatureSet `json:"features"`
	MemoryLimit     int              `json:"memory_limit"`
	VoiceCloneLimit int              `json:"voice_clone_limit"`
	MaxAudioSeconds int              `json:"max_audio_seconds"`
}

// UpsertInput carries a billing event's subscription state.
type UpsertInput struct {
	UserID               int64
	PackageID            int64
	StripeSubscriptionID string
	StripeCustomerID     string
	Status               enums.SubscriptionStatus
	AmountCents          int
	BillingCycle         enums.BillingCycle
	CurrentPeriodStart   *string
	CurrentPeriodEnd     *string
}

// ServiceParams wires the subscription service dependencies.
type ServiceParams struct {
	Repo     Repository
	Memories memories.Repository
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	memories memories.Repository
	logger   *logger.Logger
}

// NewService builds the subscription service and validates its dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions: repo is required")
	}
	if params.Memories == nil {
		return nil, fmt.Errorf("subscriptions: memories repo is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("subscriptions: logger is required")
	}

	return &service{
		repo:     params.Repo,
		memories: params.Memories,
		logger:   params.Logger,
	}, nil
}

// GetUserLimits resolves the user's effective limits. Users without an
// entitling ledger row get the free tier.
func (s *service) GetUserLimits(ctx context.Context, userID int64) (*UserLimits, error) {
	if userID <= 0 {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}

	used, err := s.memories.CountByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "counting memories")
	}

	limits := &UserLimits{
		MemoryLimit:     FreeTierMemoryLimit,
		VoiceCloneLimit: FreeTierVoiceCloneLimit,
		MaxAudioSeconds: FreeTierMaxAudioSeconds,
		MemoryUsed:      used,
		Features:        types.FeatureSet{},
	}

	sub, err := s.repo.FindByUser(ctx, userID)
	if err != nil && !isNotFound(err) {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading subscription")
	}

	if sub != nil && sub.Status.Entitles() {
		pkg, pkgErr := s.repo.FindPackageByID(ctx, sub.PackageID)
		if pkgErr != nil {
			if !isNotFound(pkgErr) {
				return nil, errors.Wrap(errors.CodeDependency, pkgErr, "loading package")
			}
			// Ledger points at a deleted package. Fall back to the free
			// tier rather than failing the request.
			s.logger.Warn(s.logger.WithUserID(ctx, userID),
				fmt.Sprintf("subscription references missing package %d", sub.PackageID))
		} else {
			limits.MemoryLimit = pkg.MemoryLimit
			limits.VoiceCloneLimit = pkg.VoiceCloneLimit
			limits.MaxAudioSeconds = pkg.MaxAudioSeconds
			limits.Features = pkg.Features
			limits.IsSubscribed = true
			limits.PackageSlug = &pkg.Slug
			limits.PackageName = &pkg.Name
		}
	}

	limits.CanCreateMemory = gateMemoryCreate(limits.MemoryLimit, used)
	return limits, nil
}

func gateMemoryCreate(limit int, used int64) CreateGate {
	if used >= int64(limit) {
		return CreateGate{
			Allowed: false,
			Reason:  fmt.Sprintf("memory limit reached (%d of %d used)", used, limit),
		}
	}
	return CreateGate{Allowed: true}
}

// GetUserSubscription returns the user's ledger row, or nil when the user
// has never subscribed.
func (s *service) GetUserSubscription(ctx context.Context, userID int64) (*SubscriptionView, error) {
	if userID <= 0 {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}

	sub, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading subscription")
	}

	view := &SubscriptionView{
		ID:           sub.ID,
		PackageID:    sub.PackageID,
		Status:       sub.Status,
		BillingCycle: sub.BillingCycle,
		AmountCents:  sub.AmountCents,
	}
	if sub.CurrentPeriodStart != nil {
		start := sub.CurrentPeriodStart.Format(time.RFC3339)
		view.CurrentPeriodStart = &start
	}
	if sub.CurrentPeriodEnd != nil {
		end := sub.CurrentPeriodEnd.Format(time.RFC3339)
		view.CurrentPeriodEnd = &end
	}

	if pkg, pkgErr := s.repo.FindPackageByID(ctx, sub.PackageID); pkgErr == nil {
		view.PackageSlug = pkg.Slug
		view.PackageName = pkg.Name
	} else if !isNotFound(pkgErr) {
		return nil, errors.Wrap(errors.CodeDependency, pkgErr, "loading package")
	}

	return view, nil
}

// CreateOrUpdate writes the user's single ledger row. Repeated calls for the
// same user replace the previous state; the last billing event wins.
func (s *service) CreateOrUpdate(ctx context.Context, input UpsertInput) (*models.Subscription, error) {
	if input.UserID <= 0 {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if input.PackageID <= 0 {
		return nil, errors.New(errors.CodeValidation, "package id is required")
	}

	if _, err := s.repo.FindPackageByID(ctx, input.PackageID); err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.CodeValidation,
				fmt.Sprintf("unknown package id %d", input.PackageID))
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading package")
	}

	status := input.Status
	if status == "" {
		status = enums.SubscriptionStatusActive
	}
	if !status.IsValid() {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("invalid subscription status %q", status))
	}

	cycle := input.BillingCycle
	if cycle == "" {
		cycle = enums.BillingCycleMonthly
	}
	if !cycle.IsValid() {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("invalid billing cycle %q", cycle))
	}

	sub := &models.Subscription{
		UserID:               input.UserID,
		PackageID:            input.PackageID,
		StripeSubscriptionID: input.StripeSubscriptionID,
		StripeCustomerID:     input.StripeCustomerID,
		Status:               status,
		AmountCents:          input.AmountCents,
		BillingCycle:         cycle,
	}
	if input.CurrentPeriodStart != nil {
		start, err := parseTimestamp(*input.CurrentPeriodStart)
		if err != nil {
			return nil, errors.New(errors.CodeValidation, "invalid current_period_start")
		}
		sub.CurrentPeriodStart = start
	}
	if input.CurrentPeriodEnd != nil {
		end, err := parseTimestamp(*input.CurrentPeriodEnd)
		if err != nil {
			return nil, errors.New(errors.CodeValidation, "invalid current_period_end")
		}
		sub.CurrentPeriodEnd = end
	}

	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "writing subscription")
	}

	stored, err := s.repo.FindByUser(ctx, input.UserID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "reloading subscription")
	}

	s.logger.Info(s.logger.WithUserID(ctx, input.UserID), "subscription upserted")
	return stored, nil
}

// Cancel flips the user's entitling row to cancelled. The row is kept so the
// billing history survives; it reports false when there was nothing to cancel.
func (s *service) Cancel(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, errors.New(errors.CodeValidation, "user id is required")
	}

	affected, err := s.repo.UpdateStatus(ctx, userID, enums.SubscriptionStatusCancelled)
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "cancelling subscription")
	}
	if affected == 0 {
		return false, nil
	}

	s.logger.Info(s.logger.WithUserID(ctx, userID), "subscription cancelled")
	return true, nil
}

// MarkStatusByStripeID applies a billing provider status to the row holding
// the given provider subscription id. Unknown ids report false; the provider
// may emit events for subscriptions this ledger never stored. cancelled is
// terminal: a late or replayed event cannot move a cancelled row.
func (s *service) MarkStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status enums.SubscriptionStatus) (bool, error) {
	if stripeSubscriptionID == "" {
		return false, errors.New(errors.CodeValidation, "stripe subscription id is required")
	}
	if !status.IsValid() {
		return false, errors.New(errors.CodeValidation,
			fmt.Sprintf("invalid subscription status %q", status))
	}

	sub, err := s.repo.FindByStripeID(ctx, stripeSubscriptionID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(errors.CodeDependency, err, "loading subscription by stripe id")
	}
	if sub.Status == enums.SubscriptionStatusCancelled {
		s.logger.Warn(s.logger.WithUserID(ctx, sub.UserID),
			fmt.Sprintf("ignoring %s for cancelled subscription %s", status, stripeSubscriptionID))
		return false, nil
	}

	affected, err := s.repo.UpdateStatusByStripeID(ctx, stripeSubscriptionID, status)
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "updating subscription status")
	}
	return affected > 0, nil
}

func (s *service) ListAvailablePackages(ctx context.Context) ([]PackageView, error) {
	packageList, err := s.repo.ListActivePackages(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing packages")
	}

	views := make([]PackageView, 0, len(packageList))
	for i := range packageList {
		views = append(views, packageView(&packageList[i]))
	}
	return views, nil
}

func (s *service) GetPackageBySlug(ctx context.Context, slug string) (*PackageView, error) {
	if slug == "" {
		return nil, errors.New(errors.CodeValidation, "package slug is required")
	}

	pkg, err := s.repo.FindPackageBySlug(ctx, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "package not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading package")
	}

	view := packageView(pkg)
	return &view, nil
}

func packageView(pkg *models.SubscriptionPackage) PackageView {
	features := pkg.Features
	if features == nil {
		features = types.FeatureSet{}
	}
	return PackageView{
		ID:              pkg.ID,
		Name:            pkg.Name,
		Slug:            pkg.Slug,
		MonthlyPrice:    formatPrice(pkg.MonthlyPriceCents),
		YearlyPrice:     formatPrice(pkg.YearlyPriceCents),
		Features:        features,
		MemoryLimit:     pkg.MemoryLimit,
		VoiceCloneLimit: pkg.VoiceCloneLimit,
		MaxAudioSeconds: pkg.MaxAudioSeconds,
	}
}

func formatPrice(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func parseTimestamp(value string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("unparseable timestamp %q", value)
}

func isNotFound(err error) bool {
	return stdErrors.Is(err, gorm.ErrRecordNotFound)
}
