package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/memowindow/memowindow-backend/api/middleware"
	"github.com/memowindow/memowindow-backend/api/responses"
	"github.com/memowindow/memowindow-backend/api/validators"
	internalsubs "github.com/memowindow/memowindow-backend/internal/subscriptions"
	"github.com/memowindow/memowindow-backend/pkg/enums"
	pkgerrors "github.com/memowindow/memowindow-backend/pkg/errors"
	"github.com/memowindow/memowindow-backend/pkg/logger"
)

type changeSubscriptionRequest struct {
	PackageID    int64  `json:"package_id" validate:"required,gt=0"`
	BillingCycle string `json:"billing_cycle" validate:"omitempty,oneof=monthly yearly"`
}

// UserLimits returns the caller's effective entitlement snapshot.
func UserLimits(svc internalsubs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		limits, err := svc.GetUserLimits(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, limits)
	}
}

// CurrentSubscription returns the caller's ledger row, or null when the user
// has never subscribed.
func CurrentSubscription(svc internalsubs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		view, err := svc.GetUserSubscription(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ChangeSubscription writes the caller's ledger row for the requested
// package. The billing provider webhook normally owns this write; the
// endpoint exists for support tooling and for local development.
func ChangeSubscription(svc internalsubs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var req changeSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalsubs.UpsertInput{
			UserID:    userID,
			PackageID: req.PackageID,
		}
		if req.BillingCycle != "" {
			cycle, err := enums.ParseBillingCycle(req.BillingCycle)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing cycle"))
				return
			}
			input.BillingCycle = cycle
		}

		sub, err := svc.CreateOrUpdate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// CancelSubscription flips the caller's entitling row to cancelled.
func CancelSubscription(svc internalsubs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		cancelled, err := svc.Cancel(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cancelled": cancelled})
	}
}

// ListPackages returns the purchasable tiers. Public; no auth required.
func ListPackages(svc internalsubs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packageList, err := svc.ListAvailablePackages(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, packageList)
	}
}

// PackageBySlug returns one tier by its slug. Public; no auth required.
func PackageBySlug(svc internalsubs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		view, err := svc.GetPackageBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
