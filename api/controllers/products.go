package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/memowindow/memowindow-backend/api/responses"
	"github.com/memowindow/memowindow-backend/internal/products"
	pkgerrors "github.com/memowindow/memowindow-backend/pkg/errors"
	"github.com/memowindow/memowindow-backend/pkg/logger"
)

type productView struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	UnitPrice      string `json:"unit_price"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

// ListProducts returns the orderable print formats. Public; no auth required.
func ListProducts(repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productList, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products"))
			return
		}

		views := make([]productView, 0, len(productList))
		for _, product := range productList {
			views = append(views, productView{
				Key:            product.Key,
				Name:           product.Name,
				UnitPrice:      displayPrice(product.UnitPriceCents),
				UnitPriceCents: product.UnitPriceCents,
			})
		}
		responses.WriteSuccess(w, views)
	}
}

func displayPrice(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}
