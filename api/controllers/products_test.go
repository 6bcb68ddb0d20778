package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/memowindow/memowindow-backend/pkg/db/models"
	"github.com/memowindow/memowindow-backend/pkg/types"
	"gorm.io/gorm"
)

type stubProductsCatalog struct {
	active []models.PrintProduct
}

func (s *stubProductsCatalog) FindByKey(ctx context.Context, key string) (*models.PrintProduct, error) {
	for i := range s.active {
		if s.active[i].Key == key {
			return &s.active[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProductsCatalog) ListActive(ctx context.Context) ([]models.PrintProduct, error) {
	return s.active, nil
}

func TestListProductsHandler(t *testing.T) {
	repo := &stubProductsCatalog{active: []models.PrintProduct{
		{Key: "framed_8x10", Name: "Framed 8x10", UnitPriceCents: 4999},
		{Key: "canvas_12x16", Name: "Canvas 12x16", UnitPriceCents: 7950},
	}}
	handler := ListProducts(repo, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	list := body.Data.([]any)
	if len(list) != 2 {
		t.Fatalf("expected two products got %d", len(list))
	}
	first := list[0].(map[string]any)
	if first["key"] != "framed_8x10" || first["unit_price"] != "49.99" {
		t.Fatalf("unexpected product view %v", first)
	}
}

func TestListProductsEmptyCatalog(t *testing.T) {
	handler := ListProducts(&stubProductsCatalog{}, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	list, ok := body.Data.([]any)
	if !ok || len(list) != 0 {
		t.Fatalf("empty catalog must return an empty list got %v", body.Data)
	}
}
