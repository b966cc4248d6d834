package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/retailops/checkout-api/internal/redisx"
	"github.com/retailops/checkout-api/internal/shop"
)

type ProductHandler struct {
	Repo      *shop.ProductRepo
	Redis     *redis.Client
	Threshold int
	Log       *zap.Logger
}

type CreateProductReq struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func (h *ProductHandler) Register(r *chi.Mux, auth *Auth) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/lowstock", h.lowStock)
		r.With(auth.Require, RequireRole(shop.RoleAdmin)).Post("/", h.create)
	})
}

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid json"})
		return
	}
	if req.Name == "" || req.Price.IsNegative() || req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "name, a non-negative price and non-negative stock are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.Create(ctx, req.Name, req.Description, req.Brand, req.Price, req.Stock)
	if err != nil {
		respondErr(w, "could not create product", err)
		return
	}
	respondOK(w, http.StatusCreated, "product created", p)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Repo.List(ctx)
	if err != nil {
		respondErr(w, "could not fetch products", err)
		return
	}
	respondOK(w, http.StatusOK, "products", ps)
}

// lowStock prefers the set the stockwatch consumer maintains in Redis and
// falls back to a direct query when the set is empty or Redis is down.
func (h *ProductHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		if ids, err := h.Redis.SMembers(ctx, redisx.KeyLowStock).Result(); err == nil && len(ids) > 0 {
			ps, err := h.Repo.ByIDs(ctx, ids)
			if err == nil {
				respondOK(w, http.StatusOK, "low stock products", ps)
				return
			}
			h.Log.Debug("low-stock set resolve failed", zap.Error(err))
		}
	}

	ps, err := h.Repo.LowStock(ctx, h.Threshold)
	if err != nil {
		respondErr(w, "could not fetch low stock products", err)
		return
	}
	respondOK(w, http.StatusOK, "low stock products", ps)
}
