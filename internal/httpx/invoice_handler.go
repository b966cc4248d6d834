package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/retailops/checkout-api/internal/checkout"
	"github.com/retailops/checkout-api/internal/redisx"
	"github.com/retailops/checkout-api/internal/shop"
)

type InvoiceHandler struct {
	Service *checkout.Service
	Redis   *redis.Client
	Log     *zap.Logger
}

type AmendReq struct {
	Products []AddItemReq `json:"products"`
}

func (h *InvoiceHandler) Register(r *chi.Mux, auth *Auth) {
	r.Route("/invoice", func(r chi.Router) {
		r.Use(auth.Require)
		r.Post("/", h.commit)
		r.Get("/", h.list)
		r.With(RequireRole(shop.RoleAdmin)).Put("/{id}", h.amend)
	})
}

func (h *InvoiceHandler) commit(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	inv, err := h.Service.Commit(ctx, actor.ID)
	if err != nil {
		respondErr(w, "could not issue invoice", err)
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCartView, actor.ID)).Err()
	}
	respondOK(w, http.StatusCreated, "invoice issued", inv)
}

func (h *InvoiceHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	invoices, err := h.Service.ListInvoices(ctx, actor.ID)
	if err != nil {
		respondErr(w, "could not fetch invoices", err)
		return
	}
	respondOK(w, http.StatusOK, "invoices", invoices)
}

func (h *InvoiceHandler) amend(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	invoiceID := chi.URLParam(r, "id")

	var req AmendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid json"})
		return
	}
	if len(req.Products) == 0 {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "products are required"})
		return
	}
	items := make([]shop.CartItem, 0, len(req.Products))
	for _, p := range req.Products {
		if p.ProductID == "" || p.Quantity < 1 {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "every product needs a productId and a quantity of at least 1"})
			return
		}
		items = append(items, shop.CartItem{ProductID: p.ProductID, Qty: p.Quantity})
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	inv, err := h.Service.Amend(ctx, actor, invoiceID, items)
	if err != nil {
		respondErr(w, "could not amend invoice", err)
		return
	}
	h.Log.Info("invoice amended",
		zap.String("invoice_id", inv.ID), zap.String("admin_id", actor.ID))
	respondOK(w, http.StatusOK, "invoice amended", inv)
}
