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

type CartHandler struct {
	Service *checkout.Service
	Redis   *redis.Client
	Log     *zap.Logger
}

type AddItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) Register(r *chi.Mux, auth *Auth) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(auth.Require)
		r.Post("/", h.create)
		r.Put("/add", h.add)
		r.Get("/", h.get)
		r.Delete("/", h.cancel)
	})
}

func (h *CartHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cart, err := h.Service.CreateCart(ctx, actor.ID)
	if err != nil {
		respondErr(w, "could not create cart", err)
		return
	}
	respondOK(w, http.StatusCreated, "cart created", shop.CartView{UserID: cart.UserID, Total: cart.Total})
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req AddItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid json"})
		return
	}
	if req.ProductID == "" || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "productId and a quantity of at least 1 are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.Service.AddItem(ctx, actor.ID, req.ProductID, req.Quantity)
	if err != nil {
		respondErr(w, "could not add product to cart", err)
		return
	}

	h.cacheView(ctx, actor.ID, view)
	respondOK(w, http.StatusOK, "product added to cart", view)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyCartView, actor.ID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			var view shop.CartView
			if err := json.Unmarshal([]byte(s), &view); err == nil {
				respondOK(w, http.StatusOK, "cart", view)
				return
			}
		}
	}

	view, err := h.Service.GetCart(ctx, actor.ID)
	if err != nil {
		respondErr(w, "could not fetch cart", err)
		return
	}
	h.cacheView(ctx, actor.ID, view)
	respondOK(w, http.StatusOK, "cart", view)
}

func (h *CartHandler) cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Cancel(ctx, actor.ID); err != nil {
		respondErr(w, "could not cancel cart", err)
		return
	}
	h.dropView(ctx, actor.ID)
	respondOK(w, http.StatusOK, "cart cancelled and stock restored", nil)
}

func (h *CartHandler) cacheView(ctx context.Context, userID string, view shop.CartView) {
	if h.Redis == nil {
		return
	}
	b, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyCartView, userID), b, redisx.TTLCartView).Err(); err != nil {
		h.Log.Debug("cart cache set failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (h *CartHandler) dropView(ctx context.Context, userID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCartView, userID)).Err()
}
