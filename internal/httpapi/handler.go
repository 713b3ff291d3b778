package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"demo/ordercrm/internal/metrics"
	"demo/ordercrm/internal/model"
	"demo/ordercrm/internal/service"
)

const maxWebhookBytes = 5 << 20

type Handler struct {
	svc         *service.Service
	logger      *zap.Logger
	metrics     *metrics.Registry
	serviceName string
	imageURL    string
}

type Options struct {
	ServiceName string
	// ImageURL is a fmt pattern with one %s for the product id.
	ImageURL string
	Logger   *zap.Logger
	Metrics  *metrics.Registry
}

func New(svc *service.Service, opts Options) *Handler {
	h := &Handler{
		svc:         svc,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		serviceName: opts.ServiceName,
		imageURL:    opts.ImageURL,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.metrics == nil {
		h.metrics = metrics.NewRegistry()
	}
	if h.imageURL == "" {
		h.imageURL = "https://via.placeholder.com/150x150?text=Product+%s"
	}
	return h
}

// Routes serves every endpoint both at the root and under /api.
func (h *Handler) Routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", h.health)
	api.HandleFunc("POST /webhook/order", h.webhook)
	api.HandleFunc("POST /webhook/shopify", h.webhook)
	api.HandleFunc("GET /orders", h.listOrders)
	api.HandleFunc("GET /orders/stats", h.stats)
	api.HandleFunc("GET /orders/{id}", h.getOrder)
	api.HandleFunc("PUT /orders/{id}/status", h.updateStatus)
	api.HandleFunc("PUT /orders/{id}/notes", h.updateNotes)
	api.HandleFunc("DELETE /orders/demo/clear", h.clearDemo)
	api.HandleFunc("GET /product/{productId}/image", h.productImage)
	api.Handle("GET /metrics", h.metrics.Handler())

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/", api)
	return requestLogger(h.logger, h.metrics, root)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": h.serviceName})
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		h.fail(w, "Error processing webhook", fmt.Errorf("%w: read body: %w", service.ErrProcessing, err))
		return
	}
	o, err := h.svc.Ingest(r.Context(), "webhook", body)
	if err != nil {
		h.fail(w, "Error processing webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "success",
		"message":  "Order processed successfully",
		"order_id": o.OrderID,
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context(), strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		h.fail(w, "Error fetching orders", err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Error fetching order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}
	id := r.PathValue("id")
	at, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, "Error updating order status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":            "success",
		"message":           "Order status updated successfully",
		"order_id":          id,
		"local_status":      req.Status,
		"status_updated_at": at.Format(time.RFC3339Nano),
	})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) updateNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}
	if err := h.svc.UpdateNotes(r.Context(), r.PathValue("id"), req.Notes); err != nil {
		h.fail(w, "Error updating order notes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Order notes updated successfully"})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, "Error fetching order stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) clearDemo(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ClearDemo(r.Context())
	if err != nil {
		h.fail(w, "Error clearing demo orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Cleared %d demo orders", n),
	})
}

// productImage is a placeholder until the platform's product API is wired in.
func (h *Handler) productImage(w http.ResponseWriter, r *http.Request) {
	id := url.QueryEscape(r.PathValue("productId"))
	writeJSON(w, http.StatusOK, map[string]string{"image_url": fmt.Sprintf(h.imageURL, id)})
}

// fail maps service errors onto the {detail} envelope.
func (h *Handler) fail(w http.ResponseWriter, prefix string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": unwrapMessage(err, service.ErrInvalidStatus)})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Order not found"})
	case errors.Is(err, service.ErrProcessing):
		h.logger.Error(prefix, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": prefix + ": " + unwrapMessage(err, service.ErrProcessing)})
	default:
		h.logger.Error(prefix, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": prefix + ": " + err.Error()})
	}
}

// unwrapMessage strips the sentinel's own text from a wrapped message.
func unwrapMessage(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
