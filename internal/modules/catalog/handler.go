package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// Handler exposes catalog HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/", h.index)
	r.Get("/healthz", h.health)
	r.Post("/add", h.addProduct)
	r.Get("/products", h.listProducts)
	r.Get("/products/{productId}", h.getProduct)
	r.Post("/update-stock/{productId}", h.updateStock)
	r.Post("/delete/{productId}", h.deleteProduct)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	renderIndex(w, products)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		respond(w, statusFor(err), errorBody(err))
		return
	}
	respond(w, http.StatusOK, p)
}

// addProduct answers with plain text on failure because it is driven by the
// HTML form; success redirects back to the listing.
func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req, err := decodeCreateRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.service.CreateProduct(r.Context(), req); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	index, stock, err := decodeStockRequest(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorBody(err))
		return
	}
	p, err := h.service.UpdateVariantStock(r.Context(), chi.URLParam(r, "productId"), index, stock)
	if err != nil {
		respond(w, statusFor(err), errorBody(err))
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"ok": true, "product": p})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "productId")); err != nil {
		respond(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps catalog errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidVariantIndex),
		errors.Is(err, ErrMalformedVariants),
		IsValidation(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorBody(err error) map[string]interface{} {
	return map[string]interface{}{"ok": false, "error": err.Error()}
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func isJSON(r *http.Request) bool { return mediaType(r) == "application/json" }

// parseForm handles both urlencoded and multipart/form-data bodies.
func parseForm(r *http.Request) error {
	if mediaType(r) == "multipart/form-data" {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

type createBody struct {
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Category string          `json:"category"`
	Variants json.RawMessage `json:"variants"`
}

func decodeCreateRequest(r *http.Request) (CreateProductRequest, error) {
	var (
		name, category string
		priceText      string
		variantsRaw    []byte
	)
	if isJSON(r) {
		var body createBody
		if err := decodeOne(json.NewDecoder(r.Body), &body); err != nil {
			return CreateProductRequest{}, fmt.Errorf("invalid request body: %w", err)
		}
		var err error
		if priceText, err = unquote(body.Price); err != nil {
			return CreateProductRequest{}, invalid("price", "must be a number")
		}
		text, err := unquote(body.Variants)
		if err != nil {
			return CreateProductRequest{}, fmt.Errorf("%w: %v", ErrMalformedVariants, err)
		}
		name, category, variantsRaw = body.Name, body.Category, []byte(text)
	} else {
		if err := parseForm(r); err != nil {
			return CreateProductRequest{}, fmt.Errorf("invalid form: %w", err)
		}
		name = r.FormValue("name")
		priceText = r.FormValue("price")
		category = r.FormValue("category")
		variantsRaw = []byte(r.FormValue("variants"))
	}

	variants, err := ParseVariants(variantsRaw)
	if err != nil {
		return CreateProductRequest{}, err
	}
	price, err := ParsePrice(priceText)
	if err != nil {
		return CreateProductRequest{}, err
	}
	return CreateProductRequest{Name: name, Price: price, Category: category, Variants: variants}, nil
}

// unquote turns a JSON string value into its text and leaves any other raw
// value (number, array, null) as-is. A missing value becomes "".
func unquote(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] != '"' {
		return string(raw), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func decodeStockRequest(r *http.Request) (index, stock int, err error) {
	if isJSON(r) {
		var body struct {
			VariantIndex *int `json:"variantIndex"`
			Stock        *int `json:"stock"`
		}
		if err := decodeOne(json.NewDecoder(r.Body), &body); err != nil {
			return 0, 0, fmt.Errorf("invalid request body: %w", err)
		}
		if body.VariantIndex == nil {
			return 0, 0, invalid("variantIndex", "is required")
		}
		if body.Stock == nil {
			return 0, 0, invalid("stock", "is required")
		}
		return *body.VariantIndex, *body.Stock, nil
	}
	if err := parseForm(r); err != nil {
		return 0, 0, fmt.Errorf("invalid form: %w", err)
	}
	if index, err = ParseInt("variantIndex", r.FormValue("variantIndex")); err != nil {
		return 0, 0, err
	}
	if stock, err = ParseInt("stock", r.FormValue("stock")); err != nil {
		return 0, 0, err
	}
	return index, stock, nil
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
