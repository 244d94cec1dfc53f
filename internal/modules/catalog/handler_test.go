package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/catalog-backend/internal/modules/events"
)

type stockResponse struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error"`
	Product *Product `json:"product"`
}

func setupRouter(t *testing.T, repo Repository) (*chi.Mux, Service) {
	t.Helper()
	svc := NewService(repo, events.Nop{})
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	return r, svc
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postForm(t *testing.T, h http.Handler, target string, v url.Values) *httptest.ResponseRecorder {
	return do(t, h, http.MethodPost, target, "application/x-www-form-urlencoded", v.Encode())
}

func listJSON(t *testing.T, h http.Handler) []*Product {
	t.Helper()
	rr := do(t, h, http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var products []*Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &products))
	return products
}

func findByName(products []*Product, name string) *Product {
	for _, p := range products {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func TestEndToEndCatalogFlow(t *testing.T) {
	r, svc := setupRouter(t, NewMemoryRepository())

	n, err := svc.Seed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	products := listJSON(t, r)
	require.Len(t, products, 2)
	require.NotNil(t, findByName(products, "T-Shirt"))
	require.NotNil(t, findByName(products, "Sneakers"))

	rr := postForm(t, r, "/add", url.Values{
		"name":     {"Hat"},
		"price":    {"9.99"},
		"category": {"Accessories"},
		"variants": {`[{"color":"Red","size":"M","stock":3}]`},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	products = listJSON(t, r)
	require.Len(t, products, 3)
	hat := findByName(products, "Hat")
	require.NotNil(t, hat)
	assert.NotEmpty(t, hat.ID)
	assert.True(t, hat.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, "Accessories", hat.Category)
	require.Len(t, hat.Variants, 1)
	assert.Equal(t, "Red", hat.Variants[0].Color)
	assert.Equal(t, "M", hat.Variants[0].Size)
	assert.Equal(t, 3, hat.Variants[0].Stock)

	rr = do(t, r, http.MethodPost, "/update-stock/"+hat.ID, "application/json", `{"variantIndex":0,"stock":0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp stockResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.NotNil(t, resp.Product)
	assert.Equal(t, 0, resp.Product.Variants[0].Stock)

	rr = do(t, r, http.MethodGet, "/products/"+hat.ID, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var refetched Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &refetched))
	want := hat.Clone()
	want.Variants[0].Stock = 0
	assert.Equal(t, want.Variants, refetched.Variants)
	assert.Equal(t, want.Name, refetched.Name)
	assert.Equal(t, want.Category, refetched.Category)
	assert.True(t, want.Price.Equal(refetched.Price))

	rr = postForm(t, r, "/delete/"+hat.ID, nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	products = listJSON(t, r)
	assert.Len(t, products, 2)
	assert.Nil(t, findByName(products, "Hat"))
}

func TestAddProductJSONBody(t *testing.T) {
	r, _ := setupRouter(t, NewMemoryRepository())

	rr := do(t, r, http.MethodPost, "/add", "application/json; charset=utf-8",
		`{"name":"Scarf","price":12.5,"category":"Accessories","variants":[{"color":"Grey","size":"L","stock":2}]}`)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(t, r, http.MethodPost, "/add", "application/json",
		`{"name":"Cap","price":"4","category":"Accessories","variants":"[]"}`)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	products := listJSON(t, r)
	require.Len(t, products, 2)
	scarf := findByName(products, "Scarf")
	require.NotNil(t, scarf)
	assert.True(t, scarf.Price.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, scarf.Variants, 1)
	capProduct := findByName(products, "Cap")
	require.NotNil(t, capProduct)
	assert.Empty(t, capProduct.Variants)
}

func TestAddProductRejectsMalformedVariants(t *testing.T) {
	cases := map[string]string{
		"truncated":       `[{"color":"Red",`,
		"trailing ]":      `[{"color":"R","size":"M","stock":1}]]`,
		"trailing }":      `[{"color":"R","size":"M","stock":1}]}`,
		"trailing ] only": `[]]`,
	}
	for name, variants := range cases {
		t.Run(name, func(t *testing.T) {
			repo := NewMemoryRepository()
			r, _ := setupRouter(t, repo)

			rr := postForm(t, r, "/add", url.Values{
				"name":     {"Hat"},
				"price":    {"9.99"},
				"category": {"Accessories"},
				"variants": {variants},
			})
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Empty(t, rr.Header().Get("Location"))
			assert.Contains(t, rr.Body.String(), "invalid variants JSON")
			assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")

			n, err := repo.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestAddProductRejectsTrailingJSONBody(t *testing.T) {
	repo := NewMemoryRepository()
	r, _ := setupRouter(t, repo)
	rr := do(t, r, http.MethodPost, "/add", "application/json",
		`{"name":"Hat","price":1,"category":"c","variants":[]}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddProductRejectsUnboundedPrice(t *testing.T) {
	repo := NewMemoryRepository()
	r, _ := setupRouter(t, repo)
	for _, price := range []string{"1e50000000", "1e2000000000", "1e-50000000", "0.0000001"} {
		rr := postForm(t, r, "/add", url.Values{"name": {"n"}, "price": {price}, "category": {"c"}})
		assert.Equal(t, http.StatusBadRequest, rr.Code, price)
		assert.Contains(t, rr.Body.String(), "price", price)
	}
	rr := do(t, r, http.MethodPost, "/add", "application/json", `{"name":"n","price":1e50000000,"category":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddProductMultipartForm(t *testing.T) {
	repo := NewMemoryRepository()
	r, _ := setupRouter(t, repo)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"name":     "Hat",
		"price":    "9.99",
		"category": "Accessories",
		"variants": `[{"color":"Red","size":"M","stock":3}]`,
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	rr := do(t, r, http.MethodPost, "/add", mw.FormDataContentType(), buf.String())
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())

	products := listJSON(t, r)
	require.Len(t, products, 1)
	assert.Equal(t, "Hat", products[0].Name)
	require.Len(t, products[0].Variants, 1)
	assert.Equal(t, 3, products[0].Variants[0].Stock)
}

func TestListProductsEmitsNumericPrice(t *testing.T) {
	r, _ := setupRouter(t, NewMemoryRepository())
	rr := postForm(t, r, "/add", url.Values{"name": {"Hat"}, "price": {"9.99"}, "category": {"Accessories"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(t, r, http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, 9.99, raw[0]["price"])
}

func TestAddProductRejectsInvalidFields(t *testing.T) {
	repo := NewMemoryRepository()
	r, _ := setupRouter(t, repo)

	cases := map[string]url.Values{
		"missing name":   {"price": {"1"}, "category": {"c"}, "variants": {"[]"}},
		"bad price":      {"name": {"n"}, "price": {"free"}, "category": {"c"}},
		"negative price": {"name": {"n"}, "price": {"-1"}, "category": {"c"}},
		"negative stock": {"name": {"n"}, "price": {"1"}, "category": {"c"}, "variants": {`[{"color":"R","size":"M","stock":-1}]`}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			rr := postForm(t, r, "/add", form)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddProductStorageFailure(t *testing.T) {
	repo := &failingRepo{Repository: NewMemoryRepository(), createErr: errors.New("connection refused")}
	r, _ := setupRouter(t, repo)
	rr := postForm(t, r, "/add", url.Values{"name": {"n"}, "price": {"1"}, "category": {"c"}})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "connection refused")
}

func TestUpdateStockErrors(t *testing.T) {
	repo := NewMemoryRepository()
	r, svc := setupRouter(t, repo)
	p, err := svc.CreateProduct(context.Background(), hatRequest())
	require.NoError(t, err)

	cases := []struct {
		name, target, contentType, body string
		status                          int
	}{
		{"unknown product", "/update-stock/missing", "application/json", `{"variantIndex":0,"stock":1}`, http.StatusNotFound},
		{"index out of range", "/update-stock/" + p.ID, "application/json", `{"variantIndex":2,"stock":1}`, http.StatusBadRequest},
		{"negative stock", "/update-stock/" + p.ID, "application/json", `{"variantIndex":0,"stock":-1}`, http.StatusBadRequest},
		{"non-numeric stock", "/update-stock/" + p.ID, "application/json", `{"variantIndex":0,"stock":"many"}`, http.StatusBadRequest},
		{"missing stock", "/update-stock/" + p.ID, "application/json", `{"variantIndex":0}`, http.StatusBadRequest},
		{"trailing body data", "/update-stock/" + p.ID, "application/json", `{"variantIndex":0,"stock":1}]`, http.StatusBadRequest},
		{"form non-numeric", "/update-stock/" + p.ID, "application/x-www-form-urlencoded", "variantIndex=0&stock=x", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, r, http.MethodPost, tc.target, tc.contentType, tc.body)
			require.Equal(t, tc.status, rr.Code)
			var resp stockResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.False(t, resp.OK)
			assert.NotEmpty(t, resp.Error)
		})
	}

	stored, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, stored)
}

func TestUpdateStockForm(t *testing.T) {
	r, svc := setupRouter(t, NewMemoryRepository())
	p, err := svc.CreateProduct(context.Background(), hatRequest())
	require.NoError(t, err)

	rr := postForm(t, r, "/update-stock/"+p.ID, url.Values{"variantIndex": {"1"}, "stock": {"42"}})
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Variants[0].Stock)
	assert.Equal(t, 42, stored.Variants[1].Stock)
}

func TestUpdateStockStorageFailure(t *testing.T) {
	repo := &failingRepo{Repository: NewMemoryRepository()}
	r, svc := setupRouter(t, repo)
	p, err := svc.CreateProduct(context.Background(), hatRequest())
	require.NoError(t, err)
	repo.updateErr = errors.New("replica set unavailable")

	rr := do(t, r, http.MethodPost, "/update-stock/"+p.ID, "application/json", `{"variantIndex":0,"stock":1}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "replica set unavailable")
}

func TestDeleteUnknownProductRedirects(t *testing.T) {
	r, _ := setupRouter(t, NewMemoryRepository())
	rr := postForm(t, r, "/delete/does-not-exist", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestDeleteStorageFailure(t *testing.T) {
	repo := &failingRepo{Repository: NewMemoryRepository(), deleteErr: errors.New("timeout")}
	r, _ := setupRouter(t, repo)
	rr := postForm(t, r, "/delete/x", nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp stockResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "timeout", resp.Error)
}

func TestListProductsEmptyAndFailure(t *testing.T) {
	r, _ := setupRouter(t, NewMemoryRepository())
	rr := do(t, r, http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	broken, _ := setupRouter(t, &failingRepo{Repository: NewMemoryRepository(), listErr: errors.New("down")})
	rr = do(t, broken, http.MethodGet, "/products", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	rr = do(t, broken, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGetProductNotFound(t *testing.T) {
	r, _ := setupRouter(t, NewMemoryRepository())
	rr := do(t, r, http.MethodGet, "/products/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIndexRendersProductsAndForm(t *testing.T) {
	r, svc := setupRouter(t, NewMemoryRepository())
	_, err := svc.Seed(context.Background())
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), CreateProductRequest{
		Name: "<script>", Price: decimal.NewFromInt(1), Category: "x",
	})
	require.NoError(t, err)

	rr := do(t, r, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	assert.Contains(t, body, "T-Shirt")
	assert.Contains(t, body, "Sneakers")
	assert.Contains(t, body, "Red / M: 10 in stock")
	assert.Contains(t, body, `action="/add"`)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, NewMemoryRepository())
	rr := do(t, r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
