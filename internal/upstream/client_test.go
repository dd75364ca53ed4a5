package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, 5*time.Second, zap.NewNop())
	require.NoError(t, err)
	return client, srv
}

func setCSRFCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-123", Path: "/"})
}

func TestListProducts_ParsesQuotedAndBarePrices(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/productos/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{"id": 1, "nombre": "Taza", "precio_unitario": "5000.00", "stock_actual": 3, "stock_minimo": 1},
				{"id": 2, "nombre": "Plato", "precio_unitario": 8000, "stock_actual": 0, "stock_minimo": 2}
			],
			"count": 2
		}`))
	}))

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "Taza", products[0].Name)
	assert.True(t, products[0].UnitPrice.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 3, products[0].CurrentStock)
	assert.Equal(t, 1, products[0].MinStock)
	assert.True(t, products[0].InStock())

	assert.True(t, products[1].UnitPrice.Equal(decimal.NewFromInt(8000)))
	assert.False(t, products[1].InStock())
}

func TestListProducts_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))

	_, err := client.ListProducts(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestListProducts_Unauthenticated(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "no autenticado"}`))
	}))

	_, err := client.ListProducts(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "no autenticado", apiErr.Detail)
}

func TestMutatingCall_PrimesAndSendsCSRFToken(t *testing.T) {
	var gotToken string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/csrf/":
			setCSRFCookie(w)
			w.Write([]byte(`{"csrf": "ok"}`))
		case "/api/logout/":
			gotToken = r.Header.Get("X-CSRFToken")
			w.Write([]byte(`{"ok": true}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	require.NoError(t, client.Logout(context.Background()))
	assert.Equal(t, "tok-123", gotToken, "csrf token from the cookie must ride the mutating call")
}

func TestLogin_StoresSessionAndReturnsActor(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/csrf/":
			setCSRFCookie(w)
			w.Write([]byte(`{"csrf": "ok"}`))
		case "/api/login-view/":
			var body struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "masacotta", body.Username)

			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sess-1", Path: "/"})
			w.Write([]byte(`{"ok": true, "user": {"id": 9, "username": "masacotta", "rol": "ADMIN"}}`))
		case "/api/whoami/":
			cookie, err := r.Cookie("sessionid")
			require.NoError(t, err, "session cookie must be replayed")
			assert.Equal(t, "sess-1", cookie.Value)
			w.Write([]byte(`{"id": 9, "username": "masacotta", "rol": "ADMIN"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	actor, err := client.Login(context.Background(), "masacotta", "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(9), actor.ID)
	assert.Equal(t, "masacotta", actor.Username)
	assert.Equal(t, "ADMIN", actor.Role)

	same, err := client.WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, actor, same)
}

func TestLogin_BadCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/csrf/" {
			setCSRFCookie(w)
			w.Write([]byte(`{"csrf": "ok"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "credenciales inválidas"}`))
	}))

	_, err := client.Login(context.Background(), "masacotta", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "credenciales inválidas", apiErr.Detail)
}

func TestBreaker_OpensAfterConsecutiveServerErrors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 5; i++ {
		_, err := client.ListProducts(context.Background())
		require.Error(t, err)
	}

	_, err := client.ListProducts(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestRestock_ReturnsUpdatedProduct(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/csrf/":
			setCSRFCookie(w)
			w.Write([]byte(`{"csrf": "ok"}`))
		case "/api/productos/add/":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.EqualValues(t, 1, body["producto_id"])
			assert.EqualValues(t, 5, body["cantidad"])

			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"ok": true, "producto": {"id": 1, "nombre": "Taza", "precio_unitario": "5000.00", "stock_actual": 8, "stock_minimo": 1}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	id := int64(1)
	product, err := client.Restock(context.Background(), RestockRequest{ProductID: &id, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 8, product.CurrentStock)
}

func TestDeleteProduct_ConflictWhenSalesExist(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/csrf/" {
			setCSRFCookie(w)
			w.Write([]byte(`{"csrf": "ok"}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail": "No se puede eliminar: el producto tiene ventas asociadas."}`))
	}))

	err := client.DeleteProduct(context.Background(), 1, false)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestDashboardSummary_Decodes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/dashboard/summary/", r.URL.Path)
		w.Write([]byte(`{
			"period": {"year": 2026, "month": 9},
			"ventas_mes": {"value": 120000.0, "delta_pct_vs_prev": 12.5},
			"inventario": {"units": 340},
			"ventas_por_mes": [{"year": 2026, "month": 8, "total": 100000.0}],
			"top_productos_mes": [{"producto": "Taza", "unidades": 20}]
		}`))
	}))

	summary, err := client.DashboardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2026, summary.Period.Year)
	require.NotNil(t, summary.MonthSales.DeltaPct)
	assert.InDelta(t, 12.5, *summary.MonthSales.DeltaPct, 0.001)
	assert.Equal(t, 340, summary.Inventory.Units)
	require.Len(t, summary.TopProducts, 1)
	assert.Equal(t, "Taza", summary.TopProducts[0].Product)
}
