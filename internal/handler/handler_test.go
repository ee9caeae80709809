package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/require"

	"github.com/velocevoce/topup/internal/config"
	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/middleware"
	"github.com/velocevoce/topup/internal/storage"
)

// fakeStorage embeds the Storage interface so each test only fills in
// the methods its handler path touches.
type fakeStorage struct {
	storage.Storage

	customers map[string]*entities.Customer
	passwords map[string]string
	orders    []entities.Order
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		customers: make(map[string]*entities.Customer),
		passwords: make(map[string]string),
	}
}

func (s *fakeStorage) GetCustomerID(_ context.Context, email string, passwordHash string) (string, error) {
	for id, customer := range s.customers {
		if customer.Email == email && s.passwords[id] == passwordHash {
			return id, nil
		}
	}

	return "", storage.ErrNoRows
}

func (s *fakeStorage) GetCustomer(_ context.Context, customerID string) (entities.Customer, error) {
	customer, ok := s.customers[customerID]
	if !ok {
		return entities.Customer{}, storage.ErrNoRows
	}

	return *customer, nil
}

func (s *fakeStorage) SetCustomerBlocked(_ context.Context, customerID string, blocked bool) error {
	customer, ok := s.customers[customerID]
	if !ok {
		return storage.ErrNoRows
	}

	customer.IsBlocked = blocked

	return nil
}

func (s *fakeStorage) CreateOrder(_ context.Context, order entities.Order) error {
	s.orders = append(s.orders, order)
	return nil
}

type fakeNotifier struct {
	subjects []string
}

func (n *fakeNotifier) Notify(_ context.Context, subject string, _ string) {
	n.subjects = append(n.subjects, subject)
}

func newTestHandler(fake *fakeStorage) *Handler {
	return NewHandler(fake, &fakeNotifier{}, config.Config{PromoActive: true})
}

func (s *fakeStorage) addCustomer(handler *Handler, customer entities.Customer, password string) {
	stored := customer
	s.customers[customer.ID] = &stored
	s.passwords[customer.ID] = handler.generatePasswordHash(password)
}

func authenticatedRequest(method string, target string, body string, customerID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(context.WithValue(req.Context(), middleware.CustomerIDKey{}, customerID))
}

func adminRequest(method string, target string, customerID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("customerID", customerID)

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestLoginRejectsBlockedCustomer(t *testing.T) {
	fake := newFakeStorage()
	handler := newTestHandler(fake)
	fake.addCustomer(handler, entities.Customer{
		ID:        "customer-1",
		Email:     "mario@example.com",
		IsBlocked: true,
	}, "password1")

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"mario@example.com","password":"password1"}`))
	res := httptest.NewRecorder()

	handler.Login(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
	require.Empty(t, res.Result().Cookies())
}

func TestLoginAllowsActiveCustomer(t *testing.T) {
	fake := newFakeStorage()
	handler := newTestHandler(fake)
	fake.addCustomer(handler, entities.Customer{
		ID:    "customer-1",
		Email: "mario@example.com",
	}, "password1")

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"mario@example.com","password":"password1"}`))
	res := httptest.NewRecorder()

	handler.Login(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotEmpty(t, res.Result().Cookies())
}

func TestCreateOrderRejectsBlockedCustomer(t *testing.T) {
	fake := newFakeStorage()
	handler := newTestHandler(fake)
	fake.addCustomer(handler, entities.Customer{ID: "customer-1", IsBlocked: true}, "password1")

	req := authenticatedRequest(
		http.MethodPost, "/api/orders",
		`{"phone":"3331234567","operator":"TIM","amount":10}`,
		"customer-1",
	)
	res := httptest.NewRecorder()

	handler.CreateOrder(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
	require.Empty(t, fake.orders)
}

func TestCreateOrderAllowsActiveCustomer(t *testing.T) {
	fake := newFakeStorage()
	handler := newTestHandler(fake)
	fake.addCustomer(handler, entities.Customer{ID: "customer-1"}, "password1")

	req := authenticatedRequest(
		http.MethodPost, "/api/orders",
		`{"phone":"3331234567","operator":"TIM","amount":10}`,
		"customer-1",
	)
	res := httptest.NewRecorder()

	handler.CreateOrder(res, req)

	require.Equal(t, http.StatusCreated, res.Code)
	require.Len(t, fake.orders, 1)
	require.Equal(t, entities.OrderStatusCharged, fake.orders[0].Status)
	require.Equal(t, 1000, fake.orders[0].Amount)
}

func TestAdminBlockAndUnblockCustomer(t *testing.T) {
	fake := newFakeStorage()
	handler := newTestHandler(fake)
	fake.addCustomer(handler, entities.Customer{ID: "customer-1"}, "password1")

	res := httptest.NewRecorder()
	handler.AdminBlockCustomer(res, adminRequest(http.MethodPost, "/api/admin/customers/customer-1/block", "customer-1"))

	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, fake.customers["customer-1"].IsBlocked)

	res = httptest.NewRecorder()
	handler.AdminUnblockCustomer(res, adminRequest(http.MethodPost, "/api/admin/customers/customer-1/unblock", "customer-1"))

	require.Equal(t, http.StatusOK, res.Code)
	require.False(t, fake.customers["customer-1"].IsBlocked)
}

func TestAdminBlockUnknownCustomer(t *testing.T) {
	handler := newTestHandler(newFakeStorage())

	res := httptest.NewRecorder()
	handler.AdminBlockCustomer(res, adminRequest(http.MethodPost, "/api/admin/customers/missing/block", "missing"))

	require.Equal(t, http.StatusNotFound, res.Code)
}
