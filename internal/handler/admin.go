package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/credit"
	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/models"
	"github.com/velocevoce/topup/internal/services/converter"
	"github.com/velocevoce/topup/internal/storage"
)

const adminOrdersPerPage = 20

func (h *Handler) AdminListOrders(res http.ResponseWriter, req *http.Request) {
	page, err := strconv.Atoi(req.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	status := req.URL.Query().Get("status")

	orders, total, err := h.storage.ListOrders(req.Context(), status, adminOrdersPerPage, (page-1)*adminOrdersPerPage)
	if err != nil {
		zap.L().Info("error list orders: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	response := models.AdminListOrdersResponse{
		Orders: convertOrders(orders),
		Total:  total,
		Page:   page,
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	jsonEncoder := json.NewEncoder(res)
	if err := jsonEncoder.Encode(response); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

// AdminUpdateOrder sets an order's status directly. A completed status
// runs the credit engine and writes the customer-facing records, same
// as the fulfillment worker's success path.
func (h *Handler) AdminUpdateOrder(res http.ResponseWriter, req *http.Request) {
	orderID := chi.URLParam(req, "orderID")

	var requestModel models.AdminUpdateOrderRequest

	jsonDecoder := json.NewDecoder(req.Body)
	if err := jsonDecoder.Decode(&requestModel); err != nil {
		zap.L().Info("cannot decode update order request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	order, err := h.storage.GetOrder(req.Context(), orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNoRows) {
			res.WriteHeader(http.StatusNotFound)
			return
		}

		zap.L().Info("error get order: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch requestModel.Status {
	case entities.OrderStatusCompleted:
		err = h.completeOrder(req, order, requestModel.Message)
	case entities.OrderStatusFailed:
		err = h.failOrder(req, order, requestModel.Message)
	default:
		err = h.storage.UpdateOrderStatus(req.Context(), orderID, requestModel.Status, requestModel.Message)
	}

	if err != nil {
		zap.L().Info("error update order: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	zap.L().Info("admin updated order", zap.String("orderID", orderID), zap.String("status", requestModel.Status))

	res.WriteHeader(http.StatusOK)
}

func (h *Handler) completeOrder(req *http.Request, order entities.Order, message string) error {
	customer, err := h.storage.GetCustomer(req.Context(), order.CustomerID)
	if err != nil {
		return fmt.Errorf("error get customer for credit update: %w", err)
	}

	state, result := credit.Apply(credit.State{
		Score:              customer.CreditScore,
		TotalSpent:         customer.TotalSpent,
		ConsecutiveSuccess: customer.ConsecutiveSuccess,
		Milestone100:       customer.Milestone100,
		Milestone300:       customer.Milestone300,
	}, order.Amount, order.IsCredit)

	customer.CreditScore = state.Score
	customer.TotalSpent = state.TotalSpent
	customer.ConsecutiveSuccess = state.ConsecutiveSuccess
	customer.Milestone100 = state.Milestone100
	customer.Milestone300 = state.Milestone300
	customer.CreditLevel = result.NewLevel.Name
	customer.CreditLimit = result.NewLevel.Limit

	if err := h.storage.CompleteOrder(req.Context(), order, message, customer); err != nil {
		return err
	}

	siteMessage := entities.SiteMessage{
		CustomerID: order.CustomerID,
		Type:       entities.SiteMessageTypeSuccess,
		Title:      fmt.Sprintf("Top-up of €%.2f completed", converter.FormatEuro(order.Amount)),
		Content:    fmt.Sprintf("Number %s was recharged with €%.2f.", order.Phone, converter.FormatEuro(order.Amount)),
		OrderID:    order.ID,
	}

	if err := h.storage.CreateSiteMessage(req.Context(), siteMessage); err != nil {
		zap.L().Info("error create site message: %w", zap.Error(err))
	}

	h.notifier.Notify(
		req.Context(),
		"✅ Order completed",
		fmt.Sprintf("Order: %s\nPhone: %s\nAmount: €%.2f", order.ShortID(), order.Phone, converter.FormatEuro(order.Amount)),
	)

	return nil
}

func (h *Handler) failOrder(req *http.Request, order entities.Order, message string) error {
	if err := h.storage.UpdateOrderStatus(req.Context(), order.ID, entities.OrderStatusFailed, message); err != nil {
		return err
	}

	reason := message
	if reason == "" {
		reason = "unknown"
	}

	siteMessage := entities.SiteMessage{
		CustomerID: order.CustomerID,
		Type:       entities.SiteMessageTypeError,
		Title:      fmt.Sprintf("Top-up of €%.2f failed", converter.FormatEuro(order.Amount)),
		Content:    fmt.Sprintf("Recharge of %s failed, reason: %s", order.Phone, reason),
		OrderID:    order.ID,
	}

	if err := h.storage.CreateSiteMessage(req.Context(), siteMessage); err != nil {
		zap.L().Info("error create site message: %w", zap.Error(err))
	}

	return nil
}

// AdminConfirmPayment acknowledges a manual payment and moves the order
// towards execution, going through the same slot guard as the dispatch
// worker. With the slot occupied the order queues in holding.
func (h *Handler) AdminConfirmPayment(res http.ResponseWriter, req *http.Request) {
	orderID := chi.URLParam(req, "orderID")

	order, err := h.storage.GetOrder(req.Context(), orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNoRows) {
			res.WriteHeader(http.StatusNotFound)
			return
		}

		zap.L().Info("error get order: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	if order.Status != entities.OrderStatusAwaitingPayment {
		zap.L().Info(
			"confirm payment on order not awaiting payment",
			zap.String("orderID", orderID),
			zap.String("status", order.Status),
		)

		res.WriteHeader(http.StatusConflict)
		return
	}

	promoted, err := h.storage.PromoteToProcessing(req.Context(), order.ID, order.CustomerID)
	if err != nil {
		zap.L().Info("error confirm payment: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	zap.L().Info(
		"payment confirmed",
		zap.String("orderID", orderID),
		zap.Bool("promoted", promoted),
	)

	res.WriteHeader(http.StatusOK)
}

// AdminBlockCustomer suspends a customer account: login and new orders
// are rejected until the account is unblocked. In-flight orders keep
// going through the pipeline.
func (h *Handler) AdminBlockCustomer(res http.ResponseWriter, req *http.Request) {
	h.setCustomerBlocked(res, req, true)
}

func (h *Handler) AdminUnblockCustomer(res http.ResponseWriter, req *http.Request) {
	h.setCustomerBlocked(res, req, false)
}

func (h *Handler) setCustomerBlocked(res http.ResponseWriter, req *http.Request, blocked bool) {
	customerID := chi.URLParam(req, "customerID")

	if err := h.storage.SetCustomerBlocked(req.Context(), customerID, blocked); err != nil {
		if errors.Is(err, storage.ErrNoRows) {
			res.WriteHeader(http.StatusNotFound)
			return
		}

		zap.L().Info("error set customer blocked: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	zap.L().Info(
		"admin changed customer block state",
		zap.String("customerID", customerID),
		zap.Bool("blocked", blocked),
	)

	res.WriteHeader(http.StatusOK)
}

func (h *Handler) AdminGetStats(res http.ResponseWriter, req *http.Request) {
	stats, err := h.storage.GetStats(req.Context())
	if err != nil {
		zap.L().Info("error get stats: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	response := models.StatsResponse{
		TotalCustomers:  stats.TotalCustomers,
		TotalOrders:     stats.TotalOrders,
		CompletedOrders: stats.CompletedOrders,
		PendingOrders:   stats.PendingOrders,
		TotalRevenue:    converter.FormatEuro(stats.Revenue),
		TodayOrders:     stats.TodayOrders,
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	jsonEncoder := json.NewEncoder(res)
	if err := jsonEncoder.Encode(response); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}
