package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/models"
	"github.com/velocevoce/topup/internal/services/converter"
	"github.com/velocevoce/topup/internal/services/phone"
)

// fixedAmounts are the sellable top-up denominations, in euro cents.
var fixedAmounts = []int{500, 1000, 1500, 2000, 2500, 3000, 5000}

const (
	promoBonusHigh       = 2000
	promoBonusHighAmount = 5000
	promoBonusMid        = 1000
	promoBonusMidAmount  = 2000
)

func (h *Handler) CreateOrder(res http.ResponseWriter, req *http.Request) {
	customerID := h.getCustomerIDFromReqContext(req)
	if customerID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	var requestModel models.CreateOrderRequest

	jsonDecoder := json.NewDecoder(req.Body)
	if err := jsonDecoder.Decode(&requestModel); err != nil {
		zap.L().Info("cannot decode create order request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	customer, err := h.storage.GetCustomer(req.Context(), customerID)
	if err != nil {
		zap.L().Info("error get customer: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	if customer.IsBlocked {
		zap.L().Info("blocked customer order rejected", zap.String("customerID", customerID))

		res.WriteHeader(http.StatusForbidden)
		return
	}

	number, err := phone.Normalize(requestModel.Phone)
	if err != nil {
		zap.L().Info("phone validation failed: %w", zap.Error(err))

		res.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	if matched, suggestion := phone.MatchOperator(number, requestModel.Operator); !matched {
		zap.L().Info(
			"operator does not match number prefix",
			zap.String("operator", requestModel.Operator),
			zap.String("suggestion", suggestion),
		)

		res.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	amount := converter.ConvertEuro(requestModel.Amount)
	if !isFixedAmount(amount) {
		zap.L().Info("invalid top-up amount", zap.Float64("amount", requestModel.Amount))

		res.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	if requestModel.IsCredit {
		if status := h.checkCreditAllowed(req, customer, amount); status != http.StatusOK {
			res.WriteHeader(status)
			return
		}
	}

	bonus := 0
	if h.config.PromoActive {
		bonus = promoBonus(amount)
	}

	order := entities.Order{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Phone:      number,
		Operator:   requestModel.Operator,
		Amount:     amount,
		Bonus:      bonus,
		Total:      amount + bonus,
		IsCredit:   requestModel.IsCredit,
		Status:     entities.OrderStatusCharged,
	}

	if err := h.storage.CreateOrder(req.Context(), order); err != nil {
		zap.L().Info("error create order: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	zap.L().Info(
		"order created",
		zap.String("orderID", order.ID),
		zap.String("customerID", customerID),
		zap.String("operator", order.Operator),
		zap.Bool("isCredit", order.IsCredit),
	)

	h.notifier.Notify(
		req.Context(),
		"🆕 New order",
		fmt.Sprintf("Phone: %s\nOperator: %s\nAmount: €%.2f", number, order.Operator, requestModel.Amount),
	)

	response := models.CreateOrderResponse{
		OrderID: order.ID,
		Status:  order.Status,
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusCreated)

	jsonEncoder := json.NewEncoder(res)
	if err := jsonEncoder.Encode(response); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

func (h *Handler) checkCreditAllowed(req *http.Request, customer entities.Customer, amount int) int {
	unsettled, err := h.storage.HasUnsettledCreditOrder(req.Context(), customer.ID)
	if err != nil {
		zap.L().Info("error check unsettled credit order: %w", zap.Error(err))

		return http.StatusInternalServerError
	}

	if unsettled {
		zap.L().Info("customer has unsettled credit order", zap.String("customerID", customer.ID))

		return http.StatusPaymentRequired
	}

	if amount > customer.CreditLimit {
		zap.L().Info(
			"credit limit exceeded",
			zap.String("customerID", customer.ID),
			zap.Int("amount", amount),
			zap.Int("limit", customer.CreditLimit),
		)

		return http.StatusPaymentRequired
	}

	return http.StatusOK
}

func (h *Handler) GetOrders(res http.ResponseWriter, req *http.Request) {
	customerID := h.getCustomerIDFromReqContext(req)
	if customerID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	orders, err := h.storage.GetCustomerOrders(req.Context(), customerID)
	if err != nil {
		zap.L().Info("error get customer orders from database: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	responseOrders := convertOrders(orders)

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	jsonEncoder := json.NewEncoder(res)
	if err := jsonEncoder.Encode(responseOrders); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

func convertOrders(orders []entities.Order) models.GetOrdersResponse {
	responseOrders := make(models.GetOrdersResponse, 0, len(orders))

	for _, order := range orders {
		responseOrder := models.OrderResponse{
			ID:        order.ID,
			Phone:     order.Phone,
			Operator:  order.Operator,
			Amount:    converter.FormatEuro(order.Amount),
			Total:     converter.FormatEuro(order.Total),
			IsCredit:  order.IsCredit,
			Status:    order.Status,
			Message:   order.Message,
			CreatedAt: order.CreatedAt.Format(time.RFC3339),
			UpdatedAt: order.UpdatedAt.Format(time.RFC3339),
		}

		if order.Bonus != 0 {
			responseOrder.Bonus = converter.FormatEuro(order.Bonus)
		}

		responseOrders = append(responseOrders, responseOrder)
	}

	return responseOrders
}

func isFixedAmount(amount int) bool {
	for _, fixed := range fixedAmounts {
		if amount == fixed {
			return true
		}
	}

	return false
}

func promoBonus(amount int) int {
	switch {
	case amount >= promoBonusHighAmount:
		return promoBonusHigh
	case amount >= promoBonusMidAmount:
		return promoBonusMid
	default:
		return 0
	}
}
