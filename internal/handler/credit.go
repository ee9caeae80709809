package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/credit"
	"github.com/velocevoce/topup/internal/models"
	"github.com/velocevoce/topup/internal/services/converter"
)

func (h *Handler) GetCreditInfo(res http.ResponseWriter, req *http.Request) {
	customerID := h.getCustomerIDFromReqContext(req)
	if customerID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	customer, err := h.storage.GetCustomer(req.Context(), customerID)
	if err != nil {
		zap.L().Info("error get customer: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	level := credit.LevelFor(customer.CreditScore)

	response := models.CreditInfoResponse{
		CreditScore:        customer.CreditScore,
		CreditLevel:        convertLevel(level),
		CreditLimit:        converter.FormatEuro(customer.CreditLimit),
		TotalSpent:         converter.FormatEuro(customer.TotalSpent),
		ConsecutiveSuccess: customer.ConsecutiveSuccess,
	}

	if next, ok := credit.NextLevel(customer.CreditScore); ok {
		nextResponse := convertLevel(next)
		response.NextLevel = &nextResponse
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	jsonEncoder := json.NewEncoder(res)
	if err := jsonEncoder.Encode(response); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}

func convertLevel(level credit.Level) models.CreditLevelResponse {
	return models.CreditLevelResponse{
		Name:       level.Name,
		MinScore:   level.MinScore,
		Limit:      converter.FormatEuro(level.Limit),
		Discount:   level.Discount,
		EntryBonus: converter.FormatEuro(level.EntryBonus),
	}
}
