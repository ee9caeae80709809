package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/models"
)

func (h *Handler) GetMessages(res http.ResponseWriter, req *http.Request) {
	customerID := h.getCustomerIDFromReqContext(req)
	if customerID == "" {
		res.WriteHeader(http.StatusUnauthorized)
		return
	}

	messages, err := h.storage.GetCustomerMessages(req.Context(), customerID)
	if err != nil {
		zap.L().Info("error get customer messages: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(messages) == 0 {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	responseMessages := make(models.GetMessagesResponse, 0, len(messages))
	for _, message := range messages {
		responseMessages = append(responseMessages, models.SiteMessageResponse{
			Type:      message.Type,
			Title:     message.Title,
			Content:   message.Content,
			OrderID:   message.OrderID,
			IsRead:    message.IsRead,
			CreatedAt: message.CreatedAt.Format(time.RFC3339),
		})
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)

	jsonEncoder := json.NewEncoder(res)
	if err := jsonEncoder.Encode(responseMessages); err != nil {
		zap.L().Info("cannot encode response JSON body: %w", zap.Error(err))
	}
}
