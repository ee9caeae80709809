package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/services/phone"
	"github.com/velocevoce/topup/internal/storage"
)

func (h *Handler) Register(res http.ResponseWriter, req *http.Request) {
	requestModel, err := h.validateAuthorizationRequest(req)
	if err != nil {
		zap.L().Info("error validate register request: %w", zap.Error(err))

		res.WriteHeader(http.StatusBadRequest)
		return
	}

	contactPhone := ""
	if requestModel.Phone != "" {
		contactPhone, err = phone.Normalize(requestModel.Phone)
		if err != nil {
			zap.L().Info("error validate register phone: %w", zap.Error(err))

			res.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	customerID, err := h.storage.CreateCustomer(req.Context(), requestModel.Email, contactPhone, h.generatePasswordHash(requestModel.Password))
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			zap.L().Info("error email already exists: %w", zap.Error(err))

			res.WriteHeader(http.StatusConflict)
			return
		}

		zap.L().Info("error create customer: %w", zap.Error(err))

		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.generateTokenAndSetCookie(res, customerID)
}
