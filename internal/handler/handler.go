package handler

import (
	"net/http"

	"github.com/velocevoce/topup/internal/config"
	"github.com/velocevoce/topup/internal/middleware"
	"github.com/velocevoce/topup/internal/notifier"
	"github.com/velocevoce/topup/internal/storage"
)

type Handler struct {
	storage  storage.Storage
	notifier notifier.Notifier
	config   config.Config
}

func NewHandler(storage storage.Storage, notifier notifier.Notifier, config config.Config) *Handler {
	return &Handler{
		storage:  storage,
		notifier: notifier,
		config:   config,
	}
}

func (h *Handler) getCustomerIDFromReqContext(req *http.Request) string {
	customerID, ok := req.Context().Value(middleware.CustomerIDKey{}).(string)
	if !ok {
		return ""
	}

	return customerID
}
