package server

import (
	"compress/gzip"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/velocevoce/topup/internal/handler"
	"github.com/velocevoce/topup/internal/middleware"
)

func (s *Server) setupRoutes(handler *handler.Handler) {
	s.setupMiddleware()

	s.mux.Route("/api", func(r chi.Router) {
		r.Post("/register", http.HandlerFunc(handler.Register))
		r.Post("/login", http.HandlerFunc(handler.Login))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Post("/orders", http.HandlerFunc(handler.CreateOrder))
			r.Get("/orders", http.HandlerFunc(handler.GetOrders))
			r.Get("/credit-info", http.HandlerFunc(handler.GetCreditInfo))
			r.Get("/messages", http.HandlerFunc(handler.GetMessages))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(s.config.AdminToken))

			r.Get("/orders", http.HandlerFunc(handler.AdminListOrders))
			r.Put("/orders/{orderID}", http.HandlerFunc(handler.AdminUpdateOrder))
			r.Post("/confirm-payment/{orderID}", http.HandlerFunc(handler.AdminConfirmPayment))
			r.Post("/customers/{customerID}/block", http.HandlerFunc(handler.AdminBlockCustomer))
			r.Post("/customers/{customerID}/unblock", http.HandlerFunc(handler.AdminUnblockCustomer))
			r.Get("/stats", http.HandlerFunc(handler.AdminGetStats))
		})
	})
}

func (s *Server) setupMiddleware() {
	s.mux.Use(
		chiMiddleware.Compress(gzip.BestCompression, "application/json", "text/html", "text/plain"),
	)
}
