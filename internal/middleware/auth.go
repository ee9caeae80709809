package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/velocevoce/topup/internal/services/jwttoken"
)

type CustomerIDKey struct{}

const TokenCookieName = "token"

func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		tokenCookie, err := req.Cookie(TokenCookieName)
		if err != nil {
			if err == http.ErrNoCookie {
				resp.WriteHeader(http.StatusUnauthorized)
				return
			}

			resp.WriteHeader(http.StatusInternalServerError)
			return
		}

		customerID, err := jwttoken.Parse(tokenCookie.Value)
		if err != nil {
			resp.WriteHeader(http.StatusUnauthorized)
			return
		}

		req = req.WithContext(context.WithValue(req.Context(), CustomerIDKey{}, customerID))

		next.ServeHTTP(resp, req)
	})
}

// AdminAuth guards the operator endpoints with the static admin token.
func AdminAuth(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			if adminToken == "" {
				resp.WriteHeader(http.StatusUnauthorized)
				return
			}

			token := req.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				resp.WriteHeader(http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(resp, req)
		})
	}
}
