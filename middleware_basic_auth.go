package main

import (
	"crypto/subtle"
	"net/http"
)

// basicAuth is a chi middleware which allows only requests with given
// credentials.
func basicAuth(user, password string) func(http.Handler) http.Handler {
	userBytes := []byte(user)
	passwordBytes := []byte(password)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			reqUser, reqPassword, _ := req.BasicAuth()

			if subtle.ConstantTimeCompare(userBytes, []byte(reqUser))+
				subtle.ConstantTimeCompare(passwordBytes, []byte(reqPassword)) == 2 {
				next.ServeHTTP(w, req)

				return
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="tracemap"`)
			http.Error(w, "Authentication is required", http.StatusUnauthorized)
		})
	}
}
