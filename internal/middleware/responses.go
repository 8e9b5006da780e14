package middleware

import (
	"net/http"

	"kulhadcafe.in/site/internal/httpx"
)

func writeError(w http.ResponseWriter, r *http.Request, code int, errCode, msg string) {
	if IsHTMX(r.Context()) {
		httpx.WriteError(r.Context(), w, httpx.NewError(errCode, msg, code))
		return
	}
	http.Error(w, msg, code)
}
