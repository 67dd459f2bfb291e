package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/resilience"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// userMessage turns an action error into text safe to show next to a form.
// Backend detail is logged by the service layer, never displayed.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return sentence(detail(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrAuth):
		if msg := detail(err, domain.ErrAuth); msg != "" {
			return sentence(msg)
		}
		return "Invalid email or password."
	case errors.Is(err, domain.ErrConfiguration):
		return "The dashboard is not configured. Contact the administrator."
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "The authentication service is temporarily unavailable. Try again shortly."
	default:
		return "Something went wrong. Try again later."
	}
}

// detail returns the text after the sentinel's message, e.g.
// "sign in: authentication failed: Invalid login credentials" yields
// "Invalid login credentials".
func detail(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return strings.TrimSpace(msg[i+len(prefix):])
	}
	return ""
}

// sentence capitalizes s and ends it with a period.
func sentence(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
