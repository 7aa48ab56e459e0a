package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/busreg/internal/core"
)

// writeError writes the JSON error body shared with the handlers.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
