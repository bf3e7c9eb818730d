package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/asgard/aegis/internal/utils"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeAPIError(w http.ResponseWriter, apiErr *utils.APIError) {
	writeJSON(w, apiErr.Status, map[string]any{
		"success": false,
		"error":   apiErr.Message,
		"code":    apiErr.Code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		writeAPIError(w, utils.WrapAPIError(nil, "BAD_REQUEST", "missing request body", http.StatusBadRequest))
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAPIError(w, utils.WrapAPIError(err, "BAD_REQUEST", "malformed JSON body", http.StatusBadRequest))
		return false
	}
	return true
}
