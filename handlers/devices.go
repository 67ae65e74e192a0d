package handlers

import (
	"encoding/json"
	"net/http"

	"yatube.dev/yatube/services"
)

type TokenRequest struct {
	Token string `json:"token"`
}

// RegisterDevice stores an FCM token for the viewer's push notifications.
func RegisterDevice(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		err := env.Blog.RegisterDevice(r.Context(), CurrentUser(r), req.Token)
		if ve, ok := services.IsValidation(err); ok {
			http.Error(w, ve.Message, http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "Failed to register FCM token", http.StatusInternalServerError)
			logError("RegisterDevice", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "FCM token registered successfully",
		})
	}
}
