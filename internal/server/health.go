package server

import (
	"encoding/json"
	"net/http"
	"time"
)

const HealthPath = "/healthz"

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Time: time.Now().UTC()})
	})
}
