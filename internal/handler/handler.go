package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"gobchat/internal/config"
)

// maxListedRecords は一覧取得で返す最大レコード数
const maxListedRecords = 100

// Handler holds application dependencies
type Handler struct {
	DB     *gorm.DB
	Config config.Config
}

// New creates a new Handler with the given dependencies
func New(db *gorm.DB, cfg config.Config) *Handler {
	return &Handler{
		DB:     db,
		Config: cfg,
	}
}

// SetupRouter configures and returns the HTTP router.
// All endpoints live under the /api prefix.
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	// Messages
	api.HandleFunc("/messages", h.SendMessage).Methods("POST")
	api.HandleFunc("/messages", h.GetMessages).Methods("GET")
	api.HandleFunc("/messages", h.ClearMessages).Methods("DELETE")

	// Users
	api.HandleFunc("/users", h.RegisterUser).Methods("POST")
	api.HandleFunc("/users", h.GetOnlineUsers).Methods("GET")
	api.HandleFunc("/users/{device_id}/status", h.UpdateUserStatus).Methods("PUT")

	// Mesh nodes
	api.HandleFunc("/mesh/nodes", h.RegisterMeshNode).Methods("POST")
	api.HandleFunc("/mesh/nodes", h.GetMeshNodes).Methods("GET")
	api.HandleFunc("/mesh/nodes/{device_id}/ping", h.PingMeshNode).Methods("PUT")
	api.HandleFunc("/mesh/nodes/{device_id}", h.DisconnectMeshNode).Methods("DELETE")

	// Health
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")

	return r
}

// writeJSON serializes v as the response body with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error payload with the given status
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
