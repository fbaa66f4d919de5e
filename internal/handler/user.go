package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gobchat/internal/model"
)

// RegisterUser handles POST /api/users
// 同じdevice_idのユーザーが既に存在する場合は last_seen を更新して既存レコードを返す
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	log.Printf("[POST /api/users] Request received from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req model.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[POST /api/users] ❌ Bad Request: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DeviceID == "" {
		log.Printf("[POST /api/users] ❌ Bad Request: missing device_id")
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	now := time.Now().UTC()

	var existing model.User
	err := h.DB.Where("device_id = ?", req.DeviceID).First(&existing).Error
	if err == nil {
		// Refresh activity but return the record as it was registered;
		// a new username in the request does not overwrite the stored one.
		res := h.DB.Model(&model.User{}).
			Where("device_id = ?", req.DeviceID).
			Updates(map[string]interface{}{"last_seen": now, "is_online": true})
		if res.Error != nil {
			log.Printf("[POST /api/users] ❌ Database error: %v", res.Error)
			writeError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}

		log.Printf("[POST /api/users] ✅ Refreshed user: DeviceID=%s", req.DeviceID)
		writeJSON(w, http.StatusOK, existing)
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[POST /api/users] ❌ Database error: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	user := model.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		DeviceID: req.DeviceID,
		LastSeen: now,
		IsOnline: true,
	}

	// device_id はユニークインデックス。二重登録が競合した場合は
	// 挿入ではなく更新として処理され、レコードは一件に収束する
	res := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_seen": now, "is_online": true}),
	}).Create(&user)
	if res.Error != nil {
		log.Printf("[POST /api/users] ❌ Database error: %v", res.Error)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	log.Printf("[POST /api/users] ✅ Registered user: ID=%s, DeviceID=%s", user.ID, user.DeviceID)

	writeJSON(w, http.StatusCreated, user)
}

// GetOnlineUsers handles GET /api/users
func (h *Handler) GetOnlineUsers(w http.ResponseWriter, r *http.Request) {
	log.Printf("[GET /api/users] Request received from %s", r.RemoteAddr)

	var users []model.User
	res := h.DB.Where("is_online = ?", true).Limit(maxListedRecords).Find(&users)
	if res.Error != nil {
		log.Printf("[GET /api/users] ❌ Database error: %v", res.Error)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if users == nil {
		users = []model.User{}
	}

	log.Printf("[GET /api/users] ✅ Returned %d online users", len(users))

	writeJSON(w, http.StatusOK, users)
}

// UpdateUserStatus handles PUT /api/users/{device_id}/status
func (h *Handler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]
	log.Printf("[PUT /api/users/%s/status] Request received from %s", deviceID, r.RemoteAddr)

	raw := r.URL.Query().Get("is_online")
	if raw == "" {
		log.Printf("[PUT /api/users/%s/status] ❌ Bad Request: missing is_online", deviceID)
		writeError(w, http.StatusBadRequest, "is_online is required")
		return
	}

	isOnline, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("[PUT /api/users/%s/status] ❌ Bad Request: invalid is_online %q", deviceID, raw)
		writeError(w, http.StatusBadRequest, "is_online must be a boolean")
		return
	}

	// Check if the user exists
	var user model.User
	if err := h.DB.Where("device_id = ?", deviceID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[PUT /api/users/%s/status] ❌ Not Found", deviceID)
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("[PUT /api/users/%s/status] ❌ Database error: %v", deviceID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	res := h.DB.Model(&model.User{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{"is_online": isOnline, "last_seen": time.Now().UTC()})
	if res.Error != nil {
		log.Printf("[PUT /api/users/%s/status] ❌ Database error: %v", deviceID, res.Error)
		writeError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	log.Printf("[PUT /api/users/%s/status] ✅ Updated: is_online=%t", deviceID, isOnline)

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
