package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gobchat/internal/model"
)

// RegisterMeshNode handles POST /api/mesh/nodes
// ユーザー登録と同じfind-or-createパターン。device_idで照合し、
// 既存ノードは last_ping を更新して is_active に戻す
func (h *Handler) RegisterMeshNode(w http.ResponseWriter, r *http.Request) {
	log.Printf("[POST /api/mesh/nodes] Request received from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req model.MeshNodeCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[POST /api/mesh/nodes] ❌ Bad Request: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DeviceID == "" {
		log.Printf("[POST /api/mesh/nodes] ❌ Bad Request: missing device_id")
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	if req.ConnectionType == "" {
		log.Printf("[POST /api/mesh/nodes] ❌ Bad Request: missing connection_type")
		writeError(w, http.StatusBadRequest, "connection_type is required")
		return
	}

	now := time.Now().UTC()

	var existing model.MeshNode
	err := h.DB.Where("device_id = ?", req.DeviceID).First(&existing).Error
	if err == nil {
		res := h.DB.Model(&model.MeshNode{}).
			Where("device_id = ?", req.DeviceID).
			Updates(map[string]interface{}{"last_ping": now, "is_active": true})
		if res.Error != nil {
			log.Printf("[POST /api/mesh/nodes] ❌ Database error: %v", res.Error)
			writeError(w, http.StatusInternalServerError, "Failed to update node")
			return
		}

		log.Printf("[POST /api/mesh/nodes] ✅ Refreshed node: DeviceID=%s", req.DeviceID)
		writeJSON(w, http.StatusOK, existing)
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[POST /api/mesh/nodes] ❌ Database error: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	node := model.MeshNode{
		ID:             uuid.NewString(),
		DeviceID:       req.DeviceID,
		Username:       req.Username,
		IPAddress:      req.IPAddress,
		ConnectionType: model.ParseConnectionType(req.ConnectionType),
		LastPing:       now,
		IsActive:       true,
	}

	res := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_ping": now, "is_active": true}),
	}).Create(&node)
	if res.Error != nil {
		log.Printf("[POST /api/mesh/nodes] ❌ Database error: %v", res.Error)
		writeError(w, http.StatusInternalServerError, "Failed to create node")
		return
	}

	log.Printf("[POST /api/mesh/nodes] ✅ Registered node: ID=%s, DeviceID=%s, Type=%s",
		node.ID, node.DeviceID, node.ConnectionType)

	writeJSON(w, http.StatusCreated, node)
}

// GetMeshNodes handles GET /api/mesh/nodes
func (h *Handler) GetMeshNodes(w http.ResponseWriter, r *http.Request) {
	log.Printf("[GET /api/mesh/nodes] Request received from %s", r.RemoteAddr)

	var nodes []model.MeshNode
	res := h.DB.Where("is_active = ?", true).Limit(maxListedRecords).Find(&nodes)
	if res.Error != nil {
		log.Printf("[GET /api/mesh/nodes] ❌ Database error: %v", res.Error)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if nodes == nil {
		nodes = []model.MeshNode{}
	}

	log.Printf("[GET /api/mesh/nodes] ✅ Returned %d active nodes", len(nodes))

	writeJSON(w, http.StatusOK, nodes)
}

// PingMeshNode handles PUT /api/mesh/nodes/{device_id}/ping
func (h *Handler) PingMeshNode(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]
	log.Printf("[PUT /api/mesh/nodes/%s/ping] Request received from %s", deviceID, r.RemoteAddr)

	// Check if the node exists
	var node model.MeshNode
	if err := h.DB.Where("device_id = ?", deviceID).First(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[PUT /api/mesh/nodes/%s/ping] ❌ Not Found", deviceID)
			writeError(w, http.StatusNotFound, "Node not found")
			return
		}
		log.Printf("[PUT /api/mesh/nodes/%s/ping] ❌ Database error: %v", deviceID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	res := h.DB.Model(&model.MeshNode{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{"last_ping": time.Now().UTC(), "is_active": true})
	if res.Error != nil {
		log.Printf("[PUT /api/mesh/nodes/%s/ping] ❌ Database error: %v", deviceID, res.Error)
		writeError(w, http.StatusInternalServerError, "Failed to ping node")
		return
	}

	log.Printf("[PUT /api/mesh/nodes/%s/ping] ✅ Pinged", deviceID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "pinged"})
}

// DisconnectMeshNode handles DELETE /api/mesh/nodes/{device_id}
// レコードは削除せず is_active=false にするだけ
func (h *Handler) DisconnectMeshNode(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]
	log.Printf("[DELETE /api/mesh/nodes/%s] Request received from %s", deviceID, r.RemoteAddr)

	var node model.MeshNode
	if err := h.DB.Where("device_id = ?", deviceID).First(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[DELETE /api/mesh/nodes/%s] ❌ Not Found", deviceID)
			writeError(w, http.StatusNotFound, "Node not found")
			return
		}
		log.Printf("[DELETE /api/mesh/nodes/%s] ❌ Database error: %v", deviceID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	res := h.DB.Model(&model.MeshNode{}).
		Where("device_id = ?", deviceID).
		Update("is_active", false)
	if res.Error != nil {
		log.Printf("[DELETE /api/mesh/nodes/%s] ❌ Database error: %v", deviceID, res.Error)
		writeError(w, http.StatusInternalServerError, "Failed to disconnect node")
		return
	}

	log.Printf("[DELETE /api/mesh/nodes/%s] ✅ Disconnected", deviceID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
