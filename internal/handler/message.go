package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"gobchat/internal/model"
)

// defaultMessageLimit は room_id 指定時のデフォルト取得件数
const defaultMessageLimit = 50

// SendMessage handles POST /api/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	log.Printf("[POST /api/messages] Request received from %s", r.RemoteAddr)

	// リクエストボディサイズを1MBに制限
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req model.MessageCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[POST /api/messages] ❌ Bad Request: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Text is required for message creation
	if req.Text == "" {
		log.Printf("[POST /api/messages] ❌ Bad Request: missing or empty text")
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	roomID := req.RoomID
	if roomID == "" {
		roomID = "global"
	}

	msg := model.Message{
		ID:          uuid.NewString(),
		Text:        req.Text,
		Timestamp:   time.Now().UTC(),
		SenderID:    req.SenderID,
		Username:    req.Username,
		MessageType: model.ParseMessageType(req.MessageType),
		MediaData:   req.MediaData,
		RoomID:      roomID,
	}

	if res := h.DB.Create(&msg); res.Error != nil {
		log.Printf("[POST /api/messages] ❌ Database error: %v", res.Error)
		writeError(w, http.StatusInternalServerError, "Failed to create message")
		return
	}

	// Broadcasting to mesh peers would happen here; for now the
	// message is only stored and returned to the sender.
	log.Printf("[POST /api/messages] ✅ Created message: ID=%s, Room=%s", msg.ID, msg.RoomID)

	writeJSON(w, http.StatusCreated, msg)
}

// GetMessages handles GET /api/messages
// 最新limit件を取得し、時系列昇順に並べ替えて返す
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	log.Printf("[GET /api/messages] Request received from %s", r.RemoteAddr)

	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		roomID = "global"
	}

	limit := defaultMessageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			log.Printf("[GET /api/messages] ❌ Bad Request: invalid limit %q", raw)
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var msgList []model.Message
	res := h.DB.Where("room_id = ?", roomID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&msgList)
	if res.Error != nil {
		log.Printf("[GET /api/messages] ❌ Database error: %v", res.Error)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Newest-first from the store; reverse for chronological order
	for i, j := 0, len(msgList)-1; i < j; i, j = i+1, j-1 {
		msgList[i], msgList[j] = msgList[j], msgList[i]
	}

	if msgList == nil {
		msgList = []model.Message{}
	}

	log.Printf("[GET /api/messages] ✅ Returned %d messages from room %s", len(msgList), roomID)

	writeJSON(w, http.StatusOK, msgList)
}

// ClearMessages handles DELETE /api/messages
func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		roomID = "global"
	}

	log.Printf("[DELETE /api/messages] Request received from %s (room %s)", r.RemoteAddr, roomID)

	res := h.DB.Where("room_id = ?", roomID).Delete(&model.Message{})
	if res.Error != nil {
		log.Printf("[DELETE /api/messages] ❌ Database error: %v", res.Error)
		writeError(w, http.StatusInternalServerError, "Failed to clear messages")
		return
	}

	log.Printf("[DELETE /api/messages] ✅ Deleted %d messages from room %s", res.RowsAffected, roomID)

	writeJSON(w, http.StatusOK, map[string]int64{"deleted_count": res.RowsAffected})
}
