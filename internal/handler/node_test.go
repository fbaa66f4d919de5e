package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"gobchat/internal/model"
)

// insertNode テストデータを直接挿入
func insertNode(t *testing.T, h *Handler, deviceID string, active bool, lastPing time.Time) model.MeshNode {
	t.Helper()

	node := model.MeshNode{
		ID:             uuid.NewString(),
		DeviceID:       deviceID,
		Username:       "tester",
		ConnectionType: model.ConnectionTypeMesh,
		LastPing:       lastPing,
		IsActive:       active,
	}
	if err := h.DB.Create(&node).Error; err != nil {
		t.Fatalf("Failed to insert test node: %v", err)
	}

	return node
}

// TestRegisterMeshNode_New 新規ノード登録テスト
func TestRegisterMeshNode_New(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	payload := map[string]string{
		"device_id":       "d1",
		"username":        "alice",
		"ip_address":      "192.168.1.10",
		"connection_type": "mesh",
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/mesh/nodes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d. Body: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var node model.MeshNode
	json.Unmarshal(w.Body.Bytes(), &node)

	if node.ID == "" {
		t.Error("Expected generated ID, got empty string")
	}

	if !node.IsActive {
		t.Error("New node should be active")
	}

	if node.ConnectionType != model.ConnectionTypeMesh {
		t.Errorf("Expected connection type 'mesh', got %q", node.ConnectionType)
	}

	if node.IPAddress == nil || *node.IPAddress != "192.168.1.10" {
		t.Errorf("Expected ip_address '192.168.1.10', got %v", node.IPAddress)
	}
}

// TestRegisterMeshNode_Existing 再登録はlast_pingを更新してis_activeに戻す
func TestRegisterMeshNode_Existing(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	oldPing := time.Now().UTC().Add(-time.Hour)
	created := insertNode(t, h, "d1", false, oldPing)

	payload := map[string]string{
		"device_id":       "d1",
		"username":        "alice",
		"connection_type": "bluetooth",
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/mesh/nodes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d for existing device, got %d", http.StatusOK, w.Code)
	}

	var node model.MeshNode
	json.Unmarshal(w.Body.Bytes(), &node)

	if node.ID != created.ID {
		t.Errorf("Expected original record ID %s, got %s", created.ID, node.ID)
	}

	var stored model.MeshNode
	if err := h.DB.Where("device_id = ?", "d1").First(&stored).Error; err != nil {
		t.Fatalf("Failed to reload node: %v", err)
	}

	if !stored.IsActive {
		t.Error("Re-registration should set is_active=true")
	}

	if !stored.LastPing.After(oldPing) {
		t.Error("Re-registration should refresh last_ping")
	}

	var count int64
	h.DB.Model(&model.MeshNode{}).Where("device_id = ?", "d1").Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 record for device d1, got %d", count)
	}
}

// TestRegisterMeshNode_MissingConnectionType connection_type 必須チェック
func TestRegisterMeshNode_MissingConnectionType(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	payload := map[string]string{"device_id": "d1", "username": "alice"}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/mesh/nodes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var errResp map[string]string
	json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp["error"] != "connection_type is required" {
		t.Errorf("Expected error 'connection_type is required', got %s", errResp["error"])
	}
}

// TestRegisterMeshNode_UnknownConnectionType 未知のconnection_typeはunknownに正規化される
func TestRegisterMeshNode_UnknownConnectionType(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	payload := map[string]string{
		"device_id":       "d1",
		"username":        "alice",
		"connection_type": "carrier_pigeon",
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/mesh/nodes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	var node model.MeshNode
	json.Unmarshal(w.Body.Bytes(), &node)

	if node.ConnectionType != model.ConnectionTypeUnknown {
		t.Errorf("Expected connection type 'unknown', got %q", node.ConnectionType)
	}
}

// TestGetMeshNodes アクティブなノードのみが返ることを確認
func TestGetMeshNodes(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	now := time.Now().UTC()
	insertNode(t, h, "d1", true, now)
	insertNode(t, h, "d2", false, now)

	req := httptest.NewRequest("GET", "/api/mesh/nodes", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var nodes []model.MeshNode
	json.Unmarshal(w.Body.Bytes(), &nodes)

	if len(nodes) != 1 {
		t.Fatalf("Expected 1 active node, got %d", len(nodes))
	}

	if nodes[0].DeviceID != "d1" {
		t.Errorf("Expected active node d1, got %s", nodes[0].DeviceID)
	}
}

// TestPingMeshNode 連続pingはis_activeを維持したままlast_pingだけ進める
func TestPingMeshNode(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	oldPing := time.Now().UTC().Add(-time.Hour)
	insertNode(t, h, "d1", true, oldPing)

	req := httptest.NewRequest("PUT", "/api/mesh/nodes/d1/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "pinged" {
		t.Errorf("Expected status 'pinged', got %q", resp["status"])
	}

	var afterFirst model.MeshNode
	h.DB.Where("device_id = ?", "d1").First(&afterFirst)

	if !afterFirst.IsActive {
		t.Error("Node should stay active after ping")
	}

	if !afterFirst.LastPing.After(oldPing) {
		t.Error("Ping should advance last_ping")
	}

	// 二回目のpingも同じ結果になる
	req = httptest.NewRequest("PUT", "/api/mesh/nodes/d1/ping", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d on second ping, got %d", http.StatusOK, w.Code)
	}

	var afterSecond model.MeshNode
	h.DB.Where("device_id = ?", "d1").First(&afterSecond)

	if !afterSecond.IsActive {
		t.Error("Node should stay active after repeated pings")
	}

	if afterSecond.LastPing.Before(afterFirst.LastPing) {
		t.Error("Repeated ping should not move last_ping backwards")
	}
}

// TestPingMeshNode_Reactivates 切断済みノードはpingで復帰する
func TestPingMeshNode_Reactivates(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	insertNode(t, h, "d1", false, time.Now().UTC().Add(-time.Hour))

	req := httptest.NewRequest("PUT", "/api/mesh/nodes/d1/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var stored model.MeshNode
	h.DB.Where("device_id = ?", "d1").First(&stored)

	if !stored.IsActive {
		t.Error("Ping should reactivate a disconnected node")
	}
}

// TestPingMeshNode_NotFound 存在しないノードへのpingは404
func TestPingMeshNode_NotFound(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	req := httptest.NewRequest("PUT", "/api/mesh/nodes/d99/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	var errResp map[string]string
	json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp["error"] != "Node not found" {
		t.Errorf("Expected 'Node not found' error, got %s", errResp["error"])
	}

	var count int64
	h.DB.Model(&model.MeshNode{}).Count(&count)
	if count != 0 {
		t.Errorf("NotFound should not create a record, got %d nodes", count)
	}
}

// TestDisconnectMeshNode 切断はレコードを残したままis_active=falseにする
func TestDisconnectMeshNode(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	insertNode(t, h, "d1", true, time.Now().UTC())

	req := httptest.NewRequest("DELETE", "/api/mesh/nodes/d1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "disconnected" {
		t.Errorf("Expected status 'disconnected', got %q", resp["status"])
	}

	var stored model.MeshNode
	if err := h.DB.Where("device_id = ?", "d1").First(&stored).Error; err != nil {
		t.Fatalf("Record should be retained after disconnect: %v", err)
	}

	if stored.IsActive {
		t.Error("Node should be inactive after disconnect")
	}
}

// TestDisconnectMeshNode_NotFound 存在しないノードの切断は404
func TestDisconnectMeshNode_NotFound(t *testing.T) {
	h := newTestHandler(setupTestDB(t))
	router := h.SetupRouter()

	req := httptest.NewRequest("DELETE", "/api/mesh/nodes/d99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	var errResp map[string]string
	json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp["error"] != "Node not found" {
		t.Errorf("Expected 'Node not found' error, got %s", errResp["error"])
	}
}
