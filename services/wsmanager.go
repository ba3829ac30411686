package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// WSConnManager tracks open WebSocket connections grouped by campus, so a
// mutation event reaches everyone watching that campus's feed.
type WSConnManager struct {
	mu     sync.RWMutex
	byCamp map[string][]*websocket.Conn
	campOf map[*websocket.Conn]string
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		byCamp: make(map[string][]*websocket.Conn),
		campOf: make(map[*websocket.Conn]string),
	}
}

func (m *WSConnManager) Add(campus string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCamp[campus] = append(m.byCamp[campus], conn)
	m.campOf[conn] = campus
}

func (m *WSConnManager) Remove(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campus, ok := m.campOf[conn]
	if !ok {
		return
	}
	delete(m.campOf, conn)
	conns := m.byCamp[campus]
	for i, c := range conns {
		if c == conn {
			m.byCamp[campus] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(m.byCamp[campus]) == 0 {
		delete(m.byCamp, campus)
	}
}

func (m *WSConnManager) Send(campus string, message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.byCamp[campus] {
		_ = conn.WriteMessage(websocket.TextMessage, message)
	}
}

var GlobalWSConnManager = NewWSConnManager()

// BroadcastCampus pushes a small event payload to a campus's connections.
func BroadcastCampus(campus, event, itemID string) {
	msg := struct {
		Event  string `json:"event"`
		ItemID string `json:"item_id"`
		Campus string `json:"campus"`
	}{Event: event, ItemID: itemID, Campus: campus}

	if data, err := json.Marshal(msg); err == nil {
		GlobalWSConnManager.Send(campus, data)
	}
}
