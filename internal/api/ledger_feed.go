package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Live Ledger Feed ───────────────────────────────────────────────────────
// Pushes every committed ledger entry to connected dashboards as it happens:
// {type: "ledger_entry", account_id: "...", amount: -30, reason: "purchase_debit"}

// LedgerHub manages subscriber connections for the live ledger feed.
type LedgerHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewLedgerHub creates a new ledger broadcast hub.
func NewLedgerHub() *LedgerHub {
	return &LedgerHub{
		clients: make(map[chan []byte]struct{}),
	}
}

// LedgerEvent is one pushed feed item.
type LedgerEvent struct {
	Type      string `json:"type"` // "ledger_entry"
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"` // Unix epoch
}

// BroadcastEntry pushes a committed ledger entry to all subscribers.
func (h *LedgerHub) BroadcastEntry(e domain.LedgerEntry) {
	h.broadcast(LedgerEvent{
		Type:      "ledger_entry",
		AccountID: e.AccountID,
		Amount:    e.Amount,
		Reason:    string(e.Reason),
		Timestamp: e.CreatedAt.Unix(),
	})
}

func (h *LedgerHub) broadcast(event LedgerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Client too slow — drop message
		}
	}
}

// Subscribe registers a new client. Returns the channel and an unsubscribe func.
func (h *LedgerHub) Subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (h *LedgerHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleSSE serves the live ledger feed via Server-Sent Events.
// GET /api/v1/ledger/live
func (h *LedgerHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	ch, unsub := h.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
