package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/minibar-selfservice/internal/command"
	"github.com/example/minibar-selfservice/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

// Kiosk handlers (no auth)

func (h *Handlers) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var cmd command.VerifyPIN
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := h.cmdHandler.VerifyPIN(r.Context(), cmd)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) ConsumeProducts(w http.ResponseWriter, r *http.Request) {
	var cmd command.ConsumeProducts
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.PIN == "" {
		http.Error(w, "pin is required", http.StatusBadRequest)
		return
	}

	result := h.cmdHandler.ConsumeProducts(r.Context(), cmd)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) ScanCode(w http.ResponseWriter, r *http.Request) {
	var cmd command.ScanCode
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.Code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	result := h.cmdHandler.ScanCode(r.Context(), cmd)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) RoomSummary(w http.ResponseWriter, r *http.Request) {
	room := extractPathParam(r.URL.Path, "/rooms/")
	room = strings.TrimSuffix(room, "/summary")
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	summary := h.queryHandler.RoomSummary(room, time.Now())
	respondJSON(w, http.StatusOK, summary)
}

// Admin handlers

func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddItem
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.Name == "" || cmd.Quantity < 1 {
		http.Error(w, "item_name and quantity >= 1 are required", http.StatusBadRequest)
		return
	}

	if err := h.cmdHandler.AddItem(r.Context(), cmd); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Item added"})
}

func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.RemoveItem
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.Name == "" || cmd.Quantity < 1 {
		http.Error(w, "item_name and quantity >= 1 are required", http.StatusBadRequest)
		return
	}

	success := h.cmdHandler.RemoveItem(r.Context(), cmd)
	respondJSON(w, http.StatusOK, map[string]bool{"success": success})
}

func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateItem
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.Name == "" {
		http.Error(w, "item_name is required", http.StatusBadRequest)
		return
	}

	h.cmdHandler.UpdateItem(r.Context(), cmd)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Item updated"})
}

func (h *Handlers) ResetInventory(w http.ResponseWriter, r *http.Request) {
	h.cmdHandler.ResetInventory(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"message": "Inventory reset"})
}

func (h *Handlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.Inventory())
}

func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.History())
}

func (h *Handlers) AddProductCode(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddProductCode
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.Name == "" {
		http.Error(w, "product_name is required", http.StatusBadRequest)
		return
	}

	if err := h.cmdHandler.AddProductCode(r.Context(), cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Product code added"})
}

func (h *Handlers) RemoveProductCode(w http.ResponseWriter, r *http.Request) {
	codeStr := extractPathParam(r.URL.Path, "/product-codes/")
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		http.Error(w, "invalid product code", http.StatusBadRequest)
		return
	}

	h.cmdHandler.RemoveProductCode(r.Context(), command.RemoveProductCode{Code: code})
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product code removed"})
}

func (h *Handlers) ClearRoomConsumption(w http.ResponseWriter, r *http.Request) {
	room := extractPathParam(r.URL.Path, "/rooms/")
	room = strings.TrimSuffix(room, "/consumption")
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	removed := h.cmdHandler.ClearRoomConsumption(r.Context(), command.ClearRoomConsumption{Room: room})
	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *Handlers) SetRoomPin(w http.ResponseWriter, r *http.Request) {
	room := extractPathParam(r.URL.Path, "/rooms/")
	room = strings.TrimSuffix(room, "/pin")

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if room == "" || req.PIN == "" {
		http.Error(w, "room and pin are required", http.StatusBadRequest)
		return
	}

	h.cmdHandler.SetRoomPin(r.Context(), room, req.PIN)
	respondJSON(w, http.StatusOK, map[string]string{"message": "PIN updated"})
}

func (h *Handlers) IngestReservation(w http.ResponseWriter, r *http.Request) {
	var cmd command.IngestReservation
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.cmdHandler.IngestReservation(r.Context(), cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Reservation ingested"})
}

func (h *Handlers) RecordRecentAccess(w http.ResponseWriter, r *http.Request) {
	var cmd command.RecordRecentAccess
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.PIN == "" || cmd.Room == "" {
		http.Error(w, "pin and room are required", http.StatusBadRequest)
		return
	}

	h.cmdHandler.RecordRecentAccess(cmd)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Access recorded"})
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}
