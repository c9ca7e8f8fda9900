package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/minibar-selfservice/internal/api/middleware"
	"github.com/example/minibar-selfservice/internal/auth"
)

type RouterConfig struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	JWTService   *auth.JWTService
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	h := cfg.Handlers

	// Kiosk endpoints (no auth)
	mux.HandleFunc("/pin/verify", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.VerifyPIN(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/products/consume", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.ConsumeProducts(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/scan", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.ScanCode(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	adminOnly := middleware.AdminOnly(cfg.JWTService)

	// Rooms: summary is public (the kiosk card renders it after PIN entry),
	// clearing consumption and PIN changes are admin operations.
	mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/summary") && r.Method == http.MethodGet:
			h.RoomSummary(w, r)
		case strings.HasSuffix(path, "/consumption") && r.Method == http.MethodDelete:
			adminOnly(http.HandlerFunc(h.ClearRoomConsumption)).ServeHTTP(w, r)
		case strings.HasSuffix(path, "/pin") && r.Method == http.MethodPut:
			adminOnly(http.HandlerFunc(h.SetRoomPin)).ServeHTTP(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Admin login
	mux.HandleFunc("/admin/login", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			cfg.AuthHandlers.Login(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Admin endpoints
	admin := http.NewServeMux()
	admin.HandleFunc("/items/add", methodHandler(http.MethodPost, h.AddItem))
	admin.HandleFunc("/items/remove", methodHandler(http.MethodPost, h.RemoveItem))
	admin.HandleFunc("/items/update", methodHandler(http.MethodPost, h.UpdateItem))
	admin.HandleFunc("/inventory/reset", methodHandler(http.MethodPost, h.ResetInventory))
	admin.HandleFunc("/inventory", methodHandler(http.MethodGet, h.GetInventory))
	admin.HandleFunc("/history", methodHandler(http.MethodGet, h.GetHistory))
	admin.HandleFunc("/product-codes", methodHandler(http.MethodPost, h.AddProductCode))
	admin.HandleFunc("/product-codes/", methodHandler(http.MethodDelete, h.RemoveProductCode))
	admin.HandleFunc("/previo/ingest", methodHandler(http.MethodPost, h.IngestReservation))
	admin.HandleFunc("/access/recent", methodHandler(http.MethodPost, h.RecordRecentAccess))

	protected := adminOnly(admin)
	for _, prefix := range []string{"/items/", "/inventory", "/inventory/", "/history", "/product-codes", "/product-codes/", "/previo/", "/access/"} {
		mux.Handle(prefix, protected)
	}

	return withLogging(mux)
}

func methodHandler(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
