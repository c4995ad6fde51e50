// Package web provides the HTTP server and routing
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"music-downloader/internal/config"
	"music-downloader/internal/web/handlers"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	handlers *handlers.Handlers
	logger   *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, h *handlers.Handlers, sessions SessionEnsurer) *Server {
	limiter := newClientLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	creations := newClientLimiter(rate.Every(sessionCreateInterval), sessionCreateBurst)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/session", h.Session)
	api.HandleFunc("POST /api/check-urls", limiter.middleware(h.CheckURLs))
	api.HandleFunc("POST /api/download", limiter.middleware(h.SubmitDownload))
	api.HandleFunc("GET /api/status", h.Status)
	api.HandleFunc("GET /api/stats", h.Stats)
	api.HandleFunc("GET /api/config", h.Config)
	api.HandleFunc("GET /api/files", h.DownloadAll)
	api.HandleFunc("GET /api/files/{download_id}", h.DownloadFile)
	api.HandleFunc("GET /api/ws", h.Push)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("/api/", withSession(sessions, cfg.SessionTTL, creations, api))

	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No write timeout: archives of whole playlists stream for longer than any fixed bound
		IdleTimeout: 60 * time.Second,
	}

	return &Server{
		server:   server,
		handlers: h,
		logger:   slog.Default(),
	}
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	localIP := getLocalIP()
	port := strings.TrimPrefix(s.server.Addr, ":")

	s.logger.Info("Starting HTTP server",
		"addr", s.server.Addr,
		"local_ip", localIP,
		"port", port,
		"url", fmt.Sprintf("http://%s:%s", localIP, port))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// getLocalIP returns the first private IPv4 address, preferring 192.168.*
func getLocalIP() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}

	fallback := ""
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}
			if strings.HasPrefix(ip.String(), "192.168.") {
				return ip.String()
			}
			if fallback == "" && isPrivate(ip) {
				fallback = ip.String()
			}
		}
	}

	if fallback != "" {
		return fallback
	}
	return "localhost"
}

// isPrivate reports whether ip is in 10.0.0.0/8 or 172.16.0.0/12
func isPrivate(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	return ip4[0] == 10 || (ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31)
}
