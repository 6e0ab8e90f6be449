package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/config"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/database"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/server"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/stats"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/upload"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

type CampusApp struct {
	log             *log.Logger
	db              database.CampusRepository
	mux             *http.Server
	cs              *server.ChatServer
	uploads         *upload.Store
	stats           stats.StatsProvider
	signingKey      []byte
	allowedOrigins  []string
	generateShortId func() (string, error)
}

func NewCampusApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.CampusRepository, uploads *upload.Store, su stats.StatsProvider, cfg *config.Config) *CampusApp {
	s := &CampusApp{
		log:             logger,
		db:              db,
		cs:              cs,
		uploads:         uploads,
		stats:           su,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/chat/rooms", s.authMiddleware(s.listRooms))
	mux.Handle("POST /api/chat/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("DELETE /api/chat/rooms/{id}", s.authMiddleware(s.deleteRoom))
	mux.Handle("GET /api/chat/messages", s.authMiddleware(s.getMessages))
	mux.Handle("DELETE /api/chat/messages/{id}", s.authMiddleware(s.deleteMessage))
	mux.Handle("POST /api/chat/upload", s.authMiddleware(s.uploadChatAttachment))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *CampusApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CampusApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
