package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/logging"
	"github.com/Harky911/ReolinkANPR/internal/store"
)

// apiServer exposes daemon status and stored events over HTTP. It is strictly
// read-only: all sighting writes go through the pipeline's dedup contract.
type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/events", srv.handleEvents)
	mux.HandleFunc("/api/events/", srv.handleEvent)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listen address, for tests using port 0.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

type eventView struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	PlateNumber    string    `json:"plate_number"`
	Confidence     float64   `json:"confidence"`
	ImagePath      string    `json:"image_path"`
	PlateCropPath  string    `json:"plate_crop_path"`
	BoxCoordinates string    `json:"box_coordinates"`
	FrameCount     int       `json:"frame_count"`
}

type eventListResponse struct {
	Events []eventView `json:"events"`
	Total  int         `json:"total"`
}

func viewOf(event store.Event) eventView {
	return eventView{
		ID:             event.ID,
		Timestamp:      event.Timestamp,
		PlateNumber:    event.PlateNumber,
		Confidence:     event.Confidence,
		ImagePath:      event.ImagePath,
		PlateCropPath:  event.PlateCropPath,
		BoxCoordinates: event.BoxCoordinates,
		FrameCount:     event.FrameCount,
	}
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	filter := store.ListFilter{
		Search: query.Get("search"),
		Period: query.Get("period"),
		Limit:  limit,
		Offset: offset,
	}

	events, total, err := s.daemon.store.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, viewOf(event))
	}
	s.writeJSON(w, http.StatusOK, eventListResponse{Events: views, Total: total})
}

func (s *apiServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/events/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "event not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	event, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if event == nil {
		s.writeError(w, http.StatusNotFound, "event not found")
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(*event))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
