// Package messenger serves device status and selection over HTTP and pushes
// status changes to websocket clients.
package messenger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phinze/wallpanel/internal/event"
	"github.com/phinze/wallpanel/internal/routing"
	"github.com/phinze/wallpanel/internal/selectable"
	"github.com/phinze/wallpanel/internal/windowing"
	"golang.org/x/sync/errgroup"
)

// FullStatusRequest is the websocket text message that asks for the full
// status to be sent again.
const FullStatusRequest = "/fullStatus"

const shutdownTimeout = 5 * time.Second

// Device is a controller served by the messenger.
type Device interface {
	Key() string
	Snapshot() windowing.Status
	Group(screen uint) (*selectable.Group, bool)
	SetWindowLayout(layout int) error
	ExecuteNumericSwitch(input, output uint, sig routing.SignalType) error
}

// Params holds the parameters for NewServer.
type Params struct {
	Devices []Device
	Bus     *event.Bus
	// APIToken, if set, is required as a bearer token on POST requests.
	APIToken string
	Logger   *slog.Logger
}

// Server is the messenger HTTP server.
type Server struct {
	devices  map[string]Device
	bus      *event.Bus
	apiToken string
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// NewServer creates a messenger server.
func NewServer(params Params) *Server {
	s := &Server{
		devices:  make(map[string]Device, len(params.Devices)),
		bus:      params.Bus,
		apiToken: params.APIToken,
		logger:   params.Logger.With("component", "messenger"),
		clients:  make(map[uuid.UUID]*client),
	}
	for _, d := range params.Devices {
		s.devices[d.Key()] = d
	}
	return s
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /device/{key}/fullStatus", s.handleFullStatus)
	mux.HandleFunc("GET /device/{key}/ws", s.handleWebSocket)
	mux.HandleFunc("GET /device/{id}", s.handleScreen)
	mux.HandleFunc("POST /device/{id}/select", s.requireToken(s.handleSelect))
	mux.HandleFunc("POST /device/{key}/layout", s.requireToken(s.handleLayout))
	mux.HandleFunc("POST /device/{key}/route", s.requireToken(s.handleRoute))
	return mux
}

// Run serves HTTP on lis and pushes bus events to websocket clients until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Registered before serving so no change made through the API is missed.
	eventsC := s.bus.Register()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		defer s.bus.Deregister(eventsC)
		s.forwardEvents(ctx, eventsC)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("errgroup.Wait: %w", err)
	}
	return nil
}

// forwardEvents pushes bus events to websocket clients. Bursts of status
// changes are coalesced into one full status per device.
func (s *Server) forwardEvents(ctx context.Context, eventsC <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-eventsC:
			pending := map[string]bool{}
			s.handleEvent(evt, pending)
		drain:
			for {
				select {
				case evt := <-eventsC:
					s.handleEvent(evt, pending)
				default:
					break drain
				}
			}
			for key := range pending {
				s.broadcastStatus(key)
			}
		}
	}
}

func (s *Server) handleEvent(evt event.Event, pending map[string]bool) {
	switch evt := evt.(type) {
	case event.StatusChangedEvent:
		pending[evt.Device] = true
	case event.RouteChangedEvent:
		s.broadcast(evt.Device, Message{
			Type:   MessageTypeRouteChanged,
			Device: evt.Device,
			Content: RouteChange{
				Output:     evt.Output,
				Input:      evt.Input,
				SignalType: evt.Signal.String(),
			},
		})
	case event.PanelAttachedEvent:
		s.broadcast("", Message{
			Type:    MessageTypePanel,
			Content: PanelStatus{Attached: evt.Attached, Model: evt.Model},
		})
	}
}

func (s *Server) device(w http.ResponseWriter, key string) (Device, bool) {
	d, ok := s.devices[key]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown device %q", key))
	}
	return d, ok
}

func (s *Server) handleFullStatus(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(w, r.PathValue("key"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

// parseScreenID splits "{key}-screen-{n}".
func parseScreenID(id string) (string, uint, bool) {
	i := strings.LastIndex(id, "-screen-")
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.ParseUint(id[i+len("-screen-"):], 10, 0)
	if err != nil {
		return "", 0, false
	}
	return id[:i], uint(n), true
}

func (s *Server) screenGroup(w http.ResponseWriter, r *http.Request) (*selectable.Group, bool) {
	key, screen, ok := parseScreenID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	d, ok := s.device(w, key)
	if !ok {
		return nil, false
	}
	group, ok := d.Group(screen)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown screen %d", screen))
		return nil, false
	}
	return group, true
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	group, ok := s.screenGroup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, screenSelectionFromGroup(group))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	group, ok := s.screenGroup(w, r)
	if !ok {
		return
	}

	var req SelectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := group.Select(req.Key); err != nil {
		s.logger.Warn("Select failed", "group", group.Key(), "item", req.Key, "err", err)
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, screenSelectionFromGroup(group))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(w, r.PathValue("key"))
	if !ok {
		return
	}

	var req LayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := d.SetWindowLayout(req.Layout); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(w, r.PathValue("key"))
	if !ok {
		return
	}

	var req RouteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sig := routing.AudioVideo
	if req.SignalType != "" {
		var err error
		if sig, err = routing.ParseSignalType(req.SignalType); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := d.ExecuteNumericSwitch(req.Input, req.Output, sig); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken != "" && !isAuthenticated(r.Header.Get("Authorization"), s.apiToken) {
			s.logger.Warn("Unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func isAuthenticated(authHeader, token string) bool {
	got, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, selectable.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, windowing.ErrInvalidLayout), errors.Is(err, windowing.ErrInvalidSwitch):
		return http.StatusBadRequest
	case errors.Is(err, windowing.ErrUnconfigured):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	const maxBodyBytes = 1 << 16
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
