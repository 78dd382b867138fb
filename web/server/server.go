// Package server exposes a simulation session over HTTP. Clients control
// playback through a small REST API and watch events and fixes over a
// websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/log"
	"github.com/Bucknalla/go-route-simulator/routing"
	"github.com/Bucknalla/go-route-simulator/sink"
	"github.com/gorilla/mux"
	"github.com/mitchellh/mapstructure"
)

// Places looks up places by name for the origin/destination pickers.
type Places interface {
	routing.Resolver
	Autocomplete(ctx context.Context, query string) ([]routing.Place, error)
}

// Options configures a WebServer. Without a Router, setting both route ends
// fails with gps.ErrNoRouteSource. Places may be nil to disable place
// lookup. Sink, when set, receives every fix in addition to the websocket
// clients.
type Options struct {
	Config    gps.Config
	Router    gps.RouteSource
	Places    Places
	Sink      sink.Sink
	StaticDir string
	Logger    *log.Logger
}

type WebServer struct {
	session *gps.Session
	hub     *Hub
	places  Places
	sink    sink.Sink
	static  string
	lg      *log.Logger
}

// New creates the session served by the web server.
func New(o Options) (*WebServer, error) {
	ws := &WebServer{
		hub:    NewHub(o.Logger),
		places: o.Places,
		sink:   o.Sink,
		static: o.StaticDir,
		lg:     o.Logger,
	}
	if ws.static == "" {
		ws.static = filepath.Join(".", "static")
	}

	out := sink.Multi{ws.hub}
	if o.Sink != nil {
		out = append(out, o.Sink)
	}

	session, err := gps.NewSession(gps.SessionConfig{
		Config:     o.Config,
		Router:     o.Router,
		OnTick:     sink.TickFunc(out),
		OnComplete: func() { ws.lg.Info("simulation complete") },
		OnError:    func(err error) { ws.lg.Errorf("simulation failed: %v", err) },
		Logger:     o.Logger,
	})
	if err != nil {
		return nil, err
	}
	ws.session = session
	session.OnStateChange(ws.relay)

	return ws, nil
}

// relay forwards every session event to the websocket clients, followed by
// a status frame when the state changed.
func (ws *WebServer) relay(from, to gps.State, e gps.Event) {
	ws.hub.Broadcast(Frame{Type: "event", Data: EventFrame{
		Name:    gps.EventName(e),
		Payload: e,
		State:   to.Kind.String(),
	}})
	if from != to {
		ws.hub.Broadcast(Frame{Type: "status", Data: ws.session.Status()})
	}
}

// Session returns the session driven by the server.
func (ws *WebServer) Session() *gps.Session { return ws.session }

// Hub returns the websocket hub.
func (ws *WebServer) Hub() *Hub { return ws.hub }

// Handler returns the HTTP routes of the server.
func (ws *WebServer) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/start", ws.handleStart).Methods("POST")
	api.HandleFunc("/stop", ws.handleStop).Methods("POST")
	api.HandleFunc("/pause", ws.handlePause).Methods("POST")
	api.HandleFunc("/resume", ws.handleResume).Methods("POST")
	api.HandleFunc("/toggle", ws.handleToggle).Methods("POST")
	api.HandleFunc("/status", ws.handleGetStatus).Methods("GET")
	api.HandleFunc("/config", ws.handleUpdateConfig).Methods("POST")
	api.HandleFunc("/origin", ws.handleSetLocation(ws.session.SetOrigin)).Methods("POST")
	api.HandleFunc("/destination", ws.handleSetLocation(ws.session.SetDestination)).Methods("POST")
	api.HandleFunc("/route", ws.handleClearRoute).Methods("DELETE")
	api.HandleFunc("/places", ws.handlePlaces).Methods("GET")
	api.HandleFunc("/ws", ws.handleWebSocket)

	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(ws.static)))

	return r
}

// NewHTTPServer wraps the handler in an http.Server listening on addr.
func (ws *WebServer) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      ws.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// Close stops the simulation, disconnects clients and closes the extra sink.
func (ws *WebServer) Close() error {
	ws.session.Close()
	ws.hub.Close()
	if ws.sink != nil {
		return ws.sink.Close()
	}
	return nil
}

func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws.hub.serve(w, r, Frame{Type: "status", Data: ws.session.Status()})
}

func (ws *WebServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := ws.session.StartPlaying(); err != nil {
		ws.writeError(w, err)
		return
	}
	ws.lg.Info("simulation start requested")
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (ws *WebServer) handleStop(w http.ResponseWriter, r *http.Request) {
	ws.session.StopPlaying()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (ws *WebServer) handlePause(w http.ResponseWriter, r *http.Request) {
	ws.session.Pause()
	writeJSON(w, http.StatusOK, ws.session.Status())
}

func (ws *WebServer) handleResume(w http.ResponseWriter, r *http.Request) {
	ws.session.Resume()
	writeJSON(w, http.StatusOK, ws.session.Status())
}

func (ws *WebServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	ws.session.PauseOrResume()
	writeJSON(w, http.StatusOK, ws.session.Status())
}

func (ws *WebServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.session.Status())
}

// handleUpdateConfig applies a partial configuration. Fields missing from
// the request keep their current values; durations may be given as
// strings such as "500ms" or as nanoseconds.
func (ws *WebServer) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	config, err := decodeConfig(ws.session.Config(), body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := ws.session.UpdateConfiguration(config); err != nil {
		ws.writeError(w, err)
		return
	}

	ws.lg.Infof("configuration updated: %+v", config)
	writeJSON(w, http.StatusOK, config)
}

func decodeConfig(base gps.Config, body map[string]any) (gps.Config, error) {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &base,
	})
	if err != nil {
		return base, err
	}
	if err := decoder.Decode(body); err != nil {
		return base, fmt.Errorf("decoding configuration: %w", err)
	}
	return base, nil
}

// locationRequest selects a route end either by coordinates or by a
// query that is a "lat,lon" pair or a place name.
type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Query     string   `json:"query"`
}

func (ws *WebServer) handleSetLocation(set func(context.Context, gps.Coordinate) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req locationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
			return
		}

		var c gps.Coordinate
		switch {
		case req.Latitude != nil && req.Longitude != nil:
			c = gps.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
		case req.Query != "":
			resolved, err := routing.ResolveLocation(r.Context(), ws.places, req.Query)
			if err != nil {
				ws.writeError(w, err)
				return
			}
			c = resolved
		default:
			http.Error(w, "latitude and longitude or query required", http.StatusBadRequest)
			return
		}

		if err := set(r.Context(), c); err != nil {
			ws.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ws.session.Status())
	}
}

func (ws *WebServer) handleClearRoute(w http.ResponseWriter, r *http.Request) {
	ws.session.ClearRoute()
	writeJSON(w, http.StatusOK, ws.session.Status())
}

func (ws *WebServer) handlePlaces(w http.ResponseWriter, r *http.Request) {
	if ws.places == nil {
		http.Error(w, "place lookup is not configured", http.StatusNotImplemented)
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}

	places, err := ws.places.Autocomplete(r.Context(), q)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// writeError maps session and routing errors onto HTTP status codes.
func (ws *WebServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gps.ErrInvalidCoordinate),
		errors.Is(err, gps.ErrInvalidSpeedMultiplier),
		errors.Is(err, gps.ErrInvalidNoiseLevel),
		errors.Is(err, gps.ErrInvalidDelay),
		errors.Is(err, gps.ErrInvalidDistance),
		errors.Is(err, routing.ErrMalformedCoordinate):
		status = http.StatusBadRequest
	case errors.Is(err, gps.ErrNoRoute),
		errors.Is(err, gps.ErrNoRouteSource):
		status = http.StatusConflict
	case errors.Is(err, routing.ErrPlaceNotFound),
		errors.Is(err, routing.ErrNoRouteFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		ws.lg.Errorf("request failed: %v", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
