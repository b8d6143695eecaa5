// Package web serves the patch and installer browser over HTTP: rendered
// pages, a JSON API, a websocket that pushes reload events and the
// prometheus metrics endpoint.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tsanders/patchbrowser/pkg/browser"
	"github.com/tsanders/patchbrowser/pkg/feed"
	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/report"
	"github.com/tsanders/patchbrowser/pkg/software"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Options configures a Server.
type Options struct {
	Addr        string
	RenderLimit int    // patch rows per page; 0 means patch.RenderLimit
	SoftwareURL string // linked from the menu when it is a remote sheet
	Logger      *zap.Logger
}

// Server serves the browser UI backed by a browser.Controller.
type Server struct {
	controller   *browser.Controller
	renderer     *report.Renderer
	addr         string
	renderLimit  int
	softwareLink string
	log          *zap.Logger
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	server       *http.Server
}

// NewServer creates a server and subscribes it to the controller's events so
// that every reload is pushed to connected websocket clients.
func NewServer(controller *browser.Controller, opts Options) (*Server, error) {
	renderer, err := report.NewRenderer(false)
	if err != nil {
		return nil, err
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:8080"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		controller:  controller,
		renderer:    renderer,
		addr:        opts.Addr,
		renderLimit: opts.RenderLimit,
		log:         opts.Logger,
		clients:     make(map[*websocket.Conn]bool),
	}
	if feed.IsRemote(opts.SoftwareURL) {
		s.softwareLink = opts.SoftwareURL
	}
	controller.Subscribe(func(ev browser.Event) {
		s.BroadcastUpdate(ev)
	})
	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the router with every page and API endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/patches", s.handlePatches)
	mux.HandleFunc("/software", s.handleSoftware)

	// API endpoints
	mux.HandleFunc("/api/sheets", s.handleSheets)
	mux.HandleFunc("/api/sheets/{key}", s.handleSheet)
	mux.HandleFunc("/api/software", s.handleSoftwareRows)
	mux.HandleFunc("/api/reload", s.handleReload)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Start starts the web server and optionally opens the browser. It blocks
// until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context, openBrowser bool) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Check if port is available
	if !s.isPortAvailable() {
		return fmt.Errorf("port %s is already in use", s.addr)
	}

	s.log.Info("starting web interface", zap.String("url", "http://"+s.addr))

	if openBrowser {
		go s.openBrowserDelayed("http://" + s.addr)
	}

	// Start server
	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the web server and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.clientsMutex.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.clientsMutex.Unlock()

	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// isPortAvailable checks if the configured port is available.
func (s *Server) isPortAvailable() bool {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// openBrowserDelayed opens the browser after a short delay.
func (s *Server) openBrowserDelayed(url string) {
	time.Sleep(500 * time.Millisecond)
	if err := openBrowser(url); err != nil {
		s.log.Warn("failed to open browser", zap.Error(err))
	}
}

// openBrowser opens the default browser to the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// handleIndex serves the menu page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.controller.State()
	view := &report.MenuView{
		Feeds: []report.FeedSummary{
			feedSummary("Patches", report.ServerLinks.Patches, state.Sheets().RowCount(), state.Status(feed.Patches)),
			feedSummary("Software", report.ServerLinks.Software, len(state.Software()), state.Status(feed.Software)),
		},
		DownloadLink: s.softwareLink,
	}
	s.renderHTML(w, func(buf *strings.Builder) error { return s.renderer.Menu(buf, view) })
}

func feedSummary(label, link string, rows int, st browser.FeedStatus) report.FeedSummary {
	msg := st.Message
	if msg == "" && st.LoadedAt.IsZero() {
		msg = "Not loaded"
	}
	return report.FeedSummary{
		Label:   label,
		Link:    link,
		Message: msg,
		Rows:    rows,
		Error:   st.Error != "",
	}
}

// handlePatches serves the filtered patch table. Selecting a sheet makes it
// the active sheet for later requests.
func (s *Server) handlePatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.controller.State()
	key := state.ActiveSheet()
	if k := r.URL.Query().Get("sheet"); k != "" {
		key = state.SelectSheet(k)
	}

	view := report.NewPatchView(state.Sheets(), key, s.patchQuery(r))
	if st := state.Status(feed.Patches); st.Error != "" || st.Loading {
		view.Status = st.Message
	}
	s.renderHTML(w, func(buf *strings.Builder) error { return s.renderer.Patches(buf, view) })
}

// handleSoftware serves the filtered installer table, loading the software
// feed on first use.
func (s *Server) handleSoftware(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.controller.EnsureSoftware(r.Context()); err != nil {
		s.log.Warn("software feed unavailable", zap.Error(err))
	}

	state := s.controller.State()
	view := report.NewSoftwareView(state.Software(), softwareQuery(r))
	if st := state.Status(feed.Software); st.Error != "" {
		view.Status = st.Message
	}
	s.renderHTML(w, func(buf *strings.Builder) error { return s.renderer.Software(buf, view) })
}

// renderHTML renders into a buffer first so that a template failure can still
// produce a clean 500.
func (s *Server) renderHTML(w http.ResponseWriter, render func(*strings.Builder) error) {
	var buf strings.Builder
	if err := render(&buf); err != nil {
		s.log.Error("render failed", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(buf.String())); err != nil {
		// Log error but can't send response as headers are already written
		s.log.Warn("error writing response", zap.Error(err))
	}
}

func (s *Server) patchQuery(r *http.Request) patch.Query {
	v := r.URL.Query()
	q := patch.Query{
		Text:      v.Get("q"),
		Component: v.Get("component"),
		Security:  strings.ToUpper(v.Get("security")),
		Limit:     s.renderLimit,
	}
	if n, err := strconv.Atoi(v.Get("limit")); err == nil {
		q.Limit = n
	}
	return q
}

func softwareQuery(r *http.Request) software.Query {
	v := r.URL.Query()
	return software.Query{
		Version:   v.Get("version"),
		Component: v.Get("component"),
		Text:      v.Get("q"),
	}
}

// SheetInfo describes one sheet in the sheet listing.
type SheetInfo struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Rows   int    `json:"rows"`
	Active bool   `json:"active"`
}

// handleSheets lists sheets in display order.
func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.controller.State()
	sheets := state.Sheets()
	active := state.ActiveSheet()

	infos := make([]SheetInfo, 0, len(sheets))
	for _, key := range sheets.Keys() {
		infos = append(infos, SheetInfo{
			Key:    key,
			Label:  patch.SheetLabel(key),
			Rows:   len(sheets[key].Rows),
			Active: key == active,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":     active,
		"sheets":     infos,
		"components": sheets.Components(),
	})
}

// PatchRowJSON is a patch row as served by the API, with resolved links.
type PatchRowJSON struct {
	patch.PatchRow
	Security    string `json:"security"`
	SupportURL  string `json:"supportUrl,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// handleSheet returns the filtered rows of one sheet. Unknown keys are a 404
// rather than a silent fallback so API clients notice typos.
func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.PathValue("key")
	sheets := s.controller.State().Sheets()
	if _, ok := sheets[key]; !ok {
		http.Error(w, fmt.Sprintf("Sheet %q not found", key), http.StatusNotFound)
		return
	}

	res := s.patchQuery(r).Apply(sheets[key])
	rows := make([]PatchRowJSON, 0, len(res.Rows))
	for _, row := range res.Rows {
		view := report.NewPatchRowView(row, key)
		rows = append(rows, PatchRowJSON{
			PatchRow:    row,
			Security:    row.SecurityFlag(),
			SupportURL:  view.SupportURL,
			DownloadURL: view.DownloadURL,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":       key,
		"label":     patch.SheetLabel(key),
		"total":     res.Total,
		"truncated": res.Truncated(),
		"rows":      rows,
	})
}

// handleSoftwareRows returns the filtered installer rows.
func (s *Server) handleSoftwareRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.controller.EnsureSoftware(r.Context()); err != nil {
		s.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": feed.Explain(feed.Software, err).Error(),
		})
		return
	}

	all := s.controller.State().Software()
	rows := softwareQuery(r).Apply(all)
	if rows == nil {
		rows = []software.Row{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":      len(rows),
		"versions":   software.Versions(all),
		"components": software.Components(all),
		"rows":       rows,
	})
}

// handleReload reloads one feed or both. Patch reloads honour the minimum
// refetch interval unless force=1.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	force, _ := strconv.ParseBool(q.Get("force"))
	name := q.Get("feed")
	if name == "" {
		name = feed.Patches
	}

	var err error
	switch name {
	case feed.Patches:
		err = s.controller.ReloadPatches(r.Context(), force)
	case feed.Software:
		err = s.controller.ReloadSoftware(r.Context())
	default:
		http.Error(w, fmt.Sprintf("Unknown feed %q", name), http.StatusBadRequest)
		return
	}

	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded", "feed": name})
	case errors.Is(err, feed.ErrDebounced):
		s.writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "debounced", "feed": name})
	case errors.Is(err, feed.ErrStale):
		s.writeJSON(w, http.StatusConflict, map[string]string{"status": "stale", "feed": name})
	default:
		s.log.Warn("reload failed", zap.String("feed", name), zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"feed":    name,
			"message": feed.Explain(name, err).Error(),
		})
	}
}

// handleStatus returns per-feed load status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.controller.State()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"activeSheet": state.ActiveSheet(),
		"feeds":       state.Statuses(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("error encoding response", zap.Error(err))
	}
}

// handleWebSocket handles WebSocket connections for live updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = true
	s.clientsMutex.Unlock()

	// Drain client messages until the connection closes
	go func() {
		defer func() {
			s.clientsMutex.Lock()
			delete(s.clients, conn)
			s.clientsMutex.Unlock()
			conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// BroadcastUpdate sends an update to all connected WebSocket clients.
func (s *Server) BroadcastUpdate(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("failed to marshal update", zap.Error(err))
		return
	}

	// Writes are serialised: a websocket connection allows one writer at a time.
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()

	for client := range s.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debug("failed to send update to client", zap.Error(err))
		}
	}
}

// clientCount reports connected websocket clients.
func (s *Server) clientCount() int {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	return len(s.clients)
}
