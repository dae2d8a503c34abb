// Package web is the browser surface: a small JSON API and a websocket feed
// that a page panel and its floating button drive. Both share one Surface
// in this process.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/metcalfc/spoon/internal/library"
	"github.com/metcalfc/spoon/internal/logging"
	"github.com/metcalfc/spoon/internal/reader"
	"github.com/metcalfc/spoon/internal/state"
	"github.com/metcalfc/spoon/internal/surface"
)

//go:embed static/index.html
var indexHTML []byte

// maxUpload bounds imported files.
const maxUpload = 64 << 20

// Server serves the browser surface.
type Server struct {
	lib    *library.Library
	surf   *surface.Surface
	hub    *Hub
	engine *gin.Engine
}

// NewServer wires routes for surf.
func NewServer(lib *library.Library, surf *surface.Surface) *Server {
	s := &Server{
		lib:    lib,
		surf:   surf,
		hub:    NewHub(),
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) routes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	s.engine.GET("/ws", s.handleWS)

	api := s.engine.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/import", s.handleImport)
		api.POST("/next", s.handleNext)
		api.POST("/progress", s.handleProgress)
		api.POST("/resync", s.handleResync)
		api.GET("/search", s.handleSearch)
		api.GET("/context", s.handleContext)
		api.GET("/segments", s.handleSegments)
		api.GET("/segments/:n", s.handleSegment)
		api.GET("/chapters", s.handleChapters)
		api.GET("/instruction", s.handleInstruction)
		api.PUT("/instruction", s.handleSetInstruction)
		api.PUT("/verbosity", s.handleSetVerbosity)
		api.DELETE("/books/:hash", s.handleClear)
	}
}

// Run pushes outside changes to clients and serves on addr until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.forwardChanges(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info("Browser surface listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// forwardChanges broadcasts a snapshot whenever the surface changes because
// of another surface.
func (s *Server) forwardChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.surf.Changes():
			s.hub.Broadcast(s.snapshot())
		}
	}
}

// View is the JSON shape of the surface state.
type View struct {
	State   string `json:"state"`
	Hash    string `json:"hash,omitempty"`
	Title   string `json:"title,omitempty"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) snapshot() View {
	st := s.surf.State()
	v := View{State: surface.Name(st)}
	switch st := st.(type) {
	case surface.Ready:
		v.Hash = st.Hash
		v.Title = st.Title
		v.Index = st.Index
		v.Total = st.Len()
		v.Percent = surface.Percent(st.Index, st.Len())
		v.Text = st.Text()
	case surface.Failed:
		v.Error = library.UserMessage(st.Err)
	case surface.Idle, surface.Loading:
	default:
		panic("web: unhandled state")
	}
	return v
}

// changed answers the request with the new snapshot and pushes it to the
// websocket clients.
func (s *Server) changed(c *gin.Context, extra gin.H) {
	v := s.snapshot()
	s.hub.Broadcast(v)
	if extra == nil {
		c.JSON(http.StatusOK, v)
		return
	}
	extra["state"] = v
	c.JSON(http.StatusOK, extra)
}

func errorJSON(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": library.UserMessage(err)})
}

// moveError reports a failed navigation. Only a missing book is the
// client's problem; a failed save is ours.
func moveError(c *gin.Context, err error) {
	if errors.Is(err, surface.ErrNotReady) {
		errorJSON(c, http.StatusConflict, library.ErrNoActiveBook)
		return
	}
	logging.Warn("Move failed", "path", c.FullPath(), "error", err)
	errorJSON(c, http.StatusInternalServerError, err)
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) handleResync(c *gin.Context) {
	s.surf.Resync()
	s.changed(c, nil)
}

// handleImport accepts a multipart "file" field or the raw bytes as body.
func (s *Server) handleImport(c *gin.Context) {
	var (
		name string
		data []byte
		err  error
	)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)

	if fh, ferr := c.FormFile("file"); ferr == nil {
		name = fh.Filename
		f, oerr := fh.Open()
		if oerr != nil {
			errorJSON(c, http.StatusBadRequest, oerr)
			return
		}
		defer f.Close()
		data, err = io.ReadAll(f)
	} else {
		name = c.DefaultQuery("name", "upload.epub")
		data, err = io.ReadAll(c.Request.Body)
	}
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty upload"})
		return
	}

	if _, err := s.surf.Import(name, data); err != nil {
		s.hub.Broadcast(s.snapshot())
		errorJSON(c, http.StatusUnprocessableEntity, err)
		return
	}
	s.changed(c, nil)
}

func (s *Server) handleNext(c *gin.Context) {
	text, _, err := s.surf.Next()
	if err != nil {
		moveError(c, err)
		return
	}
	s.changed(c, gin.H{"text": text})
}

type progressRequest struct {
	Index *int `json:"index"`
	Delta *int `json:"delta"`
}

func (s *Server) handleProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Index == nil) == (req.Delta == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "send exactly one of index or delta"})
		return
	}

	var err error
	if req.Index != nil {
		_, err = s.surf.Jump(*req.Index)
	} else {
		_, err = s.surf.Advance(*req.Delta)
	}
	if err != nil {
		moveError(c, err)
		return
	}
	s.changed(c, nil)
}

func (s *Server) handleSearch(c *gin.Context) {
	r, found, err := s.surf.Search(c.Query("q"))
	if err != nil {
		moveError(c, err)
		return
	}
	s.changed(c, gin.H{"found": found, "index": r.Index})
}

func (s *Server) handleContext(c *gin.Context) {
	text, err := s.surf.ContextText()
	if err != nil {
		errorJSON(c, http.StatusConflict, library.ErrNoActiveBook)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

type segmentItem struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Words   int    `json:"words"`
	Current bool   `json:"current"`
}

func (s *Server) handleSegments(c *gin.Context) {
	r, ok := s.surf.Ready()
	if !ok {
		errorJSON(c, http.StatusConflict, library.ErrNoActiveBook)
		return
	}
	verbosity := c.DefaultQuery("verbosity", s.lib.Verbosity())

	items := make([]segmentItem, r.Len())
	for i, seg := range r.Segments {
		text := seg
		if verbosity != state.VerbosityDetailed {
			text = surface.Preview(seg, surface.PreviewRunes)
		}
		items[i] = segmentItem{Index: i, Text: text, Words: reader.CountWords(seg), Current: i == r.Index}
	}
	c.JSON(http.StatusOK, gin.H{"verbosity": verbosity, "segments": items})
}

func (s *Server) handleSegment(c *gin.Context) {
	r, ok := s.surf.Ready()
	if !ok {
		errorJSON(c, http.StatusConflict, library.ErrNoActiveBook)
		return
	}
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 || n > r.Len() {
		errorJSON(c, http.StatusNotFound, library.ErrOutOfRange)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"index":     n - 1,
		"text":      r.Segments[n-1],
		"formatted": surface.FormatExcerpt(n-1, r.Segments[n-1]),
	})
}

func (s *Server) handleChapters(c *gin.Context) {
	r, ok := s.surf.Ready()
	if !ok {
		errorJSON(c, http.StatusConflict, library.ErrNoActiveBook)
		return
	}
	chapters, known := surface.Chapters(r)
	if !known {
		c.JSON(http.StatusOK, gin.H{"known": false})
		return
	}
	type item struct {
		Number  int    `json:"number"`
		Preview string `json:"preview"`
		Words   int    `json:"words"`
	}
	out := make([]item, len(chapters))
	for i, ch := range chapters {
		out[i] = item{Number: ch.Number, Preview: ch.Preview, Words: ch.Words}
	}
	c.JSON(http.StatusOK, gin.H{"known": true, "chapters": out})
}

func (s *Server) handleInstruction(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instruction": s.lib.Instruction()})
}

func (s *Server) handleSetInstruction(c *gin.Context) {
	var req struct {
		Instruction string `json:"instruction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.lib.SetInstruction(req.Instruction); err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruction": s.lib.Instruction()})
}

func (s *Server) handleSetVerbosity(c *gin.Context) {
	var req struct {
		Verbosity string `json:"verbosity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.lib.SetVerbosity(req.Verbosity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verbosity": req.Verbosity})
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.lib.ClearBook(c.Param("hash")); err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	// The surface drops the book once the pointer change is delivered.
	c.JSON(http.StatusOK, gin.H{"cleared": c.Param("hash")})
}

// wsCommand is what the panel may send over the socket.
type wsCommand struct {
	Action string `json:"action"` // "next", "prev", "jump", "resync"
	Index  int    `json:"index"`
}

func (s *Server) handleWS(c *gin.Context) {
	s.hub.Serve(c.Writer, c.Request, s.snapshot(), func(msg []byte) {
		var cmd wsCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			logging.Debug("Ignoring websocket message", "error", err)
			return
		}
		var err error
		switch cmd.Action {
		case "next":
			_, err = s.surf.Advance(1)
		case "prev":
			_, err = s.surf.Advance(-1)
		case "jump":
			_, err = s.surf.Jump(cmd.Index)
		case "resync":
			s.surf.Resync()
		default:
			return
		}
		if err != nil {
			logging.Debug("Websocket command failed", "action", cmd.Action, "error", err)
			return
		}
		s.hub.Broadcast(s.snapshot())
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
