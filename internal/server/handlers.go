package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ajfletch/draftsmith/internal/agent"
	"github.com/ajfletch/draftsmith/internal/ingest"
	"github.com/ajfletch/draftsmith/internal/library"
	"github.com/ajfletch/draftsmith/internal/pipeline"
	"github.com/ajfletch/draftsmith/internal/refine"
	"github.com/ajfletch/draftsmith/models"
)

// httpError maps the core error taxonomy onto status codes: validation and
// fetch problems are the caller's to fix, transport failures are upstream.
func httpError(err error) error {
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Reason)
	}
	var fe *ingest.FetchError
	if errors.As(err, &fe) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, fe.Error())
	}
	var te *agent.TransportError
	if errors.As(err, &te) {
		return echo.NewHTTPError(http.StatusBadGateway, te.Error())
	}
	return err
}

// --- sources ---

func (s *Server) listSources(c echo.Context) error {
	return c.JSON(http.StatusOK, s.workspace.List())
}

func (s *Server) addURLSource(c echo.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	src, err := s.ingestor.FromURL(c.Request().Context(), req.URL)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, src)
}

func (s *Server) addTextSource(c echo.Context) error {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	src, ok := s.ingestor.FromText(req.Title, req.Content)
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, src)
}

func (s *Server) addNoteSource(c echo.Context) error {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	note, ok := s.ingestor.FromNote(c.Request().Context(), req.Title, req.Content)
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, note)
}

func (s *Server) removeSource(c echo.Context) error {
	if !s.workspace.Remove(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "source not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// --- pipeline ---

func (s *Server) startRun(c echo.Context) error {
	var req struct {
		Format string `json:"format"`
		Angle  string `json:"angle"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sources := s.workspace.List()
	if len(sources) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no sources in the working set")
	}

	run := s.pipe.NewRun(models.ParseFormat(req.Format), req.Angle)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusConflict, "a pipeline run is already in progress")
	}
	s.running = true
	// Published before the goroutine starts so /status observes the live run,
	// not the previous one.
	s.run = run
	s.session = nil
	s.mu.Unlock()

	go func() {
		// The run outlives the request; it is polled via /status.
		if err := s.pipe.Execute(context.Background(), run, sources); err != nil {
			s.logger.Printf("pipeline run failed: %v", err)
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) runStatus(c echo.Context) error {
	run := s.currentRun()
	if run == nil {
		return c.JSON(http.StatusOK, pipeline.Status{Phase: pipeline.PhaseIdle})
	}
	return c.JSON(http.StatusOK, run.Status())
}

// --- refinement ---

func (s *Server) startRefine(c echo.Context) error {
	var req struct {
		Draft string `json:"draft"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	draft := req.Draft
	if draft == "" {
		run := s.currentRun()
		if run == nil || run.Phase() != pipeline.PhaseComplete {
			return echo.NewHTTPError(http.StatusBadRequest, "no completed draft to refine")
		}
		draft = run.Draft()
	}

	s.mu.Lock()
	s.session = refine.NewSession(s.provider, draft, s.telemetry, nil)
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, map[string]string{"status": "session started"})
}

func (s *Server) refineTurn(c echo.Context) error {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess := s.currentSession()
	if sess == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no refinement session in progress")
	}
	reply, rewrote := sess.Send(c.Request().Context(), req.Message)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reply":   reply,
		"rewrote": rewrote,
		"draft":   sess.Draft(),
	})
}

func (s *Server) refineTranscript(c echo.Context) error {
	sess := s.currentSession()
	if sess == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no refinement session in progress")
	}
	return c.JSON(http.StatusOK, sess.Transcript())
}

// --- library ---

func (s *Server) getLibrary(c echo.Context) error {
	return c.JSON(http.StatusOK, s.lib.Load(c.Request().Context()))
}

func (s *Server) searchLibrary(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query parameter q")
	}
	k, _ := strconv.Atoi(c.QueryParam("k"))
	idx, err := library.BuildIndex(s.lib.Load(c.Request().Context()))
	if err != nil {
		return err
	}
	defer idx.Close()
	hits, err := idx.Search(q, k)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hits)
}

// saveToLibrary commits the working set and, when a run is complete, a frozen
// draft snapshot.
func (s *Server) saveToLibrary(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	lib := s.lib.SaveSources(ctx, s.workspace.List())

	if run := s.currentRun(); run != nil && run.Phase() == pipeline.PhaseComplete {
		title := req.Title
		if title == "" {
			title = "Untitled draft"
		}
		snap := run.Snapshot(title)
		// The refinement session owns the draft once started.
		if sess := s.currentSession(); sess != nil {
			snap.Content = sess.Draft()
		}
		lib = s.lib.SaveDraft(ctx, snap)
	}
	return c.JSON(http.StatusOK, lib)
}

// loadFromLibrary copies a saved source or note back into the working set.
func (s *Server) loadFromLibrary(c echo.Context) error {
	id := c.Param("id")
	lib := s.lib.Load(c.Request().Context())
	for _, src := range lib.Sources {
		if src.ID == id {
			s.workspace.Add(src)
			return c.JSON(http.StatusOK, src)
		}
	}
	for _, note := range lib.Notes {
		if note.ID == id {
			s.workspace.Add(note)
			return c.JSON(http.StatusOK, note)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "library record not found")
}

func (s *Server) deleteFromLibrary(c echo.Context) error {
	lib, err := s.lib.Remove(c.Request().Context(), library.Category(c.Param("category")), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, lib)
}
