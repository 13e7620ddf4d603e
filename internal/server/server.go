package server

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajfletch/draftsmith/internal/agent"
	"github.com/ajfletch/draftsmith/internal/ingest"
	"github.com/ajfletch/draftsmith/internal/library"
	"github.com/ajfletch/draftsmith/internal/pipeline"
	"github.com/ajfletch/draftsmith/internal/refine"
	"github.com/ajfletch/draftsmith/internal/telemetry"
)

// Server exposes the orchestration core over a REST API. It is single-user:
// one working set, at most one pipeline run in flight, one refinement session.
type Server struct {
	logger    *log.Logger
	provider  agent.Provider
	workspace *ingest.Workspace
	ingestor  *ingest.Ingestor
	pipe      *pipeline.Pipeline
	lib       *library.Store
	telemetry *telemetry.Telemetry

	mu      sync.Mutex
	run     *pipeline.Run
	running bool
	session *refine.Session
}

// New assembles a server over already-constructed components.
func New(provider agent.Provider, ingestor *ingest.Ingestor, pipe *pipeline.Pipeline, lib *library.Store, tele *telemetry.Telemetry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return &Server{
		logger:    logger,
		provider:  provider,
		workspace: ingestor.Workspace(),
		ingestor:  ingestor,
		pipe:      pipe,
		lib:       lib,
		telemetry: tele,
	}
}

// Echo builds the routed echo instance.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s: %v", code, req.Method, req.URL.Path, err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	src := api.Group("/sources")
	src.GET("", s.listSources)
	src.POST("/url", s.addURLSource)
	src.POST("/text", s.addTextSource)
	src.POST("/note", s.addNoteSource)
	src.DELETE("/:id", s.removeSource)

	pipe := api.Group("/pipeline")
	pipe.POST("/run", s.startRun)
	pipe.GET("/status", s.runStatus)

	ref := api.Group("/refine")
	ref.POST("/start", s.startRefine)
	ref.POST("/turn", s.refineTurn)
	ref.GET("/transcript", s.refineTranscript)

	lib := api.Group("/library")
	lib.GET("", s.getLibrary)
	lib.GET("/search", s.searchLibrary)
	lib.POST("/save", s.saveToLibrary)
	lib.POST("/load/:id", s.loadFromLibrary)
	lib.DELETE("/:category/:id", s.deleteFromLibrary)

	return e
}

// Run starts serving on addr and blocks.
func (s *Server) Run(addr string) error {
	return s.Echo().Start(addr)
}

func (s *Server) currentRun() *pipeline.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

func (s *Server) currentSession() *refine.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}
