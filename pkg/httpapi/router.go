// Package httpapi is the HTTP surface producers (viewers) and consumers
// (the player) see: enqueue interrupts, pull audio, query queue depth,
// health.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
	"github.com/lokutor-ai/stream-orchestrator/pkg/store"
)

// Server wires the Audio Queue and Interrupt Store into a gin engine. It
// never touches the Script Queue or History Log — those stay
// Processor-only, per the single-writer discipline.
type Server struct {
	audio      *store.AudioQueue
	interrupts *store.InterruptStore
	logger     orchestrator.Logger
	engine     *gin.Engine
}

// NewServer builds the gin engine and registers routes.
func NewServer(audio *store.AudioQueue, interrupts *store.InterruptStore, logger orchestrator.Logger) *Server {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	s := &Server{audio: audio, interrupts: interrupts, logger: logger}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(cors.Default())
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine, e.g. for http.ListenAndServe.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealthz)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/audio", s.handleDrainAudio)
		v1.GET("/count", s.handleCount)
		v1.POST("/interrupt", s.handleRegisterInterrupt)
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// chunkResponse mirrors domain.AudioChunk's wire shape field for field
// (same json tags, including "kind"), so this is a pass-through rather than
// a rename.
type chunkResponse struct {
	ChunkID     string `json:"chunk_id"`
	Kind        string `json:"kind"`
	AudioBase64 string `json:"audio_base64"`
	Transcript  string `json:"transcript"`
	Speaker     string `json:"speaker"`
}

func (s *Server) handleDrainAudio(c *gin.Context) {
	chunks, err := s.audio.Drain(c.Request.Context())
	if err != nil {
		s.logger.Error("drain audio queue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to drain audio queue"})
		return
	}

	out := make([]chunkResponse, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, chunkResponse{
			ChunkID:     chunk.ChunkID,
			Kind:        string(chunk.Kind),
			AudioBase64: chunk.AudioBase64,
			Transcript:  chunk.Transcript,
			Speaker:     chunk.Speaker,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chunks": out})
}

func (s *Server) handleCount(c *gin.Context) {
	count, err := s.audio.Count(c.Request.Context())
	if err != nil {
		s.logger.Error("count audio queue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count audio queue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

type interruptRequest struct {
	Kind    string `json:"kind"`
	Persona string `json:"persona"`
	Message string `json:"message"`
}

func (s *Server) handleRegisterInterrupt(c *gin.Context) {
	var req interruptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec, err := s.interrupts.Register(c.Request.Context(), domain.Kind(req.Kind), req.Persona, req.Message)
	if err != nil {
		s.respondRegisterError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"interrupt_id": rec.InterruptID,
		"kind":         rec.Kind,
		"status":       rec.Status,
	})
}

func (s *Server) respondRegisterError(c *gin.Context, err error) {
	switch err {
	case orchestrator.ErrUnsupportedInterruptKind, orchestrator.ErrMissingSuperchatFields:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		s.logger.Error("register interrupt failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register interrupt"})
	}
}
