package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/agent"
	"github.com/civicgrid/civicnav/internal/model"
)

type Server struct {
	pipeline *agent.Pipeline
	log      zerolog.Logger
}

func NewServer(pipeline *agent.Pipeline, log zerolog.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		log:      log.With().Str("component", "server").Logger(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/query", s.Query)
	r.POST("/api/search", s.Search)
	r.GET("/api/categories", s.Categories)
	r.POST("/api/feedback", s.Feedback)
	r.GET("/health", s.Health)

	return r
}

type QueryRequest struct {
	Query string `json:"query"`
}

func (s *Server) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := s.pipeline.Run(c.Request.Context(), req.Query)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type SearchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	TopK     int    `json:"top_k"`
}

type SearchResponse struct {
	Results []model.SearchResult `json:"results"`
	Count   int                  `json:"count"`
}

func (s *Server) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	category, ok := model.ParseCategory(req.Category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + req.Category})
		return
	}
	if req.TopK < 0 || req.TopK > 20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be between 1 and 20"})
		return
	}

	results, err := s.pipeline.RunSearch(c.Request.Context(), req.Query, category, req.TopK)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	c.JSON(http.StatusOK, SearchResponse{Results: results, Count: len(results)})
}

type CategoryInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (s *Server) Categories(c *gin.Context) {
	counts := s.pipeline.CategoryCounts(c.Request.Context())
	categories := make([]CategoryInfo, 0, len(counts))
	for _, cat := range s.pipeline.Categories() {
		categories = append(categories, CategoryInfo{Name: string(cat), Count: counts[cat]})
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type FeedbackRequest struct {
	QueryID string `json:"query_id"`
	Helpful *bool  `json:"helpful"`
	Comment string `json:"comment"`
}

// Feedback acknowledges and logs feedback; there is no persistence layer
// behind it yet.
func (s *Server) Feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.QueryID == "" || req.Helpful == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query_id and helpful are required"})
		return
	}

	s.log.Info().
		Str("query_id", req.QueryID).
		Bool("helpful", *req.Helpful).
		Str("comment", req.Comment).
		Msg("feedback received")

	c.JSON(http.StatusCreated, gin.H{
		"feedback_id": uuid.New().String(),
		"status":      "received",
	})
}

func (s *Server) Health(c *gin.Context) {
	ctx := c.Request.Context()
	llmOK := s.pipeline.CheckLLM(ctx)
	searchOK := s.pipeline.CheckSearch(ctx)

	status := "healthy"
	code := http.StatusOK
	switch {
	case !llmOK && !searchOK:
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	case !llmOK || !searchOK:
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"components": gin.H{
			"llm":    componentStatus(llmOK),
			"search": componentStatus(searchOK),
		},
	})
}

func componentStatus(ok bool) string {
	if ok {
		return "up"
	}
	return "down"
}

// renderError maps pipeline failures onto HTTP statuses. Validation is the
// caller's fault; exhausted providers are a 503 so load balancers back off.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrProviderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	case errors.Is(err, model.ErrSchemaViolation):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream model returned an unusable response"})
	default:
		var perr *model.PipelineError
		if errors.As(err, &perr) {
			s.log.Error().Err(err).Str("stage", perr.Stage).Str("code", perr.Code).Msg("pipeline failure")
		} else {
			s.log.Error().Err(err).Msg("request failed")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
