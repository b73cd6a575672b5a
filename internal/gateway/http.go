package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tanvi/stepflow/internal/observability"
	"github.com/tanvi/stepflow/internal/place"
	"github.com/tanvi/stepflow/internal/plan"
	"github.com/tanvi/stepflow/internal/reason"
	"github.com/tanvi/stepflow/internal/render"
	"github.com/tanvi/stepflow/internal/schema"
	"github.com/tanvi/stepflow/internal/store"
)

// Renderer is the rendering core as the gateway sees it.
type Renderer interface {
	Render(ctx context.Context, p *plan.Plan) ([]schema.Step, error)
}

// HTTPGateway exposes the renderer over HTTP: plans in, JSONL step
// sequences out.
type HTTPGateway struct {
	Addr     string
	Renderer Renderer
	Archive  *store.RenderArchive
	Logger   *observability.Logger

	srv *http.Server
}

func NewHTTPGateway(addr string, renderer Renderer, archive *store.RenderArchive, logger *observability.Logger) *HTTPGateway {
	gw := &HTTPGateway{
		Addr:     addr,
		Renderer: renderer,
		Archive:  archive,
		Logger:   logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", gw.handleHealth)
	engine.POST("/v1/render", gw.handleRender)
	engine.GET("/v1/plans/:id/renders", gw.handleArchivedRenders)

	gw.srv = &http.Server{Addr: addr, Handler: engine}
	return gw
}

func (gw *HTTPGateway) Start() error {
	log.Printf("HTTP gateway listening on %s", gw.Addr)
	if err := gw.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (gw *HTTPGateway) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return gw.srv.Shutdown(ctx)
}

// Handler exposes the router, for tests.
func (gw *HTTPGateway) Handler() http.Handler {
	return gw.srv.Handler
}

func (gw *HTTPGateway) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (gw *HTTPGateway) handleRender(c *gin.Context) {
	var p plan.Plan
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed plan: " + err.Error()})
		return
	}
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID := uuid.NewString()
	observability.SetStatus(observability.RoleRendering, p.ID)
	defer observability.SetStatus(observability.RoleIdle, "")

	steps, err := gw.Renderer.Render(c.Request.Context(), &p)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "request_id": requestID})
		return
	}

	body, err := render.MarshalJSONL(steps)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "request_id": requestID})
		return
	}

	if gw.Archive != nil {
		if err := gw.Archive.SaveRender(p.ID, requestID, len(steps), string(body)); err != nil {
			log.Printf("Error archiving render %s: %v", requestID, err)
		}
	}

	c.Header("X-Request-ID", requestID)
	c.Data(http.StatusOK, "application/x-ndjson", body)
}

func (gw *HTTPGateway) handleArchivedRenders(c *gin.Context) {
	if gw.Archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "archive disabled"})
		return
	}
	records, err := gw.Archive.RendersForPlan(c.Param("id"), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"renders": records})
}

// statusFor maps render failures onto HTTP statuses: contradictory plan
// hints are an upstream plan defect, reasoning failures an upstream service
// fault.
func statusFor(err error) int {
	var conflict *place.ConflictError
	var cycle *place.CycleError
	if errors.As(err, &conflict) || errors.As(err, &cycle) {
		return http.StatusUnprocessableEntity
	}
	var exhausted *reason.ExhaustedError
	var timeout *reason.TimeoutError
	if errors.As(err, &exhausted) || errors.As(err, &timeout) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
