package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"keyword-agent/internal/config"
	"keyword-agent/internal/service"
	"keyword-agent/pkg/export"
	"keyword-agent/pkg/logger"
	"keyword-agent/pkg/research"
)

const (
	exportTrends  = "trends"
	exportSuggest = "suggest"
)

type Controller struct {
	research service.ResearchService
	catalog  service.CatalogService
	log      *logger.Logger
}

type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type CatalogResponse struct {
	Regions   []config.Region   `json:"regions"`
	Languages []config.Language `json:"languages"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewController(research service.ResearchService, catalog service.CatalogService) *Controller {
	return &Controller{
		research: research,
		catalog:  catalog,
		log:      logger.GetLogger().WithField("component", "http"),
	}
}

// NewApp builds the fiber app with middleware and routes registered.
func NewApp(c *Controller) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "keyword-agent",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          c.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(c.logRequests)

	c.Register(app)
	return app
}

func (c *Controller) Register(router fiber.Router) {
	router.Get("/healthz", c.health)

	api := router.Group("/api")
	api.Get("/catalog", c.listCatalog)
	api.Get("/research", c.runResearch)
	api.Get("/research/export/:source", c.exportResearch)
}

func (c *Controller) health(ctx *fiber.Ctx) error {
	return ctx.JSON(StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Controller) listCatalog(ctx *fiber.Ctx) error {
	return ctx.JSON(CatalogResponse{
		Regions:   c.catalog.Regions(),
		Languages: c.catalog.Languages(),
	})
}

func (c *Controller) runResearch(ctx *fiber.Ctx) error {
	report, err := c.run(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(report)
}

func (c *Controller) exportResearch(ctx *fiber.Ctx) error {
	source := ctx.Params("source")
	if source != exportTrends && source != exportSuggest {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unknown export source %q", source))
	}

	report, err := c.run(ctx)
	if err != nil {
		return err
	}

	var (
		data     []byte
		filename string
	)
	switch source {
	case exportTrends:
		data, err = export.TrendsWorkbook(report.Trends.Items)
		filename = export.TrendsFileName
	default:
		data, err = export.SuggestionsWorkbook(report.Suggestions.Items)
		filename = export.SuggestionsFileName
	}
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}

	ctx.Attachment(filename)
	ctx.Set(fiber.HeaderContentType, export.MIMEType)
	ctx.Set("X-Run-Id", report.RunID)
	return ctx.Send(data)
}

func (c *Controller) run(ctx *fiber.Ctx) (*research.Report, error) {
	var req research.Request
	if err := ctx.QueryParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
	}
	return c.research.Run(ctx.UserContext(), req)
}

func (c *Controller) handleError(ctx *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fe *fiber.Error
	var ve *research.ValidationError
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.As(err, &ve):
		status = fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusGatewayTimeout
	}

	if status >= fiber.StatusInternalServerError {
		c.log.WithError(err).WithField("path", ctx.Path()).Error("Request failed")
	}
	return ctx.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func (c *Controller) logRequests(ctx *fiber.Ctx) error {
	start := time.Now()
	err := ctx.Next()
	if err != nil {
		if herr := ctx.App().ErrorHandler(ctx, err); herr != nil {
			_ = ctx.SendStatus(fiber.StatusInternalServerError)
		}
	}

	c.log.WithFields(map[string]interface{}{
		"method":      ctx.Method(),
		"path":        ctx.Path(),
		"status":      ctx.Response().StatusCode(),
		"request_id":  ctx.GetRespHeader(fiber.HeaderXRequestID),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Request handled")
	return nil
}
