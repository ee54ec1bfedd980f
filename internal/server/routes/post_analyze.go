package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/accredmap/backend/internal/queue"
	"github.com/accredmap/backend/internal/server/middleware"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/store"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AnalyzeEvidenceHandler scores a document's text against the current graph
// generation and replaces its mapping set. With a queue attached the job
// runs on the worker; otherwise it runs inline and returns the committed
// mapping set.
func AnalyzeEvidenceHandler(c echo.Context) error {
	type analyzeBody struct {
		DocumentID string   `json:"document_id" validate:"required"`
		Text       string   `json:"text" validate:"required"`
		Scope      []string `json:"scope"`
	}

	type analyzeResponse struct {
		Message       string           `json:"message"`
		CorrelationID string           `json:"correlation_id,omitempty"`
		DocumentID    string           `json:"document_id,omitempty"`
		Generation    int64            `json:"generation,omitempty"`
		Mappings      []common.Mapping `json:"mappings,omitempty"`
	}

	data := new(analyzeBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, analyzeResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, analyzeResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App

	if app.Queue != nil {
		correlationID, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, analyzeResponse{
				Message: "Internal server error",
			})
		}
		msg := queue.AnalyzeJobMsg{
			Message:       "Evidence analysis requested",
			CorrelationID: correlationID,
			DocumentID:    data.DocumentID,
			Text:          data.Text,
			Scope:         data.Scope,
		}
		msgBytes, err := json.Marshal(msg)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, analyzeResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(app.Queue, queue.AnalyzeQueue, msgBytes); err != nil {
			logger.Error("Failed to publish to analyze_queue", "err", err)
			return c.JSON(http.StatusInternalServerError, analyzeResponse{
				Message: "Internal server error",
			})
		}
		return c.JSON(http.StatusAccepted, analyzeResponse{
			Message:       "Analysis queued",
			CorrelationID: correlationID,
			DocumentID:    data.DocumentID,
		})
	}

	ctx := c.Request().Context()
	gen := app.Graph.Current()

	candidates, err := app.Engine.Analyze(ctx, gen, data.Text, data.Scope)
	if err != nil {
		if errors.Is(err, match.ErrNoGeneration) {
			return c.JSON(http.StatusServiceUnavailable, analyzeResponse{
				Message: "Standards graph not loaded yet",
			})
		}
		logger.Error("Evidence analysis failed", "document_id", data.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, analyzeResponse{
			Message: "Internal server error",
		})
	}

	if _, err := app.Mappings.Upsert(ctx, data.DocumentID, candidates); err != nil {
		if errors.Is(err, store.ErrAnalysisInProgress) {
			return c.JSON(http.StatusConflict, analyzeResponse{
				Message: "Analysis already in progress for document",
			})
		}
		logger.Error("Failed to persist mappings", "document_id", data.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, analyzeResponse{
			Message: "Internal server error",
		})
	}

	mappings, err := app.Mappings.Get(ctx, data.DocumentID)
	if err != nil {
		logger.Error("Failed to read back mappings", "document_id", data.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, analyzeResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, analyzeResponse{
		Message:    "Document analyzed",
		DocumentID: data.DocumentID,
		Generation: gen.ID(),
		Mappings:   mappings,
	})
}
