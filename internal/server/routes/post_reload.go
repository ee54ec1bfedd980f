package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/accredmap/backend/internal/queue"
	"github.com/accredmap/backend/internal/server/middleware"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/standards"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ReloadCorpusHandler rebuilds the standards graph from the corpus
// directory. With a queue attached the job runs on the worker; otherwise it
// runs inline. A reload already in flight yields 409.
func ReloadCorpusHandler(c echo.Context) error {
	type reloadBody struct {
		FallbackToSeed bool `json:"fallback_to_seed"`
	}

	type reloadResponse struct {
		Message       string                 `json:"message"`
		CorrelationID string                 `json:"correlation_id,omitempty"`
		Stats         *standards.ReloadStats `json:"stats,omitempty"`
	}

	data := new(reloadBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, reloadResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App

	if app.Queue != nil {
		correlationID, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, reloadResponse{
				Message: "Internal server error",
			})
		}
		msg := queue.ReloadJobMsg{
			Message:        "Corpus reload requested",
			CorrelationID:  correlationID,
			CorpusDir:      app.CorpusDir,
			FallbackToSeed: data.FallbackToSeed,
		}
		msgBytes, err := json.Marshal(msg)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, reloadResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(app.Queue, queue.ReloadQueue, msgBytes); err != nil {
			logger.Error("Failed to publish to reload_queue", "err", err)
			return c.JSON(http.StatusInternalServerError, reloadResponse{
				Message: "Internal server error",
			})
		}
		return c.JSON(http.StatusAccepted, reloadResponse{
			Message:       "Reload queued",
			CorrelationID: correlationID,
		})
	}

	stats, err := app.Graph.Reload(c.Request().Context(), app.CorpusDir, data.FallbackToSeed)
	if err != nil {
		if errors.Is(err, standards.ErrReloadInProgress) {
			return c.JSON(http.StatusConflict, reloadResponse{
				Message: "Reload already in progress",
			})
		}
		logger.Error("Corpus reload failed", "err", err)
		return c.JSON(http.StatusInternalServerError, reloadResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, reloadResponse{
		Message: "Corpus reloaded",
		Stats:   stats,
	})
}
