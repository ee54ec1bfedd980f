package routes

import (
	"net/http"

	"github.com/accredmap/backend/internal/server/middleware"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetDocumentMappingsHandler returns the document's persisted mappings.
func GetDocumentMappingsHandler(c echo.Context) error {
	type mappingsParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	type mappingsResponse struct {
		Message  string           `json:"message"`
		Mappings []common.Mapping `json:"mappings"`
	}

	params := new(mappingsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, mappingsResponse{
			Message: "Invalid request parameters",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, mappingsResponse{
			Message: "Invalid request parameters",
		})
	}

	app := c.(*middleware.AppContext).App
	mappings, err := app.Mappings.Get(c.Request().Context(), params.DocumentID)
	if err != nil {
		logger.Error("Failed to load mappings", "document_id", params.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, mappingsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, mappingsResponse{
		Message:  "OK",
		Mappings: mappings,
	})
}
