package routes

import (
	"net/http"

	"github.com/accredmap/backend/internal/server/middleware"
	"github.com/accredmap/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DeleteDocumentMappingsHandler removes every mapping of a document, part of
// the document-deletion cascade. Trust scores and coverage reflect the
// removal on the next read.
func DeleteDocumentMappingsHandler(c echo.Context) error {
	type deleteParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	type deleteResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteResponse{
			Message: "Invalid request parameters",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteResponse{
			Message: "Invalid request parameters",
		})
	}

	app := c.(*middleware.AppContext).App
	if err := app.Mappings.DeleteForDocument(c.Request().Context(), params.DocumentID); err != nil {
		logger.Error("Failed to delete mappings", "document_id", params.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deleteResponse{
		Message: "Mappings deleted",
	})
}
