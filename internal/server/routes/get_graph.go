package routes

import (
	"net/http"

	"github.com/accredmap/backend/internal/server/middleware"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/projection"

	"github.com/labstack/echo/v4"
)

// GetGraphHandler returns a visualization-ready projection of the current
// standards graph with evidence coverage.
func GetGraphHandler(c echo.Context) error {
	type graphParams struct {
		Accreditor     string `query:"accreditor"`
		IncludeClauses bool   `query:"include_clauses"`
	}

	type graphResponse struct {
		Message    string                  `json:"message"`
		Generation int64                   `json:"generation,omitempty"`
		Graph      *common.GraphProjection `json:"graph,omitempty"`
	}

	params := new(graphParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, graphResponse{
			Message: "Invalid request parameters",
		})
	}

	app := c.(*middleware.AppContext).App
	gen := app.Graph.Current()
	if gen == nil {
		return c.JSON(http.StatusServiceUnavailable, graphResponse{
			Message: "Standards graph not loaded yet",
		})
	}

	mappedIDs, err := app.Mappings.MappedStandardIDs(c.Request().Context())
	if err != nil {
		logger.Error("Failed to load mapped standards", "err", err)
		return c.JSON(http.StatusInternalServerError, graphResponse{
			Message: "Internal server error",
		})
	}

	proj := projection.Project(gen, projection.IDSet(mappedIDs), projection.Options{
		AccreditorCode: params.Accreditor,
		IncludeClauses: params.IncludeClauses,
	})

	return c.JSON(http.StatusOK, graphResponse{
		Message:    "OK",
		Generation: gen.ID(),
		Graph:      &proj,
	})
}
