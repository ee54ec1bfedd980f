package routes

import (
	"net/http"
	"strings"

	"github.com/accredmap/backend/internal/server/middleware"
	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type documentTrust struct {
	DocumentID  string            `json:"document_id"`
	TrustScores common.TrustScore `json:"trust_scores"`
}

// GetTrustScoresHandler returns per-document trust scores plus their mean.
// Without an explicit document_ids filter it covers every mapped document.
func GetTrustScoresHandler(c echo.Context) error {
	type trustParams struct {
		DocumentIDs string `query:"document_ids"`
	}

	type trustResponse struct {
		Message        string          `json:"message"`
		Documents      []documentTrust `json:"documents"`
		AggregateTrust float64         `json:"aggregate_trust"`
	}

	params := new(trustParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, trustResponse{
			Message: "Invalid request parameters",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	var documentIDs []string
	for _, id := range strings.Split(params.DocumentIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			documentIDs = append(documentIDs, id)
		}
	}
	if len(documentIDs) == 0 {
		var err error
		documentIDs, err = app.Mappings.MappedDocumentIDs(ctx)
		if err != nil {
			logger.Error("Failed to list mapped documents", "err", err)
			return c.JSON(http.StatusInternalServerError, trustResponse{
				Message: "Internal server error",
			})
		}
	}

	documents := make([]documentTrust, 0, len(documentIDs))
	total := 0.0
	for _, documentID := range documentIDs {
		score, err := app.Trust.ForDocument(ctx, documentID)
		if err != nil {
			logger.Error("Failed to compute trust score", "document_id", documentID, "err", err)
			return c.JSON(http.StatusInternalServerError, trustResponse{
				Message: "Internal server error",
			})
		}
		documents = append(documents, documentTrust{DocumentID: documentID, TrustScores: score})
		total += score.Overall
	}

	aggregate := 0.0
	if len(documents) > 0 {
		aggregate = total / float64(len(documents))
	}

	return c.JSON(http.StatusOK, trustResponse{
		Message:        "OK",
		Documents:      documents,
		AggregateTrust: aggregate,
	})
}

// GetStandardTrustHandler returns the corroboration-weighted trust score for
// a single standard.
func GetStandardTrustHandler(c echo.Context) error {
	type trustResponse struct {
		Message string             `json:"message"`
		Trust   *common.TrustScore `json:"trust,omitempty"`
	}

	standardID := c.Param("id")
	if standardID == "" {
		return c.JSON(http.StatusBadRequest, trustResponse{
			Message: "Missing standard id",
		})
	}

	app := c.(*middleware.AppContext).App

	score, err := app.Trust.ForStandard(c.Request().Context(), standardID)
	if err != nil {
		logger.Error("Failed to compute trust score", "standard_id", standardID, "err", err)
		return c.JSON(http.StatusInternalServerError, trustResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, trustResponse{
		Message: "OK",
		Trust:   &score,
	})
}
