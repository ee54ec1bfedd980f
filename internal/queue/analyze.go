package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/standards"
	"github.com/accredmap/backend/pkg/store"
)

// ProcessAnalyzeMessage scores one document against the current graph
// generation and replaces its mapping set. A busy document (another upsert
// in flight) is returned as an error so the message lands in the retry
// queue and runs again once the lease clears.
func ProcessAnalyzeMessage(
	ctx context.Context,
	engine *match.Engine,
	graph *standards.Graph,
	mappings store.MappingStore,
	msg string,
) error {
	data := new(AnalyzeJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}
	if data.DocumentID == "" {
		return fmt.Errorf("analyze job without document_id")
	}

	gen := graph.Current()
	candidates, err := engine.Analyze(ctx, gen, data.Text, data.Scope)
	if err != nil {
		return err
	}

	count, err := mappings.Upsert(ctx, data.DocumentID, candidates)
	if err != nil {
		if errors.Is(err, store.ErrAnalysisInProgress) {
			logger.Info("[Queue] Document busy, retrying later",
				"document_id", data.DocumentID,
				"correlation_id", data.CorrelationID,
			)
		}
		return err
	}

	logger.Info("[Queue] Document analyzed",
		"document_id", data.DocumentID,
		"correlation_id", data.CorrelationID,
		"generation", gen.ID(),
		"mappings", count,
	)
	return nil
}
