package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/accredmap/backend/internal/util"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/standards"
)

// ProcessReloadMessage rebuilds the standards graph from the corpus
// directory. A reload already running elsewhere is treated as success: the
// other reload will publish a generation at least as fresh as this request.
func ProcessReloadMessage(
	ctx context.Context,
	graph *standards.Graph,
	msg string,
) error {
	data := new(ReloadJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	dir := data.CorpusDir
	if dir == "" {
		dir = util.GetEnvString("CORPUS_DIR", "corpus")
	}

	stats, err := graph.Reload(ctx, dir, data.FallbackToSeed)
	if err != nil {
		if errors.Is(err, standards.ErrReloadInProgress) {
			logger.Info("[Queue] Reload already in progress, coalescing",
				"correlation_id", data.CorrelationID,
			)
			return nil
		}
		return err
	}

	logger.Info("[Queue] Corpus reloaded",
		"correlation_id", data.CorrelationID,
		"generation", stats.Generation,
		"accreditors", stats.AccreditorsLoaded,
		"skipped_files", len(stats.Errors),
		"used_seed", stats.UsedSeed,
	)
	return nil
}
