package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/accredmap/backend/pkg/common"
	"github.com/accredmap/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyCorpus is returned by callers when a load produced no accreditors
// at all. The loader itself reports per-file failures in LoadResult.Errors
// and never fails the whole call for a single bad file.
var ErrEmptyCorpus = errors.New("corpus contains no loadable accreditors")

// LoadError records a single accreditor file that could not be parsed or
// validated. The accreditor code may be empty when the failure happened
// before the code was known.
type LoadError struct {
	File       string `json:"file"`
	Accreditor string `json:"accreditor,omitempty"`
	Message    string `json:"message"`
}

func (e LoadError) Error() string {
	if e.Accreditor != "" {
		return fmt.Sprintf("%s (%s): %s", e.File, e.Accreditor, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// LoadResult is the outcome of reading a corpus directory. Accreditors holds
// every file that parsed and validated; Errors holds one entry per file that
// did not.
type LoadResult struct {
	Accreditors []common.Accreditor
	Errors      []LoadError
}

// Load reads one structured definition file per accreditor from dir.
// A parse or validation failure for one file is captured as a LoadError and
// that accreditor is skipped; the call still succeeds with the remaining
// accreditors. A missing or empty directory yields an empty result with a
// single error entry describing the directory, leaving the seed fallback
// decision to the caller.
func Load(ctx context.Context, dir string) (*LoadResult, error) {
	result := &LoadResult{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		result.Errors = append(result.Errors, LoadError{
			File:    dir,
			Message: fmt.Sprintf("read corpus directory: %v", err),
		})
		return result, nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if parserFor(entry.Name()) == nil {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	if len(files) == 0 {
		result.Errors = append(result.Errors, LoadError{
			File:    dir,
			Message: "no accreditor definition files found",
		})
		return result, nil
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	mutex := sync.Mutex{}

	for _, file := range files {
		f := file
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			acc, loadErr := loadFile(f)

			mutex.Lock()
			defer mutex.Unlock()
			if loadErr != nil {
				logger.Warn("[Corpus] Skipping accreditor file", "file", f, "err", loadErr.Message)
				result.Errors = append(result.Errors, *loadErr)
				return nil
			}
			result.Accreditors = append(result.Accreditors, *acc)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Accreditors, func(i, j int) bool {
		return result.Accreditors[i].Code < result.Accreditors[j].Code
	})
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].File < result.Errors[j].File
	})

	logger.Info("[Corpus] Load completed",
		"dir", dir,
		"accreditors", len(result.Accreditors),
		"errors", len(result.Errors),
	)

	return result, nil
}

func loadFile(path string) (*common.Accreditor, *LoadError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("read file: %v", err)}
	}

	p := parserFor(path)
	if p == nil {
		return nil, &LoadError{File: path, Message: "unsupported file format"}
	}

	acc, err := p.Parse(data, path)
	if err != nil {
		code := ""
		if acc != nil {
			code = acc.Code
		}
		return nil, &LoadError{File: path, Accreditor: code, Message: err.Error()}
	}

	if err := Validate(acc); err != nil {
		return nil, &LoadError{File: path, Accreditor: acc.Code, Message: err.Error()}
	}

	expected := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if expected != acc.Code {
		logger.Debug("[Corpus] File name does not match accreditor code", "file", path, "code", acc.Code)
	}

	return acc, nil
}
