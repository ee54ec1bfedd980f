package corpus

import (
	"embed"
	"fmt"
	"sort"

	"github.com/accredmap/backend/pkg/common"
)

//go:embed seed/*.yaml
var seedFS embed.FS

// Seed returns the bundled seed corpus. It is the fallback for reloads when
// the external corpus directory is missing, empty, or fails validation
// entirely; a service must never run with zero standards. The seed files go
// through the same parser and validation as external corpus files, so a
// failure here is a build defect, not a runtime condition.
func Seed() ([]common.Accreditor, error) {
	entries, err := seedFS.ReadDir("seed")
	if err != nil {
		return nil, fmt.Errorf("read seed corpus: %w", err)
	}

	accreditors := make([]common.Accreditor, 0, len(entries))
	for _, entry := range entries {
		path := "seed/" + entry.Name()
		data, err := seedFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file %s: %w", path, err)
		}
		acc, err := (yamlParser{}).Parse(data, path)
		if err != nil {
			return nil, fmt.Errorf("parse seed file %s: %w", path, err)
		}
		if err := Validate(acc); err != nil {
			return nil, fmt.Errorf("validate seed file %s: %w", path, err)
		}
		accreditors = append(accreditors, *acc)
	}

	if len(accreditors) == 0 {
		return nil, ErrEmptyCorpus
	}

	sort.Slice(accreditors, func(i, j int) bool {
		return accreditors[i].Code < accreditors[j].Code
	})

	return accreditors, nil
}
