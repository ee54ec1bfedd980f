package corpus

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/accredmap/backend/pkg/common"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// fileAccreditor is the on-disk shape of an accreditor definition file.
// Both the YAML and the JSON strategies decode into this shape so the graph
// builder never sees per-source format differences.
type fileAccreditor struct {
	Code          string         `yaml:"code" json:"code" validate:"required"`
	Name          string         `yaml:"name" json:"name" validate:"required"`
	CorpusVersion string         `yaml:"corpus_version" json:"corpus_version"`
	Standards     []fileStandard `yaml:"standards" json:"standards" validate:"required,min=1,dive"`
}

type fileStandard struct {
	ID          string       `yaml:"id" json:"id" validate:"required"`
	Title       string       `yaml:"title" json:"title" validate:"required"`
	Description string       `yaml:"description" json:"description"`
	CrossRefs   []string     `yaml:"cross_refs" json:"cross_refs"`
	Clauses     []fileClause `yaml:"clauses" json:"clauses" validate:"dive"`
}

type fileClause struct {
	ID         string          `yaml:"id" json:"id" validate:"required"`
	Text       string          `yaml:"text" json:"text" validate:"required"`
	Indicators []fileIndicator `yaml:"indicators" json:"indicators" validate:"dive"`
}

type fileIndicator struct {
	ID     string   `yaml:"id" json:"id" validate:"required"`
	Text   string   `yaml:"text" json:"text" validate:"required"`
	Weight *float64 `yaml:"weight" json:"weight" validate:"omitempty,gte=0,lte=1"`
}

type parser interface {
	Parse(data []byte, sourceFile string) (*common.Accreditor, error)
}

var structValidator = validator.New()

// parserFor selects a parser strategy from the file extension. Unknown
// extensions return nil and the file is ignored by the loader.
func parserFor(path string) parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlParser{}
	case ".json":
		return jsonParser{}
	default:
		return nil
	}
}

type yamlParser struct{}

func (yamlParser) Parse(data []byte, sourceFile string) (*common.Accreditor, error) {
	var raw fileAccreditor
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return normalize(&raw, sourceFile)
}

type jsonParser struct{}

func (jsonParser) Parse(data []byte, sourceFile string) (*common.Accreditor, error) {
	var raw fileAccreditor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return normalize(&raw, sourceFile)
}

// normalize converts the on-disk shape to the domain shape, applying the
// sibling-split default for indicator weights.
func normalize(raw *fileAccreditor, sourceFile string) (*common.Accreditor, error) {
	if err := structValidator.Struct(raw); err != nil {
		return &common.Accreditor{Code: raw.Code}, fmt.Errorf("validate schema: %w", err)
	}

	acc := &common.Accreditor{
		Code:          raw.Code,
		Name:          raw.Name,
		CorpusVersion: raw.CorpusVersion,
		SourceFile:    sourceFile,
		Standards:     make([]common.Standard, 0, len(raw.Standards)),
	}

	for _, rs := range raw.Standards {
		std := common.Standard{
			ID:          rs.ID,
			Accreditor:  raw.Code,
			Title:       rs.Title,
			Description: rs.Description,
			CrossRefs:   rs.CrossRefs,
			Clauses:     make([]common.Clause, 0, len(rs.Clauses)),
		}
		for _, rc := range rs.Clauses {
			clause := common.Clause{
				ID:         rc.ID,
				Text:       rc.Text,
				Indicators: make([]common.Indicator, 0, len(rc.Indicators)),
			}
			defaultWeight := 0.0
			if len(rc.Indicators) > 0 {
				defaultWeight = 1.0 / float64(len(rc.Indicators))
			}
			for _, ri := range rc.Indicators {
				weight := defaultWeight
				if ri.Weight != nil {
					weight = *ri.Weight
				}
				clause.Indicators = append(clause.Indicators, common.Indicator{
					ID:     ri.ID,
					Text:   ri.Text,
					Weight: weight,
				})
			}
			std.Clauses = append(std.Clauses, clause)
		}
		acc.Standards = append(acc.Standards, std)
	}

	return acc, nil
}
