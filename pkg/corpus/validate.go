package corpus

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/accredmap/backend/pkg/common"
)

var idSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks the structural invariants of a normalized accreditor:
// the code is uppercase, every id matches the <CODE>.<segment>[.<segment>...]
// namespacing pattern, standard ids are unique within the accreditor, and
// every clause and indicator id is namespaced under its parent id.
func Validate(acc *common.Accreditor) error {
	if acc.Code == "" {
		return fmt.Errorf("accreditor code is empty")
	}
	if !idSegment.MatchString(acc.Code) {
		return fmt.Errorf("accreditor code %q contains invalid characters", acc.Code)
	}
	if acc.Code != strings.ToUpper(acc.Code) {
		return fmt.Errorf("accreditor code %q must be uppercase", acc.Code)
	}

	seen := make(map[string]struct{}, len(acc.Standards))
	for _, std := range acc.Standards {
		if err := validateID(std.ID, acc.Code); err != nil {
			return err
		}
		if _, dup := seen[std.ID]; dup {
			return fmt.Errorf("duplicate standard id %q", std.ID)
		}
		seen[std.ID] = struct{}{}

		for _, clause := range std.Clauses {
			if err := validateChildID(clause.ID, std.ID, acc.Code); err != nil {
				return err
			}
			for _, ind := range clause.Indicators {
				if err := validateChildID(ind.ID, clause.ID, acc.Code); err != nil {
					return err
				}
				if ind.Weight < 0 || ind.Weight > 1 {
					return fmt.Errorf("indicator %q weight %v out of range [0,1]", ind.ID, ind.Weight)
				}
			}
		}
	}

	return nil
}

func validateID(id, code string) error {
	rest, ok := strings.CutPrefix(id, code+".")
	if !ok || rest == "" {
		return fmt.Errorf("id %q is not namespaced under accreditor %q", id, code)
	}
	for _, segment := range strings.Split(rest, ".") {
		if !idSegment.MatchString(segment) {
			return fmt.Errorf("id %q contains invalid segment %q", id, segment)
		}
	}
	return nil
}

// validateChildID requires a child id to extend its parent id by at least
// one segment, which is how parent references are expressed in the nested
// file format.
func validateChildID(id, parentID, code string) error {
	if err := validateID(id, code); err != nil {
		return err
	}
	if rest, ok := strings.CutPrefix(id, parentID+"."); !ok || rest == "" {
		return fmt.Errorf("id %q does not reference parent %q", id, parentID)
	}
	return nil
}
