package builtin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

func (s *Steps) registerSnapshots(r *steps.Registry) {
	r.Then("the variable $name matches the snapshot $snapshot", s.matchSnapshot)
}

// matchSnapshot compares a variable with a stored snapshot. Text holding a
// JSON document is compared as a document.
func (s *Steps) matchSnapshot(sc *steps.StepsContext, name, snapshotName string) error {
	name = strings.TrimSpace(name)
	value, ok := s.variable(sc, name)
	if !ok {
		return fmt.Errorf("variable %s is not set", name)
	}
	if text, isText := value.(string); isText {
		var doc any
		if err := json.Unmarshal([]byte(text), &doc); err == nil {
			value = doc
		}
	}

	result := s.snapshots.Compare(s.resolve(sc, snapshotName), value)
	if result.IsNew || result.WasUpdated {
		s.logger.Info(result.Message, "snapshot", strings.TrimSpace(snapshotName))
	}
	return result.Err()
}
