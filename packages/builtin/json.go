package builtin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

func (s *Steps) registerJSON(r *steps.Registry) {
	r.Given("the JSON path $path of $source is stored as $name", s.storeJSONPath)
	r.Then("the JSON path $path of $source should $expectation", s.checkJSONPath)
}

// document returns the JSON text held by the variable source.
func (s *Steps) document(sc *steps.StepsContext, source string) (gjson.Result, error) {
	source = strings.TrimSpace(source)
	v, ok := s.variable(sc, source)
	if !ok {
		return gjson.Result{}, &steps.ObjectNotStoredError{Key: source}
	}

	var text string
	switch doc := v.(type) {
	case string:
		text = doc
	case []byte:
		text = string(doc)
	case gjson.Result:
		return doc, nil
	default:
		b, err := json.Marshal(doc)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("variable %s is not JSON: %w", source, err)
		}
		text = string(b)
	}
	if !gjson.Valid(text) {
		return gjson.Result{}, fmt.Errorf("variable %s does not hold valid JSON", source)
	}
	return gjson.Parse(text), nil
}

// extract returns the value at path, or nil when nothing is there. An
// empty path or "$" selects the whole document.
func extract(doc gjson.Result, path string) any {
	path = strings.TrimSpace(path)
	if path == "" || path == "$" {
		return doc.Value()
	}
	result := doc.Get(strings.TrimPrefix(path, "$."))
	if !result.Exists() {
		return nil
	}
	return result.Value()
}

func (s *Steps) storeJSONPath(sc *steps.StepsContext, path, source, name string) error {
	doc, err := s.document(sc, source)
	if err != nil {
		return err
	}
	value := extract(doc, s.resolve(sc, path))
	if value == nil {
		return fmt.Errorf("JSON path %s not found in %s", path, strings.TrimSpace(source))
	}
	return sc.Put(strings.TrimSpace(name), value, model.ScopeScenario)
}

func (s *Steps) checkJSONPath(sc *steps.StepsContext, path, source, expectation string) error {
	doc, err := s.document(sc, source)
	if err != nil {
		return err
	}
	path = s.resolve(sc, path)
	return s.evaluator.Check(strings.TrimSpace(path), extract(doc, path), s.resolve(sc, expectation))
}
