package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

func (s *Steps) registerVariables(r *steps.Registry) {
	r.Given("the variable $name is $value", s.setScenarioVariable)
	r.Given("the story variable $name is $value", s.setStoryVariable)
	r.Given("the variables: $table", s.setVariables)
	r.Given("a unique id stored as $name", s.storeUniqueID)
	r.When("I wait $duration", wait)
	r.Then("the variable $name should $expectation", s.checkVariable)
	r.Then("the following table should have $count rows: $table", checkRowCount)
}

func (s *Steps) setScenarioVariable(sc *steps.StepsContext, name, value string) error {
	return sc.Put(strings.TrimSpace(name), s.resolve(sc, value), model.ScopeScenario)
}

func (s *Steps) setStoryVariable(sc *steps.StepsContext, name, value string) error {
	return sc.Put(strings.TrimSpace(name), s.resolve(sc, value), model.ScopeStory)
}

// setVariables stores each row of a name/value table as a scenario
// variable.
func (s *Steps) setVariables(sc *steps.StepsContext, table *model.ExamplesTable) error {
	headers := table.Headers()
	if len(headers) < 2 {
		return fmt.Errorf("variables table needs name and value columns, got %v", headers)
	}
	nameCol, valueCol := headers[0], headers[1]
	for _, h := range headers {
		switch strings.ToLower(h) {
		case "name":
			nameCol = h
		case "value":
			valueCol = h
		}
	}
	for i, row := range table.Rows() {
		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			return fmt.Errorf("variables table row %d has no name", i)
		}
		if err := sc.Put(name, s.resolve(sc, row[valueCol]), model.ScopeScenario); err != nil {
			return err
		}
	}
	return nil
}

func (s *Steps) storeUniqueID(sc *steps.StepsContext, name string) error {
	return sc.Put(strings.TrimSpace(name), uuid.NewString(), model.ScopeScenario)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Steps) checkVariable(sc *steps.StepsContext, name, expectation string) error {
	name = strings.TrimSpace(name)
	actual, ok := s.variable(sc, name)
	if !ok {
		actual = nil
	}
	return s.evaluator.Check(name, actual, s.resolve(sc, expectation))
}

func checkRowCount(count int, table *model.ExamplesTable) error {
	if table.RowCount() != count {
		return fmt.Errorf("expected %d rows, got %d", count, table.RowCount())
	}
	return nil
}
