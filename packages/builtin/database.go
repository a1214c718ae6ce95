package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
	"github.com/abdul-hamid-achik/storyspec/packages/db"
)

const databaseKeyPrefix = "database."

// database is a named connection string bound to a story.
type database struct {
	name       string
	connection string
}

func (s *Steps) registerDatabases(r *steps.Registry) {
	r.Given("the database $name at $connection", s.openDatabase)
	r.When("I execute the SQL $statement on $name", s.execSQL)
	r.Then("the query $query on $name should return $count rows", s.checkQueryRows)
	r.Then("the column $column of the query $query on $name should $expectation", s.checkQueryColumn)
}

// openDatabase connects and names the database for the rest of the story.
// Naming it again with the same connection is a no-op.
func (s *Steps) openDatabase(ctx context.Context, sc *steps.StepsContext, name, connection string) error {
	name = strings.TrimSpace(name)
	connection = strings.TrimSpace(s.resolve(sc, connection))

	if existing, err := steps.Value[*database](sc, databaseKeyPrefix+name); err == nil {
		if existing.connection == connection {
			return nil
		}
		return fmt.Errorf("database %s is already bound to another connection", name)
	}
	if _, err := s.databases.Get(ctx, connection); err != nil {
		return fmt.Errorf("database %s: %w", name, err)
	}
	return sc.Put(databaseKeyPrefix+name, &database{name: name, connection: connection}, model.ScopeStory)
}

func (s *Steps) connect(ctx context.Context, sc *steps.StepsContext, name string) (*db.Client, error) {
	name = strings.TrimSpace(name)
	bound, err := steps.Value[*database](sc, databaseKeyPrefix+name)
	if err != nil {
		return nil, fmt.Errorf("unknown database %s", name)
	}
	return s.databases.Get(ctx, bound.connection)
}

func (s *Steps) query(ctx context.Context, sc *steps.StepsContext, name, query string) (*db.QueryResult, error) {
	c, err := s.connect(ctx, sc, name)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, s.resolve(sc, strings.TrimSpace(query)))
}

func (s *Steps) execSQL(ctx context.Context, sc *steps.StepsContext, statement, name string) error {
	c, err := s.connect(ctx, sc, name)
	if err != nil {
		return err
	}
	n, err := c.Exec(ctx, s.resolve(sc, strings.TrimSpace(statement)))
	if err != nil {
		return err
	}
	s.logger.Debug("statement executed", "database", strings.TrimSpace(name), "rows", n)
	return nil
}

func (s *Steps) checkQueryRows(ctx context.Context, sc *steps.StepsContext, query, name string, count int) error {
	result, err := s.query(ctx, sc, name, query)
	if err != nil {
		return err
	}
	if len(result.Rows) != count {
		return fmt.Errorf("query returned %d rows, expected %d", len(result.Rows), count)
	}
	return nil
}

// checkQueryColumn checks column of the first row the query returns.
func (s *Steps) checkQueryColumn(ctx context.Context, sc *steps.StepsContext, column, query, name, expectation string) error {
	result, err := s.query(ctx, sc, name, query)
	if err != nil {
		return err
	}
	column = strings.TrimSpace(column)
	actual, err := result.Value(column)
	if err != nil {
		return err
	}
	return s.evaluator.Check(column, actual, s.resolve(sc, expectation))
}
