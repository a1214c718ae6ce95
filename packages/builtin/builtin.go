package builtin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/assertions"
	"github.com/abdul-hamid-achik/storyspec/packages/core/env"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
	"github.com/abdul-hamid-achik/storyspec/packages/db"
	"github.com/abdul-hamid-achik/storyspec/packages/logging"
	"github.com/abdul-hamid-achik/storyspec/packages/snapshot"
)

const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultRequestTimeout = 5 * time.Second
)

// Steps is the provider of general purpose steps. One Steps serves every
// story of a run; per-story state lives in the StepsContext.
type Steps struct {
	functions    *Functions
	resolver     *env.Resolver
	evaluator    *assertions.Evaluator
	databases    *db.Pool
	snapshots    *snapshot.Manager
	client       *http.Client
	baseDir      string
	pollInterval time.Duration
	logger       *logging.Logger
}

// Option configures Steps.
type Option func(*Steps)

// WithBaseDir sets where commands run and schema files are found.
func WithBaseDir(dir string) Option {
	return func(s *Steps) {
		s.baseDir = dir
	}
}

// WithVariables seeds variables visible to every story.
func WithVariables(vars map[string]any) Option {
	return func(s *Steps) {
		s.resolver.SetVariables(vars)
	}
}

// WithLogger sets the logger for warnings and step diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(s *Steps) {
		s.logger = l
	}
}

// WithSnapshots sets where snapshot steps keep their values.
func WithSnapshots(m *snapshot.Manager) Option {
	return func(s *Steps) {
		s.snapshots = m
	}
}

// WithHTTPClient replaces the client used by the HTTP steps.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Steps) {
		s.client = c
	}
}

// WithPollInterval sets how often service readiness is checked.
func WithPollInterval(d time.Duration) Option {
	return func(s *Steps) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// New creates the built-in steps with their own resolver, functions and database pool.
func New(opts ...Option) *Steps {
	s := &Steps{
		functions:    NewFunctions(),
		databases:    db.NewPool(),
		client:       &http.Client{Timeout: DefaultRequestTimeout},
		pollInterval: DefaultPollInterval,
		logger:       logging.Nop(),
	}
	s.resolver = env.NewResolver(s.functions)
	for _, opt := range opts {
		opt(s)
	}
	s.evaluator = assertions.NewEvaluator(assertions.WithBaseDir(s.baseDir))
	if s.snapshots == nil {
		s.snapshots = snapshot.NewManager(s.baseDir, false)
	}
	s.functions.warn = func(format string, args ...any) {
		s.logger.Warn(fmt.Sprintf(format, args...))
	}
	s.resolver.SetWarnFunc(func(format string, args ...any) {
		s.logger.Debug(fmt.Sprintf(format, args...))
	})
	return s
}

// Functions returns the template functions available in "{{...}}" expressions.
func (s *Steps) Functions() *Functions {
	return s.functions
}

// Register adds every built-in step to r.
func (s *Steps) Register(r *steps.Registry) {
	s.registerVariables(r)
	s.registerJSON(r)
	s.registerCommands(r)
	s.registerServices(r)
	s.registerDatabases(r)
	s.registerSnapshots(r)
}

// Close releases database connections opened by the steps.
func (s *Steps) Close() error {
	return s.databases.Close()
}

// resolve expands {{...}} references in text against the story's
// variables.
func (s *Steps) resolve(sc *steps.StepsContext, text string) string {
	return s.resolver.Resolve(text, lookup(sc))
}

func (s *Steps) variable(sc *steps.StepsContext, name string) (any, bool) {
	return s.resolver.GetVariable(name, lookup(sc))
}

func lookup(sc *steps.StepsContext) env.Lookup {
	return func(name string) (any, bool) {
		if sc == nil {
			return nil, false
		}
		v, err := sc.Get(name)
		return v, err == nil
	}
}
