package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/storyspec/packages/core/loader"
	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/parser"
	"github.com/abdul-hamid-achik/storyspec/packages/core/reporter"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
	"github.com/abdul-hamid-achik/storyspec/packages/logging"
)

// Embedder runs stories against a step library.
type Embedder struct {
	library  *steps.Library
	config   *Config
	filter   *model.MetaFilter
	loader   loader.ResourceLoader
	parser   *parser.Parser
	reporter reporter.StoryReporter
	logger   *logging.Logger
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithLoader sets where story paths are read from. The default reads files.
func WithLoader(l loader.ResourceLoader) Option {
	return func(e *Embedder) {
		e.loader = l
	}
}

// WithReporter sets the reporter receiving the events of every story.
// Several reporters can be combined with reporter.NewDelegating.
func WithReporter(r reporter.StoryReporter) Option {
	return func(e *Embedder) {
		e.reporter = r
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(e *Embedder) {
		e.logger = l
	}
}

// WithParser replaces the parser built from the library keywords.
func WithParser(p *parser.Parser) Option {
	return func(e *Embedder) {
		e.parser = p
	}
}

// NewEmbedder creates an embedder. A nil config uses DefaultConfig.
func NewEmbedder(lib *steps.Library, cfg *Config, opts ...Option) (*Embedder, error) {
	if lib == nil {
		return nil, errors.New("step library is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	filter, err := model.ParseMetaFilter(cfg.MetaFilter)
	if err != nil {
		return nil, err
	}

	e := &Embedder{
		library:  lib,
		config:   cfg,
		filter:   filter,
		loader:   loader.FileLoader{},
		reporter: reporter.NullReporter{},
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parser == nil {
		e.parser = parser.NewParser(
			parser.WithKeywords(lib.Keywords()),
			parser.WithTableTransformers(lib.Converters().Transformers()),
		)
	}
	return e, nil
}

// Config returns the run configuration.
func (e *Embedder) Config() *Config {
	return e.config
}

// RunStoriesAsPaths loads, parses and runs the stories at paths.
func (e *Embedder) RunStoriesAsPaths(ctx context.Context, paths []string) (*RunResult, error) {
	p := e.planner()
	stories := make([]*model.Story, 0, len(paths))
	for _, path := range paths {
		story, err := p.load(path, "")
		if err != nil {
			e.logger.Error(err, "loading story failed", "story", path)
			return nil, &PlanError{Path: path, Err: err}
		}
		stories = append(stories, story)
	}
	return e.run(ctx, p, stories)
}

// RunStories runs parsed stories. Given stories they reference are loaded
// with the embedder's loader.
func (e *Embedder) RunStories(ctx context.Context, stories []*model.Story) (*RunResult, error) {
	return e.run(ctx, e.planner(), stories)
}

func (e *Embedder) planner() *planner {
	return newPlanner(e.library, e.loader, e.parser, e.filter)
}

// run plans every story before running any, so that an ambiguous step or a
// cycle stops the whole run up front.
func (e *Embedder) run(ctx context.Context, p *planner, stories []*model.Story) (*RunResult, error) {
	start := time.Now()
	plans := make([]*storyPlan, 0, len(stories))
	for _, story := range stories {
		plan, err := p.plan(story)
		if err != nil {
			e.logger.Error(err, "planning story failed", "story", story.Path)
			return nil, &PlanError{Path: story.Path, Err: err}
		}
		plans = append(plans, plan)
	}

	e.logger.Debug("running stories", "stories", len(plans), "threads", e.config.threads())
	result := &RunResult{Stories: e.runParallel(ctx, plans)}
	result.PendingMethods = p.pending.List()
	e.reporter.PendingMethods(result.PendingMethods)
	result.Duration = time.Since(start)

	if result.Failed() && !e.config.IgnoreFailureInView {
		return result, &RunFailedError{Failed: result.FailedPaths(), Total: len(result.Stories)}
	}
	return result, nil
}

// runParallel runs stories on a pool of Threads workers. Each story reports
// into its own buffer, replayed whole once the story is done.
func (e *Embedder) runParallel(ctx context.Context, plans []*storyPlan) []*StoryResult {
	results := make([]*StoryResult, len(plans))
	var wg sync.WaitGroup
	var replay sync.Mutex
	sem := make(chan struct{}, e.config.threads())

	for i, plan := range plans {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, plan *storyPlan) {
			defer wg.Done()
			defer func() { <-sem }()

			buffered := reporter.NewConcurrent(e.reporter)
			results[idx] = e.runStory(ctx, plan, buffered)

			replay.Lock()
			buffered.Replay()
			replay.Unlock()
		}(i, plan)
	}

	wg.Wait()
	return results
}

func (e *Embedder) runStory(ctx context.Context, plan *storyPlan, rep reporter.StoryReporter) *StoryResult {
	if e.config.StoryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.StoryTimeout)
		defer cancel()
	}

	log := e.logger.With("story", plan.path)
	log.Debug("story started")
	res, err := newStoryRunner(e.config, rep, log, e.filter.String()).run(ctx, plan)

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		res.Cancelled = true
		res.Failed = true
		res.Err = &StoryTimeoutError{Path: plan.path, Timeout: e.config.StoryTimeout}
		log.Warn("story timed out", "timeout", e.config.StoryTimeout)
	default:
		res.Failed = true
		res.Err = fmt.Errorf("story %s: %w", plan.path, err)
		log.Error(err, "story aborted")
	}
	log.Debug("story finished", "failed", res.Failed, "duration", res.Duration)
	return res
}
