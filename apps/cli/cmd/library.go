package cmd

import (
	"fmt"
	"os"

	"golang.org/x/text/language"

	"github.com/abdul-hamid-achik/storyspec/packages/builtin"
	"github.com/abdul-hamid-achik/storyspec/packages/core/config"
	"github.com/abdul-hamid-achik/storyspec/packages/core/convert"
	"github.com/abdul-hamid-achik/storyspec/packages/core/env"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
	"github.com/abdul-hamid-achik/storyspec/packages/logging"
	"github.com/abdul-hamid-achik/storyspec/packages/snapshot"
)

// loadVariables merges STORYSPEC_VAR_* environment variables, the env files
// and the configured variables, in increasing precedence.
func loadVariables(cfg *config.Config) (map[string]any, error) {
	extra := make(map[string]any, len(cfg.Variables))
	for k, v := range cfg.Variables {
		extra[k] = v
	}
	return env.LoadVariables(env.VariablePrefix, extra, cfg.EnvFiles...)
}

func converterOptions(cfg *config.Config) ([]convert.Option, error) {
	var opts []convert.Option
	if cfg.Locale != "" {
		tag, err := language.Parse(cfg.Locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", cfg.Locale, err)
		}
		opts = append(opts, convert.WithLocale(tag))
	}
	if cfg.DateLayout != "" {
		opts = append(opts, convert.WithDateLayout(cfg.DateLayout))
	}
	if cfg.ListDelimiter != "" {
		opts = append(opts, convert.WithListDelimiter(cfg.ListDelimiter))
	}
	return opts, nil
}

// buildLibrary registers the builtin steps with the configured converters
// and tie-break. The returned Steps must be closed.
func buildLibrary(cfg *config.Config, vars map[string]any, logger *logging.Logger) (*steps.Library, *builtin.Steps, error) {
	tieBreak, err := steps.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, nil, err
	}
	convOpts, err := converterOptions(cfg)
	if err != nil {
		return nil, nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	b := builtin.New(
		builtin.WithBaseDir(cwd),
		builtin.WithVariables(vars),
		builtin.WithLogger(logger),
		builtin.WithSnapshots(snapshot.NewManager(cwd, cfg.GetUpdateSnapshots())),
	)

	r := steps.NewRegistry(
		steps.WithTieBreak(tieBreak),
		steps.WithConverters(convert.New(convOpts...)),
	)
	r.AddProvider(b)
	lib, err := r.Build()
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	return lib, b, nil
}
