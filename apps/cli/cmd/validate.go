package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/storyspec/packages/builtin"
	"github.com/abdul-hamid-achik/storyspec/packages/core/config"
	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/parser"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
	"github.com/abdul-hamid-achik/storyspec/packages/logging"
)

var (
	validateStrictFlag bool
	validateConfigFlag string
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate story files for syntax errors",
	Long: `Validate story files for syntax errors without running them.

With --strict every step is also matched against the step library, and
pending or ambiguous steps are reported as errors.

Examples:
  storyspec validate login.story
  storyspec validate ./stories --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrictFlag, "strict", false, "Also match every step against the step library")
	validateCmd.Flags().StringVarP(&validateConfigFlag, "config", "c", "", "Path to config file")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	if len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no %s files found", StoryExtension))
	}

	var lib *steps.Library
	pending := steps.NewPendingMethods()
	if validateStrictFlag {
		cfg, err := config.LoadConfig(validateConfigFlag)
		if err != nil {
			return exitWith(ExitConfigError, err)
		}
		vars, err := loadVariables(cfg)
		if err != nil {
			return exitWith(ExitConfigError, err)
		}
		var b *builtin.Steps
		lib, b, err = buildLibrary(cfg, vars, logging.Nop())
		if err != nil {
			return exitWith(ExitConfigError, err)
		}
		defer b.Close()
		lib = lib.WithPending(pending)
	}

	p := parser.NewParser()
	if lib != nil {
		p = parser.NewParser(parser.WithKeywords(lib.Keywords()))
	}

	hasErrors := false
	for _, file := range files {
		story, err := p.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		if lib != nil {
			if problems := checkSteps(lib, story); len(problems) > 0 {
				for _, problem := range problems {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, problem)
				}
				hasErrors = true
				continue
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
	}

	if lib != nil {
		if methods := pending.List(); len(methods) > 0 {
			printPending(cmd.ErrOrStderr(), methods)
			hasErrors = true
		}
	}

	if hasErrors {
		return exitWith(ExitParseError, errors.New("validation failed"))
	}
	return nil
}

// checkSteps matches the lifecycle and scenario steps of story. Pending
// steps are left in the pending collector of lib.
func checkSteps(lib *steps.Library, story *model.Story) []error {
	var problems []error
	collect := func(where string, lines []string, params map[string]string) {
		if _, err := lib.Collect(lines, params); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", where, err))
		}
	}

	for _, scope := range []model.Scope{model.ScopeStory, model.ScopeScenario} {
		collect("lifecycle before "+scope.String(), story.Lifecycle.BeforeSteps(scope), nil)
		if _, err := lib.CollectAfter(story.Lifecycle.AfterSteps(scope), nil); err != nil {
			problems = append(problems, fmt.Errorf("lifecycle after %s: %w", scope, err))
		}
	}
	for i, scenario := range story.Scenarios {
		where := fmt.Sprintf("scenario %d", i+1)
		if scenario.Title != "" {
			where = fmt.Sprintf("scenario %q", scenario.Title)
		}
		if !scenario.HasExamples() {
			collect(where, scenario.Steps, nil)
			continue
		}
		for row := 0; row < scenario.Examples.RowCount(); row++ {
			collect(fmt.Sprintf("%s [example %d]", where, row+1), scenario.Steps, scenario.Examples.Row(row))
		}
	}
	return problems
}

func printPending(w io.Writer, pending []string) {
	fmt.Fprintf(w, "\n%d pending step(s), no matching step found:\n", len(pending))
	for _, method := range pending {
		fmt.Fprintf(w, "\n%s\n", method)
	}
}
