package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/parser"
)

var listMetaFilterFlag string

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the scenarios of story files",
	Long: `List the scenarios defined in .story files with their meta.

Examples:
  storyspec list login.story
  storyspec list ./stories --meta-filter "+smoke"`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVarP(&listMetaFilterFlag, "meta-filter", "m", "", "List only scenarios whose meta matches")
}

func listCommand(cmd *cobra.Command, args []string) error {
	filter, err := model.ParseMetaFilter(listMetaFilterFlag)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	files, err := collectFiles(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}
	if len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no %s files found", StoryExtension))
	}

	out := cmd.OutOrStdout()
	for _, file := range files {
		story, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}
		var allowed []*model.Scenario
		for _, scenario := range story.Scenarios {
			if filter.Allow(scenario.Meta.InheritFrom(story.Meta)) {
				allowed = append(allowed, scenario)
			}
		}
		if len(allowed) == 0 && !filter.Allow(story.Meta) {
			continue
		}

		fmt.Fprintf(out, "\n%s: %s\n", file, story.Title())
		if !story.Meta.IsEmpty() {
			fmt.Fprintf(out, "  meta: %s\n", story.Meta)
		}
		for _, scenario := range allowed {
			title := scenario.Title
			if title == "" {
				title = "(untitled)"
			}
			if scenario.HasExamples() {
				fmt.Fprintf(out, "  - %s (%d examples)\n", title, scenario.Examples.RowCount())
			} else {
				fmt.Fprintf(out, "  - %s\n", title)
			}
			if !scenario.Meta.IsEmpty() {
				fmt.Fprintf(out, "    meta: %s\n", scenario.Meta)
			}
		}
	}
	return nil
}
