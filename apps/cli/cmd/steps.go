package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/storyspec/packages/core/config"
	"github.com/abdul-hamid-achik/storyspec/packages/logging"
)

var (
	stepsConfigFlag    string
	stepsFunctionsFlag bool
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the available steps",
	Long: `List the step patterns the builtin library provides, in priority order.
Composite steps are shown with the steps they expand into.

Examples:
  storyspec steps
  storyspec steps --functions`,
	Args: cobra.NoArgs,
	RunE: stepsCommand,
}

func init() {
	stepsCmd.Flags().StringVarP(&stepsConfigFlag, "config", "c", "", "Path to config file")
	stepsCmd.Flags().BoolVar(&stepsFunctionsFlag, "functions", false, "List the {{function()}} helpers instead")
}

func stepsCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(stepsConfigFlag)
	if err != nil {
		return exitWith(ExitConfigError, err)
	}
	lib, b, err := buildLibrary(cfg, nil, logging.Nop())
	if err != nil {
		return exitWith(ExitConfigError, err)
	}
	defer b.Close()

	out := cmd.OutOrStdout()
	if stepsFunctionsFlag {
		for _, name := range b.Functions().Names() {
			fmt.Fprintf(out, "{{%s()}}\n", name)
		}
		return nil
	}

	for _, c := range lib.Candidates() {
		line := c.String()
		if c.Priority != 0 {
			line = fmt.Sprintf("%s (priority %d)", line, c.Priority)
		}
		fmt.Fprintln(out, line)
		if c.IsComposite() {
			fmt.Fprintf(out, "    %s\n", strings.Join(c.Composite(), "\n    "))
		}
	}
	return nil
}
