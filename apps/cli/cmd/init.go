package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/storyspec/packages/core/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new storyspec project",
	Long: `Initialize a new storyspec project in the current directory.

This creates:
  - storyspec.yaml                 - Configuration file
  - stories/example.story          - Example story

Examples:
  storyspec init
  storyspec init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleStory = `An example story

Meta:
@theme example

Narrative:
In order to learn how stories are written
As a new user
I want to run an example story
So that I can write my own

Lifecycle:
Before:
Scope: SCENARIO
Given the variable greeting is hello

Scenario: variables can be stored and checked
Meta: @smoke
Given the story variable team is core
Then the variable greeting should be hello
And the variable team should start with co

Scenario: commands are run in a shell
When I run the command echo <word>
Then the command output should be <word>
And the command should exit with 0

Examples:
|word|
|one|
|two|
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return initProject(cmd, cwd)
}

func initProject(cmd *cobra.Command, dir string) error {
	configFile := filepath.Join(dir, "storyspec.yaml")
	exampleFile := filepath.Join(dir, "stories", "example"+StoryExtension)

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.StoryPaths = []string{"stories"}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.MkdirAll(filepath.Dir(exampleFile), 0755); err != nil {
		return fmt.Errorf("failed to create stories directory: %w", err)
	}
	if err := os.WriteFile(exampleFile, []byte(exampleStory), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nstoryspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'storyspec run' to execute the example story.\n")
	return nil
}
