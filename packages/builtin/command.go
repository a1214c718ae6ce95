package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/storyspec/packages/core/model"
	"github.com/abdul-hamid-achik/storyspec/packages/core/steps"
)

// lastCommandKey holds the *CommandResult of the scenario's latest command.
const lastCommandKey = "command.last"

// CommandResult is the captured outcome of a shell command step.
type CommandResult struct {
	Command  string
	Output   string
	ExitCode int
}

func (s *Steps) registerCommands(r *steps.Registry) {
	r.When("I run the command $command", s.runCommand)
	r.Then("the command should exit with $code", exitCode)
	r.Then("the command output should $expectation", s.checkOutput)
	r.Composite(steps.Given, "the command $command succeeds",
		"When I run the command <command>",
		"Then the command should exit with 0")
}

// runCommand runs command with sh -c in the base directory. A leading "-"
// keeps a non-zero exit from failing the step; the exit code is still
// recorded for later checks.
func (s *Steps) runCommand(ctx context.Context, sc *steps.StepsContext, command string) error {
	cmdStr := strings.TrimSpace(s.resolve(sc, command))
	if cmdStr == "" {
		return fmt.Errorf("empty command")
	}
	ignoreError := strings.HasPrefix(cmdStr, "-")
	if ignoreError {
		cmdStr = strings.TrimSpace(strings.TrimPrefix(cmdStr, "-"))
	}
	cmdStr = s.resolveExecutable(cmdStr)

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = s.baseDir
	cmd.Env = os.Environ()
	output, err := cmd.CombinedOutput()

	result := &CommandResult{Command: cmdStr, Output: string(output)}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return fmt.Errorf("command %q failed to start: %w", cmdStr, err)
	}
	s.logger.Debug("command finished", "command", cmdStr, "exitCode", result.ExitCode)

	if err := storeCommand(sc, result); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if result.ExitCode != 0 && !ignoreError {
		return fmt.Errorf("command %q exited with %d\nOutput: %s", cmdStr, result.ExitCode, output)
	}
	return nil
}

// resolveExecutable makes a relative executable, or a script found in the
// base directory, absolute against the base directory.
func (s *Steps) resolveExecutable(cmdStr string) string {
	if s.baseDir == "" {
		return cmdStr
	}
	parts := strings.Fields(cmdStr)
	if len(parts) == 0 {
		return cmdStr
	}
	executable := parts[0]
	switch {
	case strings.HasPrefix(executable, "./"), strings.HasPrefix(executable, "../"):
		parts[0] = filepath.Join(s.baseDir, executable)
	case !filepath.IsAbs(executable) && !isInPath(executable):
		candidate := filepath.Join(s.baseDir, executable)
		if _, err := os.Stat(candidate); err != nil {
			return cmdStr
		}
		parts[0] = candidate
	default:
		return cmdStr
	}
	return strings.Join(parts, " ")
}

func isInPath(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// storeCommand records result as the scenario's latest command, reusing the
// stored slot since a key can be put only once per scope.
func storeCommand(sc *steps.StepsContext, result *CommandResult) error {
	last, err := steps.Value[*CommandResult](sc, lastCommandKey)
	if err == nil {
		*last = *result
		return nil
	}
	return sc.Put(lastCommandKey, result, model.ScopeScenario)
}

func lastCommand(sc *steps.StepsContext) (*CommandResult, error) {
	last, err := steps.Value[*CommandResult](sc, lastCommandKey)
	if err != nil {
		return nil, fmt.Errorf("no command has run in this scenario")
	}
	return last, nil
}

func exitCode(sc *steps.StepsContext, code int) error {
	last, err := lastCommand(sc)
	if err != nil {
		return err
	}
	if last.ExitCode != code {
		return fmt.Errorf("command %q exited with %d, expected %d", last.Command, last.ExitCode, code)
	}
	return nil
}

func (s *Steps) checkOutput(sc *steps.StepsContext, expectation string) error {
	last, err := lastCommand(sc)
	if err != nil {
		return err
	}
	return s.evaluator.Check("output", strings.TrimSpace(last.Output), s.resolve(sc, expectation))
}
