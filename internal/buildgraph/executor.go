package buildgraph

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// ShellExecutor is the default Executor: it runs each Shell command in
// rule.Commands through the platform shell, appending stdout and stderr
// to result.Output and stopping (with result.Errors populated) on the
// first non-Shell command or non-zero exit, matching
// BuildGraph::runShellCommands.
func ShellExecutor(ctx context.Context, rule Rule, result *Result, verbose bool) bool {
	for _, cmd := range rule.Commands {
		if cmd.Kind != CommandShell {
			result.Errors = append(result.Errors, "Unsupported command type for rule: "+rule.Name)
			return false
		}
		if verbose {
			result.Output += cmd.Text + "\n"
		}

		c := exec.CommandContext(ctx, "sh", "-c", cmd.Text)
		var out bytes.Buffer
		c.Stdout = &out
		c.Stderr = &out
		if err := c.Run(); err != nil {
			result.Output += out.String()
			result.Errors = append(result.Errors, "Command failed: "+cmd.Text+": "+err.Error())
			return false
		}
		result.Output += out.String()
	}
	return true
}

// DryRunExecutor records each rule's commands into result.Output
// without running anything, and always "succeeds" — used by `make
// --dry-run` to print a plan without executing it.
func DryRunExecutor(ctx context.Context, rule Rule, result *Result, verbose bool) bool {
	for _, cmd := range rule.Commands {
		result.Output += "[dry-run] " + cmd.Text + "\n"
	}
	result.TargetsBuilt = append(result.TargetsBuilt, rule.Name)
	return true
}

// getModTime returns a host path's modification time as a Unix
// timestamp, or false if it can't be stat'd (build_graph.cpp's
// getModTime, using stat(2)).
func getModTime(path string) (uint64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return uint64(info.ModTime().Unix()), true
}
