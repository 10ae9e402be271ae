package dispatcher

import (
	"sort"
	"strings"
)

// registerMetaCommands installs history, help, ai.raw, and quit/exit.
func (d *Dispatcher) registerMetaCommands() {
	d.register("history", cmdHistory)
	d.register("help", cmdHelp)
	d.register("ai.raw", cmdAiRaw)
	d.register("quit", cmdQuit)
	d.register("exit", cmdQuit)
}

// cmdAiRaw sends a prompt straight through the AI bridge: the pipeline
// stdin (if any) is appended after the argument text, so `cat /ctx |
// ai.raw summarize` works the obvious way.
func cmdAiRaw(d *Dispatcher, inv Invocation, stdin string) (Result, error) {
	if d.AI == nil {
		return Result{Success: false, Output: "no AI provider configured\n"}, nil
	}
	prompt := strings.Join(inv.Args, " ")
	if stdin != "" {
		if prompt != "" {
			prompt += "\n"
		}
		prompt += stdin
	}
	if prompt == "" {
		return Result{Success: false, Output: "empty prompt\n"}, nil
	}
	response, err := d.AI.Ask(prompt)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Output: response}, nil
}

func cmdHistory(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	if d.History == nil {
		return Result{Success: true}, nil
	}
	entries := d.History.Entries()
	if len(entries) == 0 {
		return Result{Success: true}, nil
	}
	return Result{Success: true, Output: strings.Join(entries, "\n") + "\n"}, nil
}

func cmdHelp(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return Result{Success: true, Output: strings.Join(names, "\n") + "\n"}, nil
}

// cmdQuit flushes any dirty tracked overlays and asks the REPL to stop.
func cmdQuit(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	if d.Autosave != nil {
		d.Autosave.FlushNow()
	}
	return Result{Success: true, ExitRequested: true}, nil
}
