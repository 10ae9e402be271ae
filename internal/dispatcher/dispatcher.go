package dispatcher

import (
	"github.com/standardbeagle/vfsboot/internal/aibridge"
	"github.com/standardbeagle/vfsboot/internal/autosave"
	"github.com/standardbeagle/vfsboot/internal/history"
	"github.com/standardbeagle/vfsboot/internal/sast"
	"github.com/standardbeagle/vfsboot/internal/session"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// Result is the outcome of executing one Invocation, per spec.md §4.9's
// dispatcher contract execute(Invocation, stdin) -> {success, exit_requested, output}.
type Result struct {
	Success       bool
	ExitRequested bool
	Output        string
}

// Handler implements one command name. stdin is the previous pipeline
// stage's output (empty for the first stage).
type Handler func(d *Dispatcher, inv Invocation, stdin string) (Result, error)

// Dispatcher owns the session state and routes command lines through the
// tokenizer, chain parser, and per-command handler table.
type Dispatcher struct {
	Sess     *session.Session
	Autosave *autosave.Tracker
	History  *history.File
	AI       *aibridge.Bridge

	handlers map[string]Handler
	cpp      *cppBuilder
	env      *sast.Env // persistent global environment for eval
	solution int       // overlay id of the active solution, -1 when none
}

// New builds a Dispatcher over sess. autosaveTracker, historyFile, and ai
// may all be nil; the dispatcher degrades gracefully (no autosave
// notifications, no history recording, `ai.raw` fails with a message)
// when they are.
func New(sess *session.Session, autosaveTracker *autosave.Tracker, historyFile *history.File, ai *aibridge.Bridge) *Dispatcher {
	d := &Dispatcher{
		Sess:     sess,
		Autosave: autosaveTracker,
		History:  historyFile,
		AI:       ai,
		cpp:      newCppBuilder(),
		env:      sast.NewGlobalEnv(),
		solution: -1,
	}
	d.handlers = make(map[string]Handler)
	d.registerFsCommands()
	d.registerOverlayCommands()
	d.registerTagCommands()
	d.registerLogicCommands()
	d.registerPlanCommands()
	d.registerSastCommands()
	d.registerCppCommands()
	d.registerBuildCommands()
	d.registerMetaCommands()
	return d
}

func (d *Dispatcher) register(name string, h Handler) {
	d.handlers[name] = h
}

// Run tokenizes and executes a full command line: a sequence of chain
// entries joined by `&&`/`||`, each entry a `|`-pipeline with an optional
// `>`/`>>` redirect, per spec.md §4.9.
func (d *Dispatcher) Run(line string) (Result, error) {
	if d.History != nil {
		_ = d.History.Append(line)
	}

	toks, err := Tokenize(line)
	if err != nil {
		return Result{}, err
	}
	chain, err := ParseChain(toks)
	if err != nil {
		return Result{}, err
	}
	if len(chain) == 0 {
		return Result{Success: true}, nil
	}

	var last Result
	haveLast := false
	for _, entry := range chain {
		if haveLast {
			if entry.Logical == "&&" && !last.Success {
				continue
			}
			if entry.Logical == "||" && last.Success {
				continue
			}
		}
		res, err := d.runPipeline(entry.Pipeline)
		if err != nil {
			return Result{}, err
		}
		last = res
		haveLast = true
		if res.ExitRequested {
			return res, nil
		}
	}
	return last, nil
}

// runPipeline feeds each invocation's stdout to the next invocation's
// stdin, then writes the final stdout to the pipeline's redirect target
// (if any) in the session's current mutation overlay, clearing the
// user-visible output per spec.md §4.9.
func (d *Dispatcher) runPipeline(p Pipeline) (Result, error) {
	stdin := ""
	var final Result
	for _, inv := range p.Commands {
		res, err := d.execute(inv, stdin)
		if err != nil {
			// A failed command is an ordinary false result so that
			// `&&`/`||` chaining keeps working; only parse errors abort
			// the whole line (handled by Run before any execution).
			return Result{Success: false, Output: "error: " + err.Error() + "\n"}, nil
		}
		if res.ExitRequested {
			return res, nil
		}
		stdin = res.Output
		final = res
	}

	if p.Redirect != nil {
		if err := d.writeRedirect(*p.Redirect, final.Output); err != nil {
			return Result{Success: false, Output: "error: " + err.Error() + "\n"}, nil
		}
		final.Output = ""
	}
	return final, nil
}

func (d *Dispatcher) execute(inv Invocation, stdin string) (Result, error) {
	h, ok := d.handlers[inv.Name]
	if !ok {
		return Result{}, vferrors.UnknownCommand(inv.Name)
	}
	return h(d, inv, stdin)
}

func (d *Dispatcher) writeRedirect(r Redirect, data string) error {
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return err
	}
	abs := d.Sess.ResolvePath(r.Path)
	if r.Append {
		existing, readErr := d.Sess.Store.Read(abs, &ovl)
		if readErr == nil {
			data = existing + data
		}
	}
	if err := d.Sess.Store.Write(abs, []byte(data), ovl); err != nil {
		return err
	}
	d.noteMutation(ovl)
	return nil
}

// noteMutation tells the autosave tracker (if any) that ovl just changed.
func (d *Dispatcher) noteMutation(ovl int) {
	if d.Autosave != nil {
		d.Autosave.NoteMutation(ovl)
	}
}
