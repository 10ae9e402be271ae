package dispatcher

import "github.com/standardbeagle/vfsboot/internal/vferrors"

// Invocation is one command name plus its argument words.
type Invocation struct {
	Name string
	Args []string
}

// Redirect is a trailing `>`/`>>` target on a pipeline.
type Redirect struct {
	Path   string
	Append bool
}

// Pipeline is one or more Invocations chained with `|`, with an optional
// trailing redirect.
type Pipeline struct {
	Commands []Invocation
	Redirect *Redirect
}

// ChainEntry is one pipeline plus the logical operator (`` / `&&` / `||`)
// that joined it to the previous entry.
type ChainEntry struct {
	Logical  string
	Pipeline Pipeline
}

// ParseChain groups a token stream into chain entries per spec.md §4.9:
// pipelines split on `|`, chained on `&&`/`||`, each pipeline ending in an
// optional redirect. A missing command after an operator, a trailing
// operator, or a redirect with no target is a ParseError.
func ParseChain(toks []Token) ([]ChainEntry, error) {
	if len(toks) == 0 {
		return nil, nil
	}

	var entries []ChainEntry
	logical := ""
	i := 0

	for i < len(toks) {
		pipeline, consumed, err := parsePipeline(toks[i:])
		if err != nil {
			return nil, err
		}
		entries = append(entries, ChainEntry{Logical: logical, Pipeline: pipeline})
		i += consumed

		if i >= len(toks) {
			break
		}
		switch toks[i].Kind {
		case And:
			logical = "&&"
			i++
		case Or:
			logical = "||"
			i++
		default:
			return nil, vferrors.ParseError("chain", "unexpected token after pipeline")
		}
		if i >= len(toks) {
			return nil, vferrors.ParseError("chain", "trailing operator with no following command")
		}
	}
	return entries, nil
}

// parsePipeline consumes one `|`-joined sequence of Invocations plus an
// optional trailing redirect from the front of toks, stopping before a
// `&&`/`||` token, and reports how many tokens it consumed.
func parsePipeline(toks []Token) (Pipeline, int, error) {
	var pipeline Pipeline
	i := 0

	for {
		inv, consumed, err := parseInvocation(toks[i:])
		if err != nil {
			return Pipeline{}, 0, err
		}
		pipeline.Commands = append(pipeline.Commands, inv)
		i += consumed

		if i >= len(toks) {
			return pipeline, i, nil
		}
		switch toks[i].Kind {
		case Pipe:
			i++
			if i >= len(toks) {
				return Pipeline{}, 0, vferrors.ParseError("chain", "missing command after '|'")
			}
			continue
		case RedirectWrite, RedirectAppend:
			redirect, consumedRedir, err := parseRedirect(toks[i:])
			if err != nil {
				return Pipeline{}, 0, err
			}
			pipeline.Redirect = redirect
			i += consumedRedir
			return pipeline, i, nil
		default:
			return pipeline, i, nil
		}
	}
}

// parseInvocation consumes one command name plus its argument words from
// the front of toks, stopping at the first operator token.
func parseInvocation(toks []Token) (Invocation, int, error) {
	if len(toks) == 0 || toks[0].Kind != Word {
		return Invocation{}, 0, vferrors.ParseError("chain", "expected a command")
	}
	inv := Invocation{Name: toks[0].Text}
	i := 1
	for i < len(toks) && toks[i].Kind == Word {
		inv.Args = append(inv.Args, toks[i].Text)
		i++
	}
	return inv, i, nil
}

// parseRedirect consumes a `>`/`>>` token plus its target path.
func parseRedirect(toks []Token) (*Redirect, int, error) {
	op := toks[0]
	if len(toks) < 2 || toks[1].Kind != Word {
		return nil, 0, vferrors.ParseError("chain", "missing redirect target")
	}
	return &Redirect{Path: toks[1].Text, Append: op.Kind == RedirectAppend}, 2, nil
}
