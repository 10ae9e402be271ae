package dispatcher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/logic"
	"github.com/standardbeagle/vfsboot/internal/tagid"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// rulesDir is where logic.rules.save/load persist the rule set inside
// the VFS (spec.md §4.3).
const rulesDir = "/plan/rules"

// registerLogicCommands installs the logic engine surface of spec.md §6.1.
func (d *Dispatcher) registerLogicCommands() {
	d.register("logic.init", cmdLogicInit)
	d.register("logic.infer", cmdLogicInfer)
	d.register("logic.check", cmdLogicCheck)
	d.register("logic.explain", cmdLogicExplain)
	d.register("logic.listrules", cmdLogicListRules)
	d.register("logic.sat", cmdLogicSat)
	d.register("logic.rule.add", cmdLogicRuleAdd)
	d.register("logic.rule.exclude", cmdLogicRuleExclude)
	d.register("logic.rule.remove", cmdLogicRuleRemove)
	d.register("logic.rules.save", cmdLogicRulesSave)
	d.register("logic.rules.load", cmdLogicRulesLoad)
}

func cmdLogicInit(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	d.Sess.Logic.InstallBuiltinRules()
	return Result{Success: true, Output: fmt.Sprintf("%d rules installed\n", len(d.Sess.Logic.Rules()))}, nil
}

// tagSetOf registers each name and collects the ids into a fresh set.
func (d *Dispatcher) tagSetOf(names []string) *tagid.Set {
	s := tagid.NewSet()
	for _, name := range names {
		s.Insert(d.Sess.Registry.Register(name))
	}
	return s
}

func cmdLogicInfer(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	args := inv.Args
	minConfidence := 0.5
	if len(args) > 0 {
		if f, err := strconv.ParseFloat(args[len(args)-1], 64); err == nil {
			minConfidence = f
			args = args[:len(args)-1]
		}
	}
	if len(args) == 0 {
		return Result{}, vferrors.ParseError("logic.infer", "usage: logic.infer <tag...> [minConfidence]")
	}
	inferred := d.Sess.Logic.InferTags(d.tagSetOf(args), minConfidence)
	return Result{Success: true, Output: strings.Join(d.tagNames(inferred), ", ") + "\n"}, nil
}

func cmdLogicCheck(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) == 0 {
		return Result{}, vferrors.ParseError("logic.check", "usage: logic.check <tag...>")
	}
	conflict := d.Sess.Logic.CheckConsistency(d.tagSetOf(inv.Args))
	if conflict == nil {
		return Result{Success: true, Output: "consistent\n"}, nil
	}
	return Result{Success: false, Output: renderConflict(conflict)}, nil
}

func renderConflict(c *logic.ConflictInfo) string {
	var b strings.Builder
	b.WriteString("conflict: " + c.Description + "\n")
	if len(c.Suggestions) > 0 {
		b.WriteString("suggestions:\n")
		for _, s := range c.Suggestions {
			b.WriteString("  " + s + "\n")
		}
	}
	return b.String()
}

func cmdLogicExplain(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 2 {
		return Result{}, vferrors.ParseError("logic.explain", "usage: logic.explain <target> <initial...>")
	}
	target := d.Sess.Registry.Register(inv.Args[0])
	chain := d.Sess.Logic.ExplainInference(target, d.tagSetOf(inv.Args[1:]))
	if len(chain) == 0 {
		return Result{Success: false, Output: "no derivation found\n"}, nil
	}
	return Result{Success: true, Output: strings.Join(chain, "\n") + "\n"}, nil
}

func cmdLogicListRules(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	var b strings.Builder
	for _, r := range d.Sess.Logic.Rules() {
		fmt.Fprintf(&b, "%s: %s -> %s (%.2f, %s)\n",
			r.Name,
			r.Premise.String(d.Sess.Registry),
			r.Conclusion.String(d.Sess.Registry),
			r.Confidence, r.Source)
	}
	return Result{Success: true, Output: b.String()}, nil
}

func cmdLogicSat(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) == 0 {
		return Result{}, vferrors.ParseError("logic.sat", "usage: logic.sat <formula>")
	}
	f, err := logic.ParseFormula(strings.Join(inv.Args, " "), d.Sess.Registry)
	if err != nil {
		return Result{}, vferrors.ParseError("logic.sat", err.Error())
	}
	if d.Sess.Logic.IsSatisfiable(f) {
		return Result{Success: true, Output: "satisfiable\n"}, nil
	}
	return Result{Success: false, Output: "unsatisfiable\n"}, nil
}

func cmdLogicRuleAdd(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 3 {
		return Result{}, vferrors.ParseError("logic.rule.add", "usage: logic.rule.add <name> <premiseTag> <conclusionTag> [confidence]")
	}
	confidence := 1.0
	if len(inv.Args) > 3 {
		f, err := strconv.ParseFloat(inv.Args[3], 64)
		if err != nil || f < 0 || f > 1 {
			return Result{}, vferrors.ParseError("logic.rule.add", "confidence must be in [0,1]")
		}
		confidence = f
	}
	d.Sess.Logic.AddSimpleRule(inv.Args[0], inv.Args[1], inv.Args[2], confidence, "user")
	return Result{Success: true}, nil
}

func cmdLogicRuleExclude(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 3 {
		return Result{}, vferrors.ParseError("logic.rule.exclude", "usage: logic.rule.exclude <name> <tag1> <tag2>")
	}
	d.Sess.Logic.AddExclusionRule(inv.Args[0], inv.Args[1], inv.Args[2], "user")
	return Result{Success: true}, nil
}

func cmdLogicRuleRemove(d *Dispatcher, inv Invocation, _ string) (Result, error) {
	if len(inv.Args) < 1 {
		return Result{}, vferrors.ParseError("logic.rule.remove", "usage: logic.rule.remove <name>")
	}
	if !d.Sess.Logic.HasRule(inv.Args[0]) {
		return Result{}, vferrors.NotFound("logic.rule.remove", inv.Args[0])
	}
	d.Sess.Logic.RemoveRule(inv.Args[0])
	return Result{Success: true}, nil
}

// cmdLogicRulesSave serializes every rule to /plan/rules/<name>.
func cmdLogicRulesSave(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	if err := d.Sess.Store.Mkdir(rulesDir, ovl); err != nil {
		return Result{}, err
	}
	rules := d.Sess.Logic.Rules()
	for _, r := range rules {
		text := d.Sess.Logic.SerializeRule(r)
		if err := d.Sess.Store.Write(rulesDir+"/"+r.Name, []byte(text), ovl); err != nil {
			return Result{}, err
		}
	}
	d.noteMutation(ovl)
	return Result{Success: true, Output: fmt.Sprintf("%d rules saved to %s\n", len(rules), rulesDir)}, nil
}

// cmdLogicRulesLoad replaces the rule set with whatever parses from
// /plan/rules (spec.md §4.3: "Loading replaces the rule set").
func cmdLogicRulesLoad(d *Dispatcher, _ Invocation, _ string) (Result, error) {
	ovl, err := d.Sess.MutationOverlay("")
	if err != nil {
		return Result{}, err
	}
	entries, err := d.Sess.Store.ListDir(rulesDir, []int{ovl})
	if err != nil {
		return Result{}, err
	}
	var loaded []logic.Rule
	for _, e := range entries {
		text, err := d.Sess.Store.Read(rulesDir+"/"+e.Name, &ovl)
		if err != nil {
			return Result{}, err
		}
		r, err := d.Sess.Logic.DeserializeRule(text)
		if err != nil {
			return Result{}, vferrors.ParseError("logic.rules.load", err.Error())
		}
		loaded = append(loaded, *r)
	}
	d.Sess.Logic.Reset()
	for _, r := range loaded {
		d.Sess.Logic.AddRule(r)
	}
	return Result{Success: true, Output: fmt.Sprintf("%d rules loaded\n", len(loaded))}, nil
}
