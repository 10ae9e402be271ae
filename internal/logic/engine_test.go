package logic

import (
	"testing"

	"github.com/standardbeagle/vfsboot/internal/tagid"
	"github.com/stretchr/testify/require"
)

func TestFormulaEvaluatePure(t *testing.T) {
	reg := tagid.NewRegistry()
	a := reg.Register("a")
	b := reg.Register("b")
	f := Implies(Var(a), Var(b))

	tags := tagid.NewSet(a)
	require.False(t, f.Evaluate(tags))
	require.False(t, f.Evaluate(tags)) // purity: same input, same output

	tags.Insert(b)
	require.True(t, f.Evaluate(tags))
}

func TestInferTagsFixedPointAndSuperset(t *testing.T) {
	reg := tagid.NewRegistry()
	e := NewEngine(reg)
	e.AddSimpleRule("r1", "doc", "text", 1.0, "test")

	initial := tagid.NewSet(reg.Register("doc"))
	once := e.InferTags(initial, 0.5)
	twice := e.InferTags(once, 0.5)

	require.True(t, initial.IsSubsetOf(once))
	require.True(t, once.Equal(twice))
	require.True(t, once.Contains(reg.ID("text")))
}

func TestCheckConsistencyReportsExclusion(t *testing.T) {
	reg := tagid.NewRegistry()
	e := NewEngine(reg)
	e.AddExclusionRule("excl", "draft", "final", "test")

	tags := tagid.NewSet(reg.Register("draft"), reg.Register("final"))
	conflict := e.CheckConsistency(tags)
	require.NotNil(t, conflict)
	require.ElementsMatch(t, []string{"draft", "final"}, conflict.ConflictingTags)
}

func TestCheckConsistencyIndependentOfConfidence(t *testing.T) {
	reg := tagid.NewRegistry()
	e := NewEngine(reg)
	e.rules["excl"] = &Rule{
		Name:       "excl",
		Premise:    Var(reg.Register("draft")),
		Conclusion: Not(Var(reg.Register("final"))),
		Confidence: 0.01,
		Source:     "test",
	}
	e.order = append(e.order, "excl")

	tags := tagid.NewSet(reg.Register("draft"), reg.Register("final"))
	require.NotNil(t, e.CheckConsistency(tags))
}

func TestIsSatisfiableIgnoresRules(t *testing.T) {
	reg := tagid.NewRegistry()
	e := NewEngine(reg)
	e.AddExclusionRule("excl", "draft", "final", "test")

	a := reg.Register("a")
	require.True(t, e.IsSatisfiable(Var(a)))
	require.False(t, e.IsSatisfiable(And(Var(a), Not(Var(a)))))
}

func TestExplainInference(t *testing.T) {
	reg := tagid.NewRegistry()
	e := NewEngine(reg)
	e.AddSimpleRule("r1", "doc", "text", 1.0, "test")
	e.AddSimpleRule("r2", "text", "content", 1.0, "test")

	initial := tagid.NewSet(reg.Register("doc"))
	chain := e.ExplainInference(reg.Register("content"), initial)
	require.Equal(t, []string{"r1", "r2"}, chain)
}

func TestRulePersistenceRoundTrip(t *testing.T) {
	reg := tagid.NewRegistry()
	e := NewEngine(reg)
	e.AddSimpleRule("r1", "doc", "text", 0.75, "user")

	serialized := e.SerializeRule(e.rules["r1"])

	reg2 := tagid.NewRegistry()
	e2 := NewEngine(reg2)
	loaded, err := e2.DeserializeRule(serialized)
	require.NoError(t, err)
	require.Equal(t, "r1", loaded.Name)
	require.Equal(t, 0.75, loaded.Confidence)
	require.Equal(t, "user", loaded.Source)
}

func TestInstallBuiltinRulesIdempotent(t *testing.T) {
	reg := tagid.NewRegistry()
	e := NewEngine(reg)
	e.InstallBuiltinRules()
	n := len(e.Rules())
	e.InstallBuiltinRules()
	require.Equal(t, n, len(e.Rules()))
}
