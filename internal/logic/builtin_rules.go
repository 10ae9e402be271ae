package logic

// InstallBuiltinRules installs a curated, deterministic, idempotent set
// of domain-knowledge rules, mirroring LogicEngine::addHardcodedRules in
// logic_engine.h. The exact catalog is not part of the public contract
// (spec.md §9's open question) — only that logic.init always produces
// the same set and that re-running it is a no-op (AddRule replaces by
// name, so calling this twice is safe).
func (e *Engine) InstallBuiltinRules() {
	e.AddSimpleRule("impl-implies-language", "impl", "language", 0.9, "hardcoded")
	e.AddSimpleRule("async-implies-io", "async", "io", 0.85, "hardcoded")
	e.AddSimpleRule("test-implies-code", "test", "code", 0.95, "hardcoded")
	e.AddSimpleRule("bugfix-implies-code", "bugfix", "code", 0.9, "hardcoded")
	e.AddSimpleRule("refactor-implies-code", "refactor", "code", 0.9, "hardcoded")
	e.AddSimpleRule("api-implies-interface", "api", "interface", 0.8, "hardcoded")
	e.AddSimpleRule("doc-implies-text", "doc", "text", 0.95, "hardcoded")

	e.AddExclusionRule("draft-excludes-final", "draft", "final", "hardcoded")
	e.AddExclusionRule("deprecated-excludes-active", "deprecated", "active", "hardcoded")
	e.AddExclusionRule("experimental-excludes-stable", "experimental", "stable", "hardcoded")
}
