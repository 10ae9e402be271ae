// Package session composes one explicit, non-global session value out of
// every core component (VFS store, tag registry/storage, logic engine,
// mount manager, planner context, build graph, configuration), replacing
// the reference's G_VFS/G_REGISTRY/G_BUILDER_REGISTRY singletons per
// spec.md §9's design note. It also supplies the one resolution helper
// internal/vfs deliberately omits: turning a possibly-relative,
// possibly-"."/".."-laden command argument into the absolute path every
// vfs.Store method requires, and picking the right overlay scope for the
// current working directory.
package session

import (
	"path"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/buildgraph"
	"github.com/standardbeagle/vfsboot/internal/config"
	"github.com/standardbeagle/vfsboot/internal/logic"
	"github.com/standardbeagle/vfsboot/internal/mount"
	"github.com/standardbeagle/vfsboot/internal/plan"
	"github.com/standardbeagle/vfsboot/internal/tagid"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// Session is the single value created in main and threaded through every
// dispatcher command, in place of the reference's process-wide statics.
type Session struct {
	Store    *vfs.Store
	Registry *tagid.Registry
	Tags     *tagid.Storage
	Logic    *logic.Engine
	Mounts   *mount.Manager
	Plan     *plan.Context
	Graph    *buildgraph.Graph
	Config   *config.Config

	cwd        string
	policy     vfs.Policy
	curOverlay int // overlay new mutations default into, e.g. mkdir/touch with no explicit overlay
}

// New builds a Session with a fresh Store (overlay 0 registered), an
// empty tag registry/storage pair wired so node destruction clears tag
// entries (spec.md §3.3's storage contract), a logic engine over that
// registry, a mount manager, a planner context rooted at /plan, an empty
// build graph, and cfg as its configuration.
func New(cfg *config.Config) *Session {
	store := vfs.NewStore()
	reg := tagid.NewRegistry()
	tags := tagid.NewStorage()
	store.OnDestroy(tags.Clear)

	policy, _ := vfs.ParsePolicy(cfg.OverlayPolicy)

	s := &Session{
		Store:      store,
		Registry:   reg,
		Tags:       tags,
		Logic:      logic.NewEngine(reg),
		Mounts:     mount.NewManager(store),
		Plan:       plan.NewContext(),
		Graph:      buildgraph.NewGraph(),
		Config:     cfg,
		cwd:        "/",
		policy:     policy,
		curOverlay: 0,
	}
	if !cfg.MountAllowed {
		s.Mounts.Disallow()
	}
	return s
}

// Cwd returns the current working directory.
func (s *Session) Cwd() string { return s.cwd }

// Policy returns the active overlay-ambiguity resolution policy.
func (s *Session) Policy() vfs.Policy { return s.policy }

// SetPolicy changes the active policy (overlay.policy command).
func (s *Session) SetPolicy(p vfs.Policy) { s.policy = p }

// CurrentOverlay returns the overlay id new mutations default into.
func (s *Session) CurrentOverlay() int { return s.curOverlay }

// SetCurrentOverlay changes the default mutation overlay (overlay.use).
func (s *Session) SetCurrentOverlay(id int) error {
	if s.Store.Overlay(id) == nil {
		return vferrors.NotFound("overlay.use", "")
	}
	s.curOverlay = id
	return nil
}

// ResolvePath turns a command argument into an absolute VFS path: a
// leading "/" is used as-is; anything else is joined against Cwd. "."
// and ".." are handled by path.Clean here and again, defensively, inside
// vfs.SplitPath.
func (s *Session) ResolvePath(p string) string {
	if p == "" {
		return s.cwd
	}
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Clean(path.Join(s.cwd, p))
}

// Scope returns the overlay ids in play at the current working
// directory: every overlay that has Cwd as a directory (spec.md §3.2's
// "scope" glossary entry).
func (s *Session) Scope() []int {
	return s.Store.OverlaysForPath(s.cwd)
}

// Cd changes the working directory to p (resolved via ResolvePath),
// requiring it to exist as a directory in at least one in-scope overlay.
func (s *Session) Cd(p string) error {
	abs := s.ResolvePath(p)
	if abs == "/" {
		s.cwd = "/"
		return nil
	}
	parentScope := s.Store.OverlaysForPath(path.Dir(abs))
	if len(parentScope) == 0 {
		parentScope = []int{0}
	}
	hits, err := s.Store.ResolveMultiAllowed(abs, parentScope)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		return vferrors.NotFound("cd", abs)
	}
	for _, h := range hits {
		if h.Node.IsDir() {
			s.cwd = abs
			return nil
		}
	}
	return vferrors.NotADirectory("cd", abs)
}

// Resolve resolves a command argument to a single node using the current
// scope and policy — the primitive every read-only dispatcher command
// (cat, ls, tree, grep, ...) builds on.
func (s *Session) Resolve(op, p string) (*vfs.Node, int, error) {
	abs := s.ResolvePath(p)
	scope := s.Store.OverlaysForPath(path.Dir(abs))
	if len(scope) == 0 {
		scope = []int{0}
	}
	return s.Store.ResolveInScope(op, abs, scope, s.policy)
}

// MutationOverlay returns the overlay a mutating command should act on:
// an explicit overlay name if given, else CurrentOverlay.
func (s *Session) MutationOverlay(explicit string) (int, error) {
	if explicit == "" {
		return s.curOverlay, nil
	}
	id, ok := s.Store.FindOverlayByName(explicit)
	if !ok {
		return 0, vferrors.NotFound("overlay", explicit)
	}
	return id, nil
}
