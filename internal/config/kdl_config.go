package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads .vfsh.kdl from projectRoot, if present, and overlays it on
// top of Default(). A missing file is not an error: callers get the
// default configuration (mirrors the teacher's LoadKDL return-nil-on-
// ENOENT contract).
func LoadKDL(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".vfsh.kdl")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read .vfsh.kdl: %w", err)
	}
	return parseKDL(string(content))
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse .vfsh.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "overlay":
			for _, cn := range n.Children {
				if nodeName(cn) == "policy" {
					if s, ok := firstStringArg(cn); ok {
						cfg.OverlayPolicy = s
					}
				}
			}
		case "mount":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "allowed":
					if b, ok := firstBoolArg(cn); ok {
						cfg.MountAllowed = b
					}
				case "exclude":
					cfg.MountExclude = append(cfg.MountExclude, collectStringArgs(cn)...)
				}
			}
		case "ai":
			for _, cn := range n.Children {
				if nodeName(cn) == "provider" {
					if s, ok := firstStringArg(cn); ok {
						cfg.AIProvider = s
					}
				}
			}
		case "autosave":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "idle_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.AutosaveIdleSeconds = v
					}
				case "crash_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.AutosaveCrashSeconds = v
					}
				}
			}
		case "history":
			for _, cn := range n.Children {
				if nodeName(cn) == "path" {
					if s, ok := firstStringArg(cn); ok {
						cfg.HistoryPath = s
					}
				}
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
