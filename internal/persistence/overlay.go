// Package persistence implements the overlay binary file format of
// spec.md §6.3: a sequence of {type_tag, path, payload} node records
// plus an xxhash checksum footer, and the .cxpkg/.cxasm solution file
// that wraps it with dirty-flag/source-path bookkeeping (§3.6). Grounded
// directly on spec.md's own payload grammar table; the per-kind handling
// below is this package's concrete reading of that grammar against the
// actual Go node kinds in internal/vfs.
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/vfsboot/internal/cppast"
	"github.com/standardbeagle/vfsboot/internal/plan"
	"github.com/standardbeagle/vfsboot/internal/sast"
	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

const magic = "VFSOV1\n"

type record struct {
	path    string
	kind    byte
	payload []byte
}

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func joinChild(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func sortedNames(children map[string]*vfs.Node) []string {
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func intPtr(i int) *int { return &i }

// collectRecords walks overlayID's tree depth-first (children in sorted
// name order, for a deterministic and checksum-stable encoding) and
// produces one record per node. Dir nodes carry no payload and recurse
// into their children; File nodes carry their raw content; SAst/CppAst
// nodes are treated as one opaque record each (their ReadNode already
// renders the complete subtree as source text, so no per-child records
// are emitted beneath them); Plan nodes carry their kind byte
// followed by their structured text form and do recurse into children.
// Any other kind (Mount/Library/LibrarySymbol/Remote) has no payload
// grammar defined anywhere in spec.md §6.3, so it fails fast with
// UnsupportedNodeKind rather than being silently dropped.
func collectRecords(store *vfs.Store, overlayID int) ([]record, error) {
	ovl := store.Overlay(overlayID)
	if ovl == nil {
		return nil, vferrors.NotFound("persistence.save", "")
	}

	var out []record
	var walk func(path string, n *vfs.Node) error
	walk = func(path string, n *vfs.Node) error {
		switch n.Kind {
		case vfs.KindDir:
			out = append(out, record{path: path, kind: byte(n.Kind)})
			for _, name := range sortedNames(n.Children()) {
				if err := walk(joinChild(path, name), n.Children()[name]); err != nil {
					return err
				}
			}
			return nil
		case vfs.KindFile:
			content, err := store.Read(path, intPtr(overlayID))
			if err != nil {
				return err
			}
			out = append(out, record{path: path, kind: byte(n.Kind), payload: []byte(content)})
			return nil
		case vfs.KindSAst, vfs.KindCppAst:
			content, err := store.Read(path, intPtr(overlayID))
			if err != nil {
				return err
			}
			out = append(out, record{path: path, kind: byte(n.Kind), payload: []byte(content)})
			return nil
		case vfs.KindPlan:
			k, _ := plan.KindOf(n)
			content, err := store.Read(path, intPtr(overlayID))
			if err != nil {
				return err
			}
			payload := append([]byte{byte(k)}, []byte(content)...)
			out = append(out, record{path: path, kind: byte(n.Kind), payload: payload})
			for _, name := range sortedNames(n.Children()) {
				if err := walk(joinChild(path, name), n.Children()[name]); err != nil {
					return err
				}
			}
			return nil
		default:
			return vferrors.Internal("persistence.save",
				fmt.Sprintf("UnsupportedNodeKind %q has no payload grammar", n.Kind)).WithPath(path)
		}
	}
	if err := walk("/", ovl.Root); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveOverlay encodes overlayID's full tree to w: magic, overlay name,
// record count, each record, then an xxhash-64 checksum over the record
// stream (SPEC_FULL.md's domain-stack table wires xxhash here for
// exactly this purpose).
func SaveOverlay(store *vfs.Store, overlayID int, w io.Writer) error {
	records, err := collectRecords(store, overlayID)
	if err != nil {
		return err
	}
	ovl := store.Overlay(overlayID)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := writeString(bw, ovl.Name); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(records))); err != nil {
		return err
	}

	hasher := xxhash.New()
	for _, rec := range records {
		if err := writeString(bw, rec.path); err != nil {
			return err
		}
		if err := bw.WriteByte(rec.kind); err != nil {
			return err
		}
		if err := writeBytes(bw, rec.payload); err != nil {
			return err
		}
		hasher.Write([]byte(rec.path))
		hasher.Write([]byte{rec.kind})
		hasher.Write(rec.payload)
	}
	if err := binary.Write(bw, binary.LittleEndian, hasher.Sum64()); err != nil {
		return err
	}
	return bw.Flush()
}

// LoadOverlay decodes r (as produced by SaveOverlay) into a freshly
// registered overlay on store, named overlayName (or the name stored in
// the file, if overlayName is ""). The new overlay's dirty flag is
// cleared on return, matching a freshly loaded solution having nothing
// to flush yet.
func LoadOverlay(store *vfs.Store, overlayName string, r io.Reader) (int, error) {
	br := bufio.NewReader(r)

	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(br, magicBuf); err != nil {
		return 0, err
	}
	if string(magicBuf) != magic {
		return 0, vferrors.ParseError("persistence.load", "not a vfsboot overlay file (bad magic)")
	}
	storedName, err := readString(br)
	if err != nil {
		return 0, err
	}
	name := overlayName
	if name == "" {
		name = storedName
	}

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return 0, err
	}

	records := make([]record, 0, count)
	hasher := xxhash.New()
	for i := uint32(0); i < count; i++ {
		path, err := readString(br)
		if err != nil {
			return 0, err
		}
		kindByte, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		payload, err := readBytes(br)
		if err != nil {
			return 0, err
		}
		hasher.Write([]byte(path))
		hasher.Write([]byte{kindByte})
		hasher.Write(payload)
		records = append(records, record{path: path, kind: kindByte, payload: payload})
	}

	var checksum uint64
	if err := binary.Read(br, binary.LittleEndian, &checksum); err != nil {
		return 0, err
	}
	if checksum != hasher.Sum64() {
		return 0, vferrors.Internal("persistence.load", "checksum mismatch: file is corrupt or truncated")
	}

	overlayID := store.RegisterOverlay(name)
	for _, rec := range records {
		dir := vfs.Dirname(rec.path)
		base := vfs.Basename(rec.path)
		switch vfs.Kind(rec.kind) {
		case vfs.KindDir:
			if rec.path == "/" {
				continue
			}
			if err := store.Mkdir(rec.path, overlayID); err != nil {
				return 0, err
			}
		case vfs.KindFile:
			if err := store.Write(rec.path, rec.payload, overlayID); err != nil {
				return 0, err
			}
		case vfs.KindSAst:
			n, err := sast.Parse(string(rec.payload))
			if err != nil {
				return 0, vferrors.Internal("persistence.load", "sast parse: "+err.Error()).WithPath(rec.path)
			}
			if err := sast.Attach(store, dir, base, n, overlayID); err != nil {
				return 0, err
			}
		case vfs.KindCppAst:
			tu, err := cppast.ParseTranslationUnit(base, rec.payload)
			if err != nil {
				return 0, vferrors.Internal("persistence.load", "cppast parse: "+err.Error()).WithPath(rec.path)
			}
			if err := cppast.AttachTranslationUnit(store, dir, base, tu, overlayID); err != nil {
				return 0, err
			}
		case vfs.KindPlan:
			if len(rec.payload) < 1 {
				return 0, vferrors.Internal("persistence.load", "truncated plan payload").WithPath(rec.path)
			}
			k := plan.Kind(rec.payload[0])
			content := string(rec.payload[1:])
			if _, err := plan.Create(store, dir, base, k, content, overlayID); err != nil {
				return 0, err
			}
		default:
			return 0, vferrors.Internal("persistence.load",
				fmt.Sprintf("UnsupportedNodeKind tag %d", rec.kind)).WithPath(rec.path)
		}
	}

	store.ClearDirty(overlayID)
	return overlayID, nil
}
