package mount

import (
	"strconv"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
	"golang.org/x/sync/errgroup"
)

// Kind distinguishes entries in the process-wide mount list (spec.md §4.2).
type Kind string

const (
	KindHost    Kind = "host"
	KindLibrary Kind = "library"
	KindRemote  Kind = "remote"
)

// Record is one row of the mount list: {vfs_path, origin, kind}.
type Record struct {
	VfsPath string
	Origin  string // host path, library path, or host:port/remotePath
	Kind    Kind

	closer   func() error
	hostPath string // set only for KindHost, used by mapToHostPath/mapFromHostPath
}

// Manager tracks every live mount, the global mount_allowed switch, and
// provides mapToHostPath/mapFromHostPath translation (spec.md §4.2).
// It deliberately holds no reference to a Store overlay id: mounts are
// attached to whichever overlay the caller's `mount` command specifies.
type Manager struct {
	store   *vfs.Store
	allowed bool
	records []*Record
}

// NewManager creates a mount manager with mounting allowed by default,
// matching the reference's default-on mount_allowed flag.
func NewManager(store *vfs.Store) *Manager {
	return &Manager{store: store, allowed: true}
}

// Allow / Disallow implement mount.allow / mount.disallow.
func (m *Manager) Allow()        { m.allowed = true }
func (m *Manager) Disallow()     { m.allowed = false }
func (m *Manager) Allowed() bool { return m.allowed }

// MountHost attaches a HostMount at vfsPath under overlay ovl.
func (m *Manager) MountHost(vfsPath, hostPath string, ovl int) error {
	if !m.allowed {
		return vferrors.MountDenied(vfsPath)
	}
	name := vfs.Basename(vfsPath)
	n, hm, err := NewHostMount(m.store, name, hostPath)
	if err != nil {
		return err
	}
	n.Payload = hm
	if err := m.store.AddNode(vfs.Dirname(vfsPath), n, ovl); err != nil {
		hm.Close()
		return err
	}
	m.records = append(m.records, &Record{VfsPath: vfsPath, Origin: hostPath, Kind: KindHost, closer: hm.Close, hostPath: hostPath})
	return nil
}

// MountLibrary attaches a LibraryMount at vfsPath under overlay ovl.
func (m *Manager) MountLibrary(vfsPath, libPath string, ovl int) error {
	if !m.allowed {
		return vferrors.MountDenied(vfsPath)
	}
	name := vfs.Basename(vfsPath)
	n, lm, err := NewLibraryMount(m.store, name, libPath)
	if err != nil {
		return err
	}
	if err := m.store.AddNode(vfs.Dirname(vfsPath), n, ovl); err != nil {
		lm.Close()
		return err
	}
	m.records = append(m.records, &Record{VfsPath: vfsPath, Origin: libPath, Kind: KindLibrary, closer: lm.Close})
	return nil
}

// MountRemote attaches a RemoteMount at vfsPath under overlay ovl.
func (m *Manager) MountRemote(vfsPath, host string, port int, remotePath string, ovl int) error {
	if !m.allowed {
		return vferrors.MountDenied(vfsPath)
	}
	name := vfs.Basename(vfsPath)
	n, rm := NewRemoteMount(m.store, name, host, port, remotePath)
	if err := m.store.AddNode(vfs.Dirname(vfsPath), n, ovl); err != nil {
		rm.Close()
		return err
	}
	origin := host + ":" + strconv.Itoa(port) + remotePath
	m.records = append(m.records, &Record{VfsPath: vfsPath, Origin: origin, Kind: KindRemote, closer: rm.Close})
	return nil
}

// Unmount removes vfsPath from the VFS (via Store.Rm) and closes the
// underlying adapter's resources.
func (m *Manager) Unmount(vfsPath string, ovl int) error {
	idx := -1
	for i, r := range m.records {
		if r.VfsPath == vfsPath {
			idx = i
			break
		}
	}
	if idx == -1 {
		return vferrors.NotFound("unmount", vfsPath)
	}
	rec := m.records[idx]
	if err := m.store.Rm(vfsPath, ovl); err != nil {
		return err
	}
	if rec.closer != nil {
		rec.closer()
	}
	m.records = append(m.records[:idx], m.records[idx+1:]...)
	return nil
}

// List implements mount.list.
func (m *Manager) List() []*Record { return m.records }

// CloseAll tears down every live mount's resources concurrently, used on
// shell exit so a slow or hung remote connection doesn't block the
// others. Grounded on the teacher's errgroup-supervised shutdown
// pattern; the first error is returned but every closer still runs.
func (m *Manager) CloseAll() error {
	g := new(errgroup.Group)
	for _, r := range m.records {
		r := r
		if r.closer == nil {
			continue
		}
		g.Go(r.closer)
	}
	return g.Wait()
}

// mapToHostPath translates a VFS path to the host path it maps to,
// if it falls under a live host mount.
func (m *Manager) MapToHostPath(vfsPath string) (string, bool) {
	for _, r := range m.records {
		if r.Kind != KindHost {
			continue
		}
		if vfsPath == r.VfsPath {
			return r.hostPath, true
		}
		if rel, ok := strings.CutPrefix(vfsPath, r.VfsPath+"/"); ok {
			return r.hostPath + "/" + rel, true
		}
	}
	return "", false
}

// mapFromHostPath is the inverse of MapToHostPath.
func (m *Manager) MapFromHostPath(hostPath string) (string, bool) {
	for _, r := range m.records {
		if r.Kind != KindHost {
			continue
		}
		if hostPath == r.hostPath {
			return r.VfsPath, true
		}
		if rel, ok := strings.CutPrefix(hostPath, r.hostPath+"/"); ok {
			return r.VfsPath + "/" + rel, true
		}
	}
	return "", false
}
