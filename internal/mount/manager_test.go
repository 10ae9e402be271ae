package mount

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/standardbeagle/vfsboot/internal/tagid"
	"github.com/standardbeagle/vfsboot/internal/vfs"
	"github.com/stretchr/testify/require"
)

func TestMountHostListsAndReadsFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	store := vfs.NewStore()
	mgr := NewManager(store)
	require.NoError(t, mgr.MountHost("/host", dir, 0))

	content, err := store.Read("/host/a.txt", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "hello", content)

	entries, err := store.ListDir("/host", []int{0})
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.ElementsMatch(t, []string{"a.txt", "sub"}, names)
}

func TestMountHostWritePropagates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("old"), 0o644))

	store := vfs.NewStore()
	mgr := NewManager(store)
	require.NoError(t, mgr.MountHost("/host", dir, 0))

	require.NoError(t, store.Write("/host/a.txt", []byte("new"), 0))
	onDisk, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "new", string(onDisk))
}

func TestMountChildLinkKeepsOriginalParent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	store := vfs.NewStore()
	var destroyed int
	store.OnDestroy(func(tagid.NodeID) { destroyed++ })
	mgr := NewManager(store)
	require.NoError(t, mgr.MountHost("/host", dir, 0))

	// Materialize the child, then give it a second parent edge.
	_, err := store.Read("/host/a.txt", intPtr(0))
	require.NoError(t, err)
	require.NoError(t, store.Link("/host/a.txt", "/alias", 0))

	// Removing the link must not destroy the node: the mount directory
	// still holds a registered parent edge, so tag storage survives.
	require.NoError(t, store.Rm("/alias", 0))
	require.Zero(t, destroyed)
	content, err := store.Read("/host/a.txt", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "x", content)
}

func TestMountDeniedWhenDisallowed(t *testing.T) {
	store := vfs.NewStore()
	mgr := NewManager(store)
	mgr.Disallow()
	err := mgr.MountHost("/host", t.TempDir(), 0)
	require.Error(t, err)
}

func TestMapToHostPathAndBack(t *testing.T) {
	dir := t.TempDir()
	store := vfs.NewStore()
	mgr := NewManager(store)
	require.NoError(t, mgr.MountHost("/host", dir, 0))

	hp, ok := mgr.MapToHostPath("/host/a.txt")
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "a.txt"), hp)

	vp, ok := mgr.MapFromHostPath(filepath.Join(dir, "a.txt"))
	require.True(t, ok)
	require.Equal(t, "/host/a.txt", vp)
}

func TestMountHostExposesOutlineForSupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	store := vfs.NewStore()
	mgr := NewManager(store)
	require.NoError(t, mgr.MountHost("/host", dir, 0))

	entries, err := store.ListDir("/host", []int{0})
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.Contains(t, names, "main.go.outline")
	require.NotContains(t, names, "notes.txt.outline")

	content, err := store.Read("/host/main.go.outline", intPtr(0))
	require.NoError(t, err)
	require.Contains(t, content, "function Foo:3")
}

func TestUnmountClosesAndDetaches(t *testing.T) {
	dir := t.TempDir()
	store := vfs.NewStore()
	mgr := NewManager(store)
	require.NoError(t, mgr.MountHost("/host", dir, 0))
	require.NoError(t, mgr.Unmount("/host", 0))

	_, err := store.ResolveForOverlay("resolve", "/host", 0)
	require.Error(t, err)
	require.Empty(t, mgr.List())
}

// fakeRemoteServer speaks the line protocol documented on RemoteMount,
// backed by an in-memory directory map, to exercise the remote mount
// adapter without a real peer.
func fakeRemoteServer(t *testing.T, files map[string]string, dirs map[string][]string) (host string, port int, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
				for {
					line, err := rw.ReadString('\n')
					if err != nil {
						return
					}
					line = strings.TrimRight(line, "\n")
					fields := strings.SplitN(line, " ", 2)
					switch fields[0] {
					case "ls":
						children := dirs[fields[1]]
						body := strings.Join(children, "\n")
						rw.WriteString("OK " + strconv.Itoa(len(body)) + "\n")
						rw.WriteString(body)
					case "read":
						body := files[fields[1]]
						rw.WriteString("OK " + strconv.Itoa(len(body)) + "\n")
						rw.WriteString(body)
					default:
						rw.WriteString("ERR unknown command\n")
					}
					rw.Flush()
				}
			}()
		}
	}()
	return "127.0.0.1", addr.Port, func() { ln.Close() }
}

func TestMountRemoteListAndRead(t *testing.T) {
	host, port, stop := fakeRemoteServer(t,
		map[string]string{"/r/f.txt": "remote-data"},
		map[string][]string{"/r": {"f.txt"}},
	)
	defer stop()

	store := vfs.NewStore()
	mgr := NewManager(store)
	require.NoError(t, mgr.MountRemote("/remote", host, port, "/r", 0))

	entries, err := store.ListDir("/remote", []int{0})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "f.txt", entries[0].Name)

	content, err := store.Read("/remote/f.txt", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "remote-data", content)
}

func intPtr(i int) *int { return &i }
