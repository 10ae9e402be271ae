package mount

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// remoteConn is the shared, mutex-serialized TCP connection behind every
// node of one remote mount, matching the reference's single conn_mutex
// per RemoteNode tree rather than one socket per node.
type remoteConn struct {
	host string
	port int

	mu   sync.Mutex
	conn net.Conn
	rw   *bufio.ReadWriter
}

func (c *remoteConn) ensureConnected() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", c.host, c.port), 5*time.Second)
	if err != nil {
		return vferrors.ExternalFailure("mount.remote", "dial failed", err)
	}
	c.conn = conn
	c.rw = bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	return nil
}

func (c *remoteConn) disconnect() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.rw = nil
	}
}

// exec sends one request line (plus optional raw payload) and returns the
// payload of a well-formed "OK <len>\n<len bytes>" response, per the wire
// format documented on RemoteMount. Reconnects once on failure, per
// spec.md §4.2 ("loss of the connection invalidates the cache and
// reconnects on next use").
func (c *remoteConn) exec(request string, payload []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.roundTrip(request, payload)
	if err != nil {
		c.disconnect()
		if cerr := c.ensureConnected(); cerr != nil {
			return "", cerr
		}
		resp, err = c.roundTrip(request, payload)
		if err != nil {
			c.disconnect()
			return "", vferrors.ExternalFailure("mount.remote", "request failed after reconnect", err)
		}
	}
	return resp, nil
}

func (c *remoteConn) roundTrip(request string, payload []byte) (string, error) {
	if err := c.ensureConnected(); err != nil {
		return "", err
	}
	if _, err := c.rw.WriteString(request); err != nil {
		return "", err
	}
	if payload != nil {
		if _, err := c.rw.Write(payload); err != nil {
			return "", err
		}
	}
	if err := c.rw.Flush(); err != nil {
		return "", err
	}
	status, err := c.rw.ReadString('\n')
	if err != nil {
		return "", err
	}
	status = strings.TrimRight(status, "\n")
	if strings.HasPrefix(status, "ERR ") {
		return "", fmt.Errorf("remote error: %s", strings.TrimPrefix(status, "ERR "))
	}
	if !strings.HasPrefix(status, "OK ") {
		return "", fmt.Errorf("malformed response status %q", status)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(status, "OK "))
	if err != nil {
		return "", fmt.Errorf("malformed response length: %w", err)
	}
	buf := make([]byte, n)
	read := 0
	for read < n {
		got, err := c.rw.Read(buf[read:])
		read += got
		if err != nil {
			return "", err
		}
	}
	return string(buf), nil
}

// RemoteMount is the Payload for one node (directory or leaf) inside a
// remote mount tree. It shares a remoteConn with every other node from
// the same `mount.remote` call. Grounded on
// _examples/original_source/src/VfsShell/vfs_mount.h's RemoteNode.
//
// Wire format: each request is one line, "ls <path>\n", "read <path>\n"
// or "write <path> <len>\n" followed by len raw payload bytes. The peer
// answers "OK <len>\n" followed by len payload bytes, or "ERR <message>\n".
// An ls payload is a newline-separated list of entry names, with a
// trailing "/" on directory names.
type RemoteMount struct {
	conn       *remoteConn
	store      *vfs.Store
	RemotePath string
	cacheValid bool
}

// NewRemoteMount opens a Remote node tree rooted at host:port/remotePath.
// The TCP connection itself is established lazily on first use.
func NewRemoteMount(store *vfs.Store, name, host string, port int, remotePath string) (*vfs.Node, *RemoteMount) {
	conn := &remoteConn{host: host, port: port}
	rm := &RemoteMount{conn: conn, store: store, RemotePath: remotePath}
	n := store.NewNode(name, vfs.KindRemote, true)
	n.Payload = rm
	return n, rm
}

// NeedsRefresh implements vfs.LazyDir.
func (r *RemoteMount) NeedsRefresh() bool { return !r.cacheValid }

// Refresh lists the remote directory and repopulates n's children,
// minting a nested Remote dir or leaf per reported entry. The protocol
// distinguishes dir/file entries with a trailing "/" on directory names,
// following the convention documented alongside the wire format.
func (r *RemoteMount) Refresh(n *vfs.Node) error {
	listing, err := r.conn.exec(fmt.Sprintf("ls %s\n", r.RemotePath), nil)
	if err != nil {
		return err
	}
	children := n.Children()
	for k := range children {
		r.store.DetachChild(n, k)
	}
	if listing != "" {
		for _, entry := range strings.Split(listing, "\n") {
			if entry == "" {
				continue
			}
			isDir := strings.HasSuffix(entry, "/")
			name := strings.TrimSuffix(entry, "/")
			childPath := r.RemotePath + "/" + name
			if r.RemotePath == "/" {
				childPath = "/" + name
			}
			childNode := r.store.NewNode(name, vfs.KindRemote, isDir)
			childNode.Payload = &RemoteMount{conn: r.conn, store: r.store, RemotePath: childPath}
			if err := r.store.AttachChild(n, childNode); err != nil {
				continue
			}
		}
	}
	r.cacheValid = true
	return nil
}

// ReadNode implements vfs.NodeReader.
func (r *RemoteMount) ReadNode() (string, error) {
	return r.conn.exec(fmt.Sprintf("read %s\n", r.RemotePath), nil)
}

// WriteNode implements vfs.NodeWriter.
func (r *RemoteMount) WriteNode(data []byte) error {
	header := fmt.Sprintf("write %s %d\n", r.RemotePath, len(data))
	_, err := r.conn.exec(header, data)
	return err
}

// Close tears down the shared connection. Safe to call from any node
// sharing this mount's remoteConn.
func (r *RemoteMount) Close() error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	r.conn.disconnect()
	return nil
}
