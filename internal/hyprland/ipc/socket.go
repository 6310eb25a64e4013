package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// verifyOwnedByUs stats sockPath and refuses to dial it if it is not
// owned by the current user, so a stale or spoofed socket left behind
// in a shared $XDG_RUNTIME_DIR by another uid is never connected to.
func verifyOwnedByUs(sockPath string) error {
	var st unix.Stat_t
	if err := unix.Stat(sockPath, &st); err != nil {
		return fmt.Errorf("stat %s: %w", sockPath, err)
	}
	if uid := uint32(os.Getuid()); st.Uid != uid {
		return fmt.Errorf("%s is owned by uid %d, not %d; refusing to connect", sockPath, st.Uid, uid)
	}
	return nil
}

// SocketPaths returns the paths to Hyprland's request socket
// (.socket.sock) and event socket (.socket2.sock) for the currently
// running compositor instance, resolved via
// $XDG_RUNTIME_DIR/hypr/$HYPRLAND_INSTANCE_SIGNATURE, per spec.md §6.
func SocketPaths() (requestSock, eventSock string, err error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", "", fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE is not set; is Hyprland running?")
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", "", fmt.Errorf("XDG_RUNTIME_DIR is not set")
	}
	base := filepath.Join(runtimeDir, "hypr", sig)
	return filepath.Join(base, ".socket.sock"), filepath.Join(base, ".socket2.sock"), nil
}

// EventStream dials .socket2.sock and calls dispatch.Dispatch for
// every line received until ctx is cancelled or the connection drops.
// A ParseError returned by Dispatch for an individual line is logged
// here and does not stop the stream; only a connection-level
// error returns from EventStream, so the caller's orchestrator can
// reconnect.
func EventStream(ctx context.Context, sockPath string, dispatch *Dispatcher) error {
	if err := verifyOwnedByUs(sockPath); err != nil {
		return err
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", sockPath)
	if err != nil {
		return fmt.Errorf("dial %s: %w", sockPath, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := dispatch.Dispatch(line); err != nil {
			dispatch.logger.Warn("hyprland event parse error", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", sockPath, err)
	}
	return nil
}

// Query sends a single command (e.g. "j/activewindow") over
// .socket.sock and returns the raw response. Hyprland's request
// socket is a simple write-then-read-until-close protocol, one
// command per connection, so no request-id correlation is needed the
// way it is for the teacher's persistent Home Assistant WebSocket.
func Query(ctx context.Context, sockPath, command string) ([]byte, error) {
	if err := verifyOwnedByUs(sockPath); err != nil {
		return nil, err
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", sockPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(command)); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}
