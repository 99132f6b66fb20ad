package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/exec"
	"syscall"
	"time"

	"shopfloor/internal/api"
	"shopfloor/internal/config"
	"shopfloor/internal/session"
)

const (
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond
)

func newClient(cfg *config.Config, opts ...api.Option) *api.Client {
	opts = append([]api.Option{api.WithTimeout(cfg.HTTPTimeout.Duration)}, opts...)
	return api.NewClient(cfg.APIURL, opts...)
}

// withClient runs fn against an unauthenticated client, starting a local
// server first when the configured URL is loopback and nothing answers.
func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	stop, err := ensureServer(cfg, cfg.APIURL)
	if err != nil {
		return err
	}
	defer stop()
	return fn(newClient(cfg))
}

func sessionStore(cfg *config.Config) *session.FileStore {
	return session.NewFileStore(cfg.SessionFile)
}

// withSession loads the saved login and runs fn with a client that
// authenticates as it. A local server is started for the session's URL the
// same way withClient does.
func withSession(cfg *config.Config, fn func(*session.Session, *api.Client) error) error {
	sess, err := sessionStore(cfg).Load(time.Now())
	if err != nil {
		return err
	}
	if sess.APIURL == "" {
		sess.APIURL = cfg.APIURL
	}
	stop, err := ensureServer(cfg, sess.APIURL)
	if err != nil {
		return err
	}
	defer stop()
	return fn(sess, sess.Client(api.WithTimeout(cfg.HTTPTimeout.Duration)))
}

// spawnServer starts a server for apiURL and returns a func that stops it.
var spawnServer = startServerProcess

// ensureServer starts a local server when apiURL is loopback and its port
// refuses connections. Any other ping failure is left for the command itself
// to report. The returned stop func is never nil.
func ensureServer(cfg *config.Config, apiURL string) (func(), error) {
	noop := func() {}
	client := api.NewClient(apiURL, api.WithTimeout(cfg.HTTPTimeout.Duration))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	err := client.Ping(ctx)
	cancel()
	if err == nil || !isConnRefused(err) || !isLoopbackURL(apiURL) {
		return noop, nil
	}

	slog.Debug("starting local server", "api_url", apiURL, "db", cfg.DBPath)
	stop, err := spawnServer(cfg, apiURL)
	if err != nil {
		return noop, fmt.Errorf("start local server: %w", err)
	}
	if err := waitForServer(client, serverStartTimeout); err != nil {
		stop()
		return noop, err
	}
	return stop, nil
}

func startServerProcess(cfg *config.Config, apiURL string) (func(), error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"SHOPFLOOR_DB="+cfg.DBPath,
		"SHOPFLOOR_API_URL="+apiURL,
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}, nil
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isConnRefused(err) {
			// Something else owns the port.
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
