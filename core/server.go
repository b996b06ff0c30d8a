package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"os"

	"github.com/gliderlabs/ssh"
	"github.com/juju/ratelimit"
	"github.com/phuslu/log"

	"rmsh.dev/rmsh/core/config"
)

// Server exposes the shell over SSH. Each session gets its own Shell with
// its own history; jobs run without terminal ownership because the real tty
// is on the client side.
type Server struct {
	cfg    *config.Configuration
	log    *log.Logger
	bucket *ratelimit.Bucket
	srv    *ssh.Server
}

// NewServer builds the SSH front end from the configuration's host key,
// users, and throttle settings.
func NewServer(cfg *config.Configuration, logger *log.Logger) (*Server, error) {
	keyPem, err := cfg.HostKeyPem()
	if err != nil {
		return nil, fmt.Errorf("host key: %w", err)
	}

	server := &Server{cfg: cfg, log: logger}
	if perMinute := cfg.SSH.AuthPerMinute; perMinute > 0 {
		server.bucket = ratelimit.NewBucketWithRate(float64(perMinute)/60, int64(perMinute))
	}

	server.srv = &ssh.Server{
		Addr: fmt.Sprintf(":%d", cfg.SSH.Port),
		Handler: func(s ssh.Session) {
			server.handleSession(s)
		},
		PasswordHandler: server.handlePassword,
	}
	if err := server.srv.SetOption(ssh.HostKeyPEM(keyPem)); err != nil {
		return nil, fmt.Errorf("host key: %w", err)
	}
	return server, nil
}

// handlePassword checks the password against every candidate for the user
// in constant time, so a match does not shorten the comparison.
func (server *Server) handlePassword(ctx ssh.Context, password string) bool {
	if server.bucket != nil && server.bucket.TakeAvailable(1) == 0 {
		server.log.Warn().
			Str("user", ctx.User()).
			Str("remote", ctx.RemoteAddr().String()).
			Msg("auth attempt throttled")
		return false
	}

	match := 0
	for _, candidate := range server.cfg.Passwords(ctx.User()) {
		match |= subtle.ConstantTimeCompare([]byte(password), []byte(candidate))
	}
	ok := match == 1

	server.log.Info().
		Str("user", ctx.User()).
		Str("remote", ctx.RemoteAddr().String()).
		Bool("accepted", ok).
		Msg("password auth")
	return ok
}

func (server *Server) handleSession(s ssh.Session) {
	server.log.Info().
		Str("user", s.User()).
		Str("remote", s.RemoteAddr().String()).
		Str("command", s.RawCommand()).
		Msg("session started")

	sh := NewShell("rmsh", server.cfg, s, s, s.Stderr(), server.log)
	sh.Exec.Env = append(os.Environ(), s.Environ()...)

	// ssh host 'command' runs one input; a plain ssh gets the prompt loop
	// over the session's raw byte stream.
	var status int
	if raw := s.RawCommand(); raw != "" {
		status = sh.RunInput(raw)
	} else {
		var err error
		status, err = sh.RunStream()
		if err != nil {
			server.log.Error().Err(err).Msg("session failed")
		}
	}

	server.log.Info().
		Str("user", s.User()).
		Int("status", status).
		Msg("session ended")
	s.Exit(status)
}

// ListenAndServe blocks serving SSH connections.
func (server *Server) ListenAndServe() error {
	server.log.Info().Str("addr", server.srv.Addr).Msg("starting SSH server")
	return server.srv.ListenAndServe()
}

// Shutdown stops the server, waiting for open sessions.
func (server *Server) Shutdown(ctx context.Context) error {
	return server.srv.Shutdown(ctx)
}
