package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/NicolasHaas/gochat/pkg/command"
	"github.com/NicolasHaas/gochat/pkg/model"
	"github.com/NicolasHaas/gochat/pkg/netconn"
	"github.com/NicolasHaas/gochat/pkg/rbac"
)

// ServeConn runs one connection from admission to cleanup and returns when
// the participant is gone. Transports call it on their own goroutine.
func (s *Server) ServeConn(conn Conn) {
	addr := conn.RemoteAddr()
	s.metrics.TotalConnections.Add(1)

	if s.registry.IsBlocked(addr) {
		s.metrics.RejectedConnections.Add(1)
		s.log.Info("connection rejected: address blocked", "remote", addr)
		_ = conn.Close()
		return
	}

	sess := newSession(conn, s.cfg.OutboundQueue, s.log)
	sess.onOverflow = func() { s.metrics.DroppedDeliveries.Add(1) }
	sess.start()

	s.track(sess)
	defer s.untrack(sess)
	if s.ctx.Err() != nil {
		sess.Kick(noticeShutdown)
	}

	s.metrics.ActiveConnections.Add(1)
	defer s.metrics.ActiveConnections.Add(-1)
	sess.log.Debug("new connection")

	sess.setState(StateAwaitingName)
	_ = sess.Send(noticeNamePrompt)

	requested, err := s.readName(sess)
	if err != nil {
		// Never joined: nobody is told.
		sess.log.Info("connection closed before naming", "reason", readFailure(err))
		sess.Close()
		sess.wait()
		sess.setState(StateClosed)
		return
	}

	s.join(sess, requested)
	defer s.leave(sess)

	s.readLoop(sess)
}

// readName waits for the first line, bounded by NamePromptTimeout.
func (s *Server) readName(sess *Session) (string, error) {
	if d := s.cfg.NamePromptTimeout; d > 0 {
		timer := time.AfterFunc(d, sess.Close)
		defer timer.Stop()
	}
	for {
		line, err := sess.conn.ReadLine()
		if !errors.Is(err, netconn.ErrLineTooLong) {
			return line, err
		}
		_ = sess.Send(noticeLineTooLong)
		_ = sess.Send(noticeNamePrompt)
	}
}

func (s *Server) join(sess *Session, requested string) {
	name := sess.AssignName(requested)

	if sess.Role() == model.RoleAdmin {
		_ = sess.Send(noticeAdminGranted)
	}

	s.registry.Add(sess)
	sess.setState(StateActive)
	s.metrics.TotalJoins.Add(1)
	sess.log.Info("session joined", "name", name, "role", sess.Role().String())

	s.registry.Announce(fmt.Sprintf(noticeJoined, name), sess)
	_ = sess.Send(fmt.Sprintf(noticeWelcome, name))
}

// leave is the single cleanup path. Only the caller whose Remove succeeds
// announces the departure.
func (s *Server) leave(sess *Session) {
	sess.setState(StateTerminating)

	if s.registry.Remove(sess) {
		s.metrics.TotalDisconnects.Add(1)
		name := sess.Name()
		sess.log.Info("session left", "name", name)
		s.registry.Announce(fmt.Sprintf(noticeLeft, name), sess)
	}

	sess.Close()
	sess.wait()
	sess.setState(StateClosed)
}

func (s *Server) readLoop(sess *Session) {
	for {
		line, err := sess.conn.ReadLine()
		if errors.Is(err, netconn.ErrLineTooLong) {
			sess.log.Warn("input line too long, discarded")
			_ = sess.Send(noticeLineTooLong)
			continue
		}
		if err != nil {
			sess.log.Debug("read loop ended", "reason", readFailure(err))
			return
		}
		if !s.dispatch(sess, command.Parse(line)) {
			return
		}
	}
}

// dispatch executes one command and reports whether the loop continues.
func (s *Server) dispatch(sess *Session, cmd command.Command) bool {
	switch c := cmd.(type) {
	case command.Empty:
	case command.Exit:
		sess.log.Debug("exit requested")
		return false
	case command.Help:
		s.handleHelp(sess)
	case command.ChangeName:
		s.handleChangeName(sess, c.Name)
	case command.Whisper:
		s.handleWhisper(sess, c.User, c.Text)
	case command.Ignore:
		s.handleIgnore(sess, c.User)
	case command.Unignore:
		s.handleUnignore(sess, c.User)
	case command.Block:
		if !s.allowed(sess, model.PermBlockUser) {
			return true
		}
		s.block(sess, c.User)
	case command.Invalid:
		if c.Keyword == command.KeywordBlock && !s.allowed(sess, model.PermBlockUser) {
			return true
		}
		_ = sess.Send(c.Usage)
	case command.Say:
		s.handleSay(sess, c.Text)
	default:
		sess.log.Warn("unhandled command", "type", fmt.Sprintf("%T", cmd))
	}
	return true
}

func (s *Server) allowed(sess *Session, perm model.Permission) bool {
	if err := rbac.RequirePermission(sess.Role(), perm); err != nil {
		sess.log.Debug("command refused", "err", err)
		_ = sess.Send(noticeNoPermission)
		return false
	}
	return true
}

func (s *Server) handleHelp(sess *Session) {
	for _, line := range helpLines {
		_ = sess.Send(line)
	}
	if rbac.HasPermission(sess.Role(), model.PermAdminHelp) {
		for _, line := range adminHelpLines {
			_ = sess.Send(line)
		}
	}
	_ = sess.Send(helpFooter)
}

func (s *Server) handleSay(sess *Session, text string) {
	s.metrics.ChatMessages.Add(1)
	s.registry.Relay(fmt.Sprintf(chatLine, sess.Name(), text), sess)
}

func (s *Server) handleChangeName(sess *Session, newName string) {
	old, err := sess.Rename(s.registry, newName)
	if err != nil {
		if errors.Is(err, model.ErrNameTaken) {
			_ = sess.Send(fmt.Sprintf(noticeNameTaken, newName))
			return
		}
		sess.log.Error("rename failed", "err", err)
		return
	}

	s.metrics.Renames.Add(1)
	sess.log.Info("session renamed", "old", old, "name", newName)

	_ = sess.Send(fmt.Sprintf(noticeRenamedSelf, newName))
	s.registry.Announce(fmt.Sprintf(noticeRenamed, old, newName), sess)
}

func (s *Server) handleWhisper(sess *Session, user, text string) {
	target := s.registry.FindByName(user)
	switch {
	case target == nil:
		_ = sess.Send(fmt.Sprintf(noticeUserNotFound, user))
		return
	case target == sess:
		_ = sess.Send(noticeWhisperSelf)
		return
	}

	senderName := sess.Name()
	if target.IsIgnoring(senderName) {
		_ = sess.Send(fmt.Sprintf(noticeWhisperIgnored, target.Name()))
		return
	}

	if err := target.Send(fmt.Sprintf(noticeWhisperFrom, senderName, text)); err != nil {
		sess.log.Debug("whisper not delivered", "target", target.Name(), "err", err)
	}
	s.metrics.Whispers.Add(1)
	_ = sess.Send(fmt.Sprintf(noticeWhisperTo, target.Name(), text))
}

func (s *Server) handleIgnore(sess *Session, user string) {
	if err := sess.Ignore(user); err != nil {
		if errors.Is(err, model.ErrSelfTarget) {
			_ = sess.Send(noticeIgnoreSelf)
		}
		return
	}
	_ = sess.Send(fmt.Sprintf(noticeIgnored, user))
}

func (s *Server) handleUnignore(sess *Session, user string) {
	removed, err := sess.Unignore(user)
	switch {
	case errors.Is(err, model.ErrSelfTarget):
		_ = sess.Send(noticeIgnoreSelf)
	case removed:
		_ = sess.Send(fmt.Sprintf(noticeUnignored, user))
	default:
		_ = sess.Send(fmt.Sprintf(noticeNotIgnoring, user))
	}
}

// readFailure names why a read ended, for logs.
func readFailure(err error) string {
	switch {
	case errors.Is(err, io.EOF):
		return "eof"
	case errors.Is(err, net.ErrClosed):
		return "closed"
	default:
		return err.Error()
	}
}
