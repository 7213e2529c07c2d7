package supervisor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/notify"
	"github.com/DoyleJ11/loteria-client/internal/rematch"
)

type CommandKind string

const (
	CmdStartMatch      CommandKind = "start"
	CmdRevealCard      CommandKind = "reveal"
	CmdMarkSlot        CommandKind = "mark"
	CmdLeave           CommandKind = "leave"
	CmdEndMatch        CommandKind = "end"
	CmdInitiateRematch CommandKind = "propose-rematch"
	CmdConfirmRematch  CommandKind = "confirm-rematch"
	CmdCreateRematch   CommandKind = "create-rematch"
	CmdRetryProposal   CommandKind = "retry-proposal"
)

// Command is one user action. Position applies to CmdMarkSlot and Accept to
// CmdConfirmRematch.
type Command struct {
	Kind     CommandKind
	Position int
	Accept   bool
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoMatchLoaded  = errors.New("no match loaded yet")
	ErrWrongPhase     = errors.New("not allowed in the current phase")
	ErrBadPosition    = errors.New("board position out of range")
	ErrExpelled       = errors.New("you were expelled from this match")
)

const (
	MsgLeft            = "You left the match"
	MsgRematchRejected = "You rejected the rematch and left the match"
	MsgRematchAccepted = "You accepted the rematch"
	MsgProposalSent    = "Rematch proposed, waiting for the other players"
	msgProposalFailed  = "Could not propose a rematch, you can retry"
)

func (s *Supervisor) StartMatch(ctx context.Context) error {
	return s.Do(ctx, Command{Kind: CmdStartMatch})
}

func (s *Supervisor) RevealCard(ctx context.Context) error {
	return s.Do(ctx, Command{Kind: CmdRevealCard})
}

func (s *Supervisor) MarkSlot(ctx context.Context, position int) error {
	return s.Do(ctx, Command{Kind: CmdMarkSlot, Position: position})
}

func (s *Supervisor) Leave(ctx context.Context) error {
	return s.Do(ctx, Command{Kind: CmdLeave})
}

func (s *Supervisor) EndMatch(ctx context.Context) error {
	return s.Do(ctx, Command{Kind: CmdEndMatch})
}

func (s *Supervisor) InitiateRematch(ctx context.Context) error {
	return s.Do(ctx, Command{Kind: CmdInitiateRematch})
}

// ConfirmRematch answers a pending proposal. Rejecting leaves the match.
func (s *Supervisor) ConfirmRematch(ctx context.Context, accept bool) error {
	return s.Do(ctx, Command{Kind: CmdConfirmRematch, Accept: accept})
}

func (s *Supervisor) CreateRematch(ctx context.Context) error {
	return s.Do(ctx, Command{Kind: CmdCreateRematch})
}

func (s *Supervisor) RetryRematchProposal(ctx context.Context) error {
	return s.Do(ctx, Command{Kind: CmdRetryProposal})
}

// Do runs cmd and waits for the server's answer. Commands that break a local
// rule fail with a business-rule error before anything is sent.
func (s *Supervisor) Do(ctx context.Context, cmd Command) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, commandMsg{Cmd: cmd, Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func (s *Supervisor) handleCommand(msg commandMsg) {
	if err := s.checkRule(msg.Cmd); err != nil {
		s.log.Debug("command refused locally", zap.String("command", string(msg.Cmd.Kind)), zap.Error(err))
		s.notifier.PostWithSeverity(notify.SeverityWarning, capitalize(err.Error()))
		msg.Reply <- failure.Wrap(failure.KindBusinessRule, err.Error(), err)
		return
	}

	gen, cmd, reply := s.gen, msg.Cmd, msg.Reply
	go func() {
		res := commandResult{Gen: gen, Cmd: cmd, Reply: reply}
		res.Err = s.withAuth(s.ctx, func(ctx context.Context) error {
			var err error
			res.Mark, res.NewID, err = s.execute(ctx, cmd)
			return err
		})
		s.post(res)
	}()
}

// checkRule validates cmd against the last reconciled snapshot.
func (s *Supervisor) checkRule(cmd Command) error {
	snap := s.snapshot
	switch cmd.Kind {
	case CmdStartMatch:
		if err := hostInPhase(snap, match.PhaseWaiting); err != nil {
			return err
		}
	case CmdRevealCard:
		if err := hostInPhase(snap, match.PhaseStarted); err != nil {
			return err
		}
	case CmdEndMatch:
		if snap == nil {
			return ErrNoMatchLoaded
		}
		if !snap.Viewer.IsHost {
			return rematch.ErrNotHost
		}
	case CmdMarkSlot:
		if snap == nil {
			return ErrNoMatchLoaded
		}
		if snap.Viewer.IsCheater {
			return ErrExpelled
		}
		if snap.Phase != match.PhaseStarted {
			return ErrWrongPhase
		}
		if snap.Board == nil || cmd.Position < 0 || cmd.Position >= len(snap.Board.Cards) {
			return fmt.Errorf("%w: %d", ErrBadPosition, cmd.Position)
		}
	case CmdLeave:
		if snap == nil && s.session.MatchID == 0 {
			return ErrNoMatchLoaded
		}
	case CmdInitiateRematch:
		return s.votes.CheckInitiate(snap)
	case CmdConfirmRematch:
		return s.votes.CheckConfirm(snap)
	case CmdCreateRematch:
		return s.votes.CheckCreate(snap)
	case CmdRetryProposal:
		return s.votes.CheckRetry(snap)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	return nil
}

func hostInPhase(snap *match.Snapshot, phase match.Phase) error {
	if snap == nil {
		return ErrNoMatchLoaded
	}
	if !snap.Viewer.IsHost {
		return rematch.ErrNotHost
	}
	if snap.Phase != phase {
		return ErrWrongPhase
	}
	return nil
}

func (s *Supervisor) execute(ctx context.Context, cmd Command) (match.MarkResult, int64, error) {
	switch cmd.Kind {
	case CmdStartMatch:
		return match.MarkResult{}, 0, s.commands.StartMatch(ctx)
	case CmdRevealCard:
		return match.MarkResult{}, 0, s.commands.RevealCard(ctx)
	case CmdMarkSlot:
		res, err := s.commands.MarkSlot(ctx, cmd.Position)
		return res, 0, err
	case CmdLeave:
		return match.MarkResult{}, 0, s.commands.LeaveMatch(ctx)
	case CmdEndMatch:
		return match.MarkResult{}, 0, s.commands.EndMatch(ctx)
	case CmdInitiateRematch, CmdRetryProposal:
		return match.MarkResult{}, 0, s.commands.ProposeRematch(ctx)
	case CmdConfirmRematch:
		if !cmd.Accept {
			// The server treats a rejection as leaving the match.
			return match.MarkResult{}, 0, s.commands.LeaveMatch(ctx)
		}
		return match.MarkResult{}, 0, s.commands.ConfirmRematch(ctx, true)
	case CmdCreateRematch:
		id, err := s.commands.CreateRematch(ctx)
		return match.MarkResult{}, id, err
	}
	return match.MarkResult{}, 0, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
}

func (s *Supervisor) handleCommandResult(r commandResult) {
	defer s.present()
	defer func() { r.Reply <- r.Err }()

	if r.Gen != s.gen {
		s.log.Debug("dropping stale command result",
			zap.String("command", string(r.Cmd.Kind)),
			zap.Uint64("result_generation", r.Gen),
			zap.Uint64("generation", s.gen))
		// The session moved on, but the user still hears about the failure.
		if r.Err != nil {
			s.notifier.PostWithSeverity(notify.SeverityError, failure.Message(r.Err))
		}
		return
	}

	if r.Err != nil {
		s.commandFailed(r.Cmd, r.Err)
		return
	}
	s.log.Debug("command succeeded", zap.String("command", string(r.Cmd.Kind)), zap.Int64("match_id", s.session.MatchID))

	switch r.Cmd.Kind {
	case CmdLeave:
		s.forget()
		s.notifier.Post(MsgLeft)
		s.navigator.GoTo(match.Home())
		return

	case CmdConfirmRematch:
		if !r.Cmd.Accept {
			s.forget()
			s.votes.Rejected()
			s.notifier.Post(MsgRematchRejected)
			s.navigator.GoTo(match.Home())
			return
		}
		s.notifier.Post(MsgRematchAccepted)

	case CmdInitiateRematch, CmdRetryProposal:
		s.votes.ProposalSent()
		s.notifier.Post(MsgProposalSent)

	case CmdCreateRematch:
		s.adoptRematch(r.NewID)

	case CmdMarkSlot:
		s.postMarkResult(r.Mark)
	}

	s.repollNow()
}

func (s *Supervisor) commandFailed(cmd Command, err error) {
	kind := failure.KindOf(err)
	s.log.Warn("command failed",
		zap.String("command", string(cmd.Kind)),
		zap.String("kind", string(kind)),
		zap.Int64("match_id", s.session.MatchID),
		zap.Error(err))

	switch {
	case kind == failure.KindAuth:
		s.expireSession(err)
	case cmd.Kind == CmdInitiateRematch || cmd.Kind == CmdRetryProposal:
		s.votes.ProposalFailed()
		s.notifier.PostLines(notify.SeverityError, msgProposalFailed, failure.Message(err))
	default:
		s.notifier.PostWithSeverity(notify.SeverityError, failure.Message(err))
	}
}

// adoptRematch switches the session to the match the host just created.
func (s *Supervisor) adoptRematch(id int64) {
	if id <= 0 {
		s.log.Warn("rematch created without an id")
		return
	}
	s.stopPolling()
	s.session = s.session.Track(id)
	s.snapshot = nil
	s.votes.Created(id)
	s.persist(id)
	s.notifier.Post(fmt.Sprintf("Rematch #%d created", id))
	s.navigator.GoTo(match.MatchPage(id))
}

func (s *Supervisor) postMarkResult(res match.MarkResult) {
	switch {
	case res.Cheater:
		s.notifier.PostWithSeverity(notify.SeverityError, firstNonEmpty(res.Message, "That card has not been called"))
	case res.Winner:
		s.notifier.Post(firstNonEmpty(res.Message, "Board complete"))
	case res.Message != "":
		s.notifier.Post(res.Message)
	}
}

// repollNow refreshes right after a successful command, starting polling
// again when it had stopped.
func (s *Supervisor) repollNow() {
	if s.status == StatusPolling {
		s.fetchNow()
		return
	}
	if s.session.MatchID == 0 {
		return
	}
	if err := s.start(s.session.MatchID); err != nil {
		s.log.Warn("restart polling", zap.Error(err))
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
