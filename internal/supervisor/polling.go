package supervisor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/engine"
	"github.com/DoyleJ11/loteria-client/internal/failure"
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/notify"
)

const (
	MsgSessionExpired = "Your session expired, please log in again"
	msgConnection     = "Connection problem, retrying"
)

func (s *Supervisor) start(matchID int64) error {
	if matchID == 0 {
		matchID = s.session.MatchID
	}
	if matchID <= 0 {
		return ErrNoMatch
	}
	if s.status == StatusPolling {
		if matchID == s.session.MatchID {
			return nil
		}
		s.stopPolling()
	}
	if s.probeReply != nil {
		s.stopPolling()
	}

	s.gen++
	s.status = StatusPolling
	if matchID != s.session.MatchID {
		s.session = s.session.Track(matchID)
		s.snapshot = nil
		s.votes.Reset()
	}
	s.persist(matchID)
	s.log.Info("polling started", zap.Int64("match_id", matchID), zap.Uint64("generation", s.gen))
	s.fetchNow()
	s.present()
	return nil
}

// stopPolling is idempotent. The generation always moves so that whatever is
// still in flight lands on a stale tag and is dropped.
func (s *Supervisor) stopPolling() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}
	s.fetching = false
	s.repoll = false
	if s.probeReply != nil {
		s.probeReply <- ErrStopped
		s.probeReply = nil
	}
	if s.status == StatusPolling {
		s.log.Info("polling stopped", zap.Int64("match_id", s.session.MatchID), zap.Uint64("generation", s.gen))
	}
	s.status = StatusIdle
}

// fetchNow issues a fetch unless one is already in flight, in which case the
// next fetch follows immediately after it lands.
func (s *Supervisor) fetchNow() {
	if s.fetching {
		s.repoll = true
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.fetching = true
	s.fetchCancel = cancel
	gen := s.gen

	go func() {
		defer cancel()
		var snap *match.Snapshot
		err := s.withAuth(ctx, func(ctx context.Context) error {
			var err error
			snap, err = s.fetcher.Fetch(ctx)
			return err
		})
		s.post(fetchResult{Gen: gen, Snap: snap, Err: err})
	}()
}

// arm schedules the next tick one interval after the previous fetch finished.
func (s *Supervisor) arm() {
	if s.status != StatusPolling {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	gen, seq := s.gen, s.timerSeq
	s.timer = s.scheduler.AfterFunc(s.cfg.PollInterval, func() {
		s.post(tickMsg{Gen: gen, Seq: seq})
	})
}

func (s *Supervisor) handleTick(msg tickMsg) {
	if msg.Gen != s.gen || msg.Seq != s.timerSeq || s.status != StatusPolling {
		return
	}
	s.timer = nil
	s.fetchNow()
}

func (s *Supervisor) handleFetch(r fetchResult) {
	if r.Gen != s.gen {
		s.log.Debug("dropping stale fetch", zap.Uint64("result_generation", r.Gen), zap.Uint64("generation", s.gen))
		return
	}
	s.fetching = false
	s.fetchCancel = nil

	if s.probeReply != nil {
		s.finishProbe(r)
		s.present()
		return
	}
	if s.status != StatusPolling {
		return
	}

	if r.Err != nil {
		s.handleFetchError(r.Err)
	} else {
		s.apply(r.Snap)
	}

	if s.status == StatusPolling {
		if s.repoll {
			s.repoll = false
			s.fetchNow()
		} else {
			s.arm()
		}
	}
	s.present()
}

func (s *Supervisor) handleFetchError(err error) {
	switch failure.KindOf(err) {
	case failure.KindAuth:
		s.expireSession(err)
	case failure.KindValidation:
		s.log.Info("match rejected by server", zap.Int64("match_id", s.session.MatchID), zap.Error(err))
		s.apply(nil)
	default:
		s.log.Warn("fetch failed", zap.Int64("match_id", s.session.MatchID), zap.Error(err))
		s.notifier.PostWithSeverity(notify.SeverityWarning, fmt.Sprintf("%s: %s", msgConnection, failure.Message(err)))
	}
}

// apply runs one reconciliation pass and carries out its effects.
func (s *Supervisor) apply(snap *match.Snapshot) {
	before := s.session.MatchID
	events, next := engine.Reconcile(s.session, snap)
	s.session = next
	fx := engine.Plan(events)

	if engine.ContainsEvent(events, engine.EvtInvalidated) {
		s.snapshot = nil
		s.votes.Reset()
	} else {
		if engine.ContainsEvent(events, engine.EvtRedirected) {
			s.votes.Reset()
		}
		s.snapshot = snap
		s.votes.Observe(snap)
	}

	if len(events) > 0 {
		kinds := make([]string, 0, len(events))
		for _, ev := range events {
			kinds = append(kinds, string(ev.Kind))
		}
		s.log.Debug("reconciled", zap.Int64("match_id", before), zap.Strings("events", kinds))
	}

	if fx.Persist != 0 {
		s.persist(fx.Persist)
	}
	if fx.ClearPersisted {
		s.clearPersisted()
	}
	if fx.Notify() {
		s.notifier.PostLines(severityOf(events), fx.Lines...)
	}
	if fx.StopPolling {
		s.stopPolling()
	}
	if fx.Navigate != nil {
		s.navigator.GoTo(*fx.Navigate)
	}
}

func severityOf(events []engine.Event) notify.Severity {
	sev := notify.SeverityInfo
	for _, ev := range events {
		switch ev.Kind {
		case engine.EvtInvalidated, engine.EvtSelfFlagged:
			return notify.SeverityError
		case engine.EvtCheatersDetected:
			sev = notify.SeverityWarning
		}
	}
	return sev
}

// expireSession ends everything after credentials could not be renewed.
func (s *Supervisor) expireSession(err error) {
	s.log.Warn("session expired", zap.Int64("match_id", s.session.MatchID), zap.Error(err))
	s.notifier.PostWithSeverity(notify.SeverityError, MsgSessionExpired)
	s.forget()
	s.navigator.GoTo(match.Login())
}

// forget stops polling and drops every trace of the current match.
func (s *Supervisor) forget() {
	s.stopPolling()
	s.clearPersisted()
	s.session = engine.NewSessionState(0)
	s.snapshot = nil
	s.votes.Reset()
}

func (s *Supervisor) resume(reply chan error) {
	if s.status == StatusPolling {
		reply <- nil
		return
	}
	if s.probeReply != nil {
		reply <- ErrResumeInProgress
		return
	}

	ctx, cancel := s.storeCtx()
	id, err := s.store.Load(ctx)
	cancel()
	if err != nil {
		s.log.Warn("load persisted match id", zap.Error(err))
		reply <- err
		return
	}
	if id <= 0 {
		reply <- ErrNoMatch
		return
	}

	s.gen++
	s.probeID = id
	s.probeReply = reply
	s.fetchNow()
}

// finishProbe applies the liveness rule to a resumed match: it must still be
// the user's match, unfinished, and the user must not have been expelled.
func (s *Supervisor) finishProbe(r fetchResult) {
	reply, id := s.probeReply, s.probeID
	s.probeReply, s.probeID = nil, 0

	snap := r.Snap
	live := r.Err == nil && snap != nil && snap.Validate() == nil &&
		snap.MatchID == id && snap.Phase != match.PhaseFinished && !snap.Viewer.IsCheater
	if !live {
		s.log.Info("persisted match is no longer live", zap.Int64("match_id", id), zap.Error(r.Err))
		s.clearPersisted()
		if failure.KindOf(r.Err) == failure.KindAuth {
			s.expireSession(r.Err)
		}
		reply <- ErrNoMatch
		return
	}

	s.status = StatusPolling
	if id != s.session.MatchID {
		s.session = s.session.Track(id)
		s.snapshot = nil
		s.votes.Reset()
	}
	s.log.Info("resumed match", zap.Int64("match_id", id), zap.Uint64("generation", s.gen))
	s.apply(snap)
	s.arm()
	reply <- nil
}
