package app

import (
	"context"

	"parstock/internal/core"

	"github.com/sirupsen/logrus"
)

func (s *appService) ListCountSessions(ctx context.Context, who core.Principal, filter core.CountSessionFilter) ([]core.CountSession, error) {
	if err := s.authorize(who, core.ModuleCounts, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Counts.ListSessions(ctx, filter)
}

func (s *appService) StartCount(ctx context.Context, who core.Principal, req StartCountRequest) (*core.CountSession, error) {
	if err := s.authorize(who, core.ModuleCounts, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	cs, err := s.svc.Counts.CreateSession(ctx, req.LocationID, who.UserID, req.Notes)
	if err != nil {
		return nil, err
	}
	s.logTransition("count session", cs.ID, "", string(cs.Status), who)
	return cs, nil
}

func (s *appService) GetCountSession(ctx context.Context, who core.Principal, sessionID int) (*core.CountSession, error) {
	if err := s.authorize(who, core.ModuleCounts, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Counts.GetSession(ctx, sessionID)
}

func (s *appService) RecordCountLine(ctx context.Context, who core.Principal, sessionID int, req CountLineRequest) (*core.CountLine, error) {
	if err := s.authorize(who, core.ModuleCounts, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	return s.svc.Counts.AddLine(ctx, sessionID, core.CountLineInput{
		ItemID:     req.ItemID,
		CountedQty: req.CountedQty,
		ReasonCode: core.ReasonCode(req.ReasonCode),
		Notes:      req.Notes,
	})
}

func (s *appService) CompleteCount(ctx context.Context, who core.Principal, sessionID int) (*core.CountSession, error) {
	if err := s.authorize(who, core.ModuleCounts, core.ActionEdit, nil); err != nil {
		return nil, err
	}
	cs, err := s.svc.Counts.Complete(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.logTransition("count session", cs.ID, string(core.CountInProgress), string(cs.Status), who)
	return cs, nil
}

func (s *appService) ApproveCount(ctx context.Context, who core.Principal, sessionID int) (*core.CountSession, error) {
	if err := s.authorize(who, core.ModuleCounts, core.ActionApprove, nil); err != nil {
		return nil, err
	}
	cs, err := s.svc.Counts.Approve(ctx, sessionID, who.UserID)
	if err != nil {
		return nil, err
	}
	s.logTransition("count session", cs.ID, string(core.CountCompleted), string(cs.Status), who)
	s.stockChanged(ctx)
	return cs, nil
}

func (s *appService) CancelCount(ctx context.Context, who core.Principal, sessionID int) (*core.CountSession, error) {
	if err := s.authorize(who, core.ModuleCounts, core.ActionEdit, nil); err != nil {
		return nil, err
	}
	cs, err := s.svc.Counts.Cancel(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.logTransition("count session", cs.ID, "", string(cs.Status), who)
	return cs, nil
}

func (s *appService) SpotCheck(ctx context.Context, who core.Principal, req SpotCheckRequest) (*core.SpotCheckResult, error) {
	if err := s.authorize(who, core.ModuleCounts, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.Counts.SpotCheck(ctx, core.SpotCheckInput{
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
		CountedQty: req.CountedQty,
		Notes:      req.Notes,
		UserID:     who.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !res.Variance.IsZero() {
		s.logger.WithFields(logrus.Fields{
			"item_id":     res.ItemID,
			"location_id": res.LocationID,
			"variance":    res.Variance.String(),
			"actor":       who.Username,
		}).Info("spot check adjusted stock")
		s.stockChanged(ctx)
	}
	return res, nil
}
