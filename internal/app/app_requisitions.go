package app

import (
	"context"

	"parstock/internal/core"
)

func (s *appService) ListRequisitions(ctx context.Context, who core.Principal, filter core.RequisitionFilter) ([]core.Requisition, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Requisitions.List(ctx, filter)
}

func (s *appService) CreateRequisition(ctx context.Context, who core.Principal, req CreateRequisitionRequest) (*core.Requisition, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	lines := make([]core.RequisitionLineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.RequisitionLineInput{ItemID: l.ItemID, Qty: l.Qty}
	}
	r, err := s.svc.Requisitions.Create(ctx, core.CreateRequisitionInput{
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		RequestedBy:    who.UserID,
		NeededBy:       req.NeededBy,
		Notes:          req.Notes,
		Lines:          lines,
	})
	if err != nil {
		return nil, err
	}
	s.logTransition("requisition", r.ID, "", string(r.Status), who)
	return r, nil
}

func (s *appService) GetRequisition(ctx context.Context, who core.Principal, id int) (*core.Requisition, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Requisitions.Get(ctx, id)
}

func (s *appService) RequisitionAvailability(ctx context.Context, who core.Principal, id int) (*core.Availability, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Requisitions.CheckAvailability(ctx, id)
}

func (s *appService) ApproveRequisition(ctx context.Context, who core.Principal, id int) (*core.Requisition, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionApprove, nil); err != nil {
		return nil, err
	}
	r, err := s.svc.Requisitions.Approve(ctx, id, who)
	if err != nil {
		return nil, err
	}
	s.logTransition("requisition", r.ID, string(core.RequisitionPending), string(r.Status), who)
	return r, nil
}

func (s *appService) DenyRequisition(ctx context.Context, who core.Principal, id int, req DenyRequest) (*core.Requisition, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionApprove, &req); err != nil {
		return nil, err
	}
	r, err := s.svc.Requisitions.Deny(ctx, id, who, req.DenialReason)
	if err != nil {
		return nil, err
	}
	s.logTransition("requisition", r.ID, string(core.RequisitionPending), string(r.Status), who)
	return r, nil
}

func (s *appService) PickRequisition(ctx context.Context, who core.Principal, id int, req PickRequest) (*core.Requisition, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	picks := make([]core.PickInput, len(req.Lines))
	for i, l := range req.Lines {
		picks[i] = core.PickInput{ItemID: l.ItemID, QtyPicked: l.QtyPicked}
	}
	r, err := s.svc.Requisitions.Pick(ctx, id, who, picks)
	if err != nil {
		return nil, err
	}
	s.logTransition("requisition", r.ID, string(core.RequisitionApproved), string(r.Status), who)
	// Reservations change available quantities.
	s.stockChanged(ctx)
	return r, nil
}

func (s *appService) CompleteRequisition(ctx context.Context, who core.Principal, id int) (*core.Requisition, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionEdit, nil); err != nil {
		return nil, err
	}
	r, err := s.svc.Requisitions.Complete(ctx, id, who)
	if err != nil {
		return nil, err
	}
	s.logTransition("requisition", r.ID, string(core.RequisitionPicked), string(r.Status), who)
	s.stockChanged(ctx)
	return r, nil
}

func (s *appService) CancelRequisition(ctx context.Context, who core.Principal, id int) (*core.Requisition, error) {
	if err := s.authorize(who, core.ModuleRequisitions, core.ActionEdit, nil); err != nil {
		return nil, err
	}
	r, err := s.svc.Requisitions.Cancel(ctx, id, who)
	if err != nil {
		return nil, err
	}
	s.logTransition("requisition", r.ID, "", string(r.Status), who)
	s.stockChanged(ctx)
	return r, nil
}
