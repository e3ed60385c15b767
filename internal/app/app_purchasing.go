package app

import (
	"context"

	"parstock/internal/core"
)

func (s *appService) ListPurchaseRequests(ctx context.Context, who core.Principal, filter core.PurchaseFilter) ([]core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Purchases.List(ctx, filter)
}

func (s *appService) CreatePurchaseRequest(ctx context.Context, who core.Principal, req CreatePurchaseRequest) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	lines := make([]core.PurchaseLineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.PurchaseLineInput{ItemID: l.ItemID, LocationID: l.LocationID, Qty: l.Qty, UnitCost: l.UnitCost}
	}
	p, err := s.svc.Purchases.Create(ctx, core.CreatePurchaseInput{
		VendorID:    req.VendorID,
		RequestedBy: who.UserID,
		Notes:       req.Notes,
		Lines:       lines,
	})
	if err != nil {
		return nil, err
	}
	s.logTransition("purchase request", p.ID, "", string(p.Status), who)
	return p, nil
}

func (s *appService) PurchaseFromSuggestions(ctx context.Context, who core.Principal, req PurchaseFromSuggestionsRequest) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	p, err := s.svc.Purchases.CreateFromSuggestions(ctx, req.VendorID, who.UserID, req.Notes)
	if err != nil {
		return nil, err
	}
	s.logTransition("purchase request", p.ID, "", string(p.Status), who)
	return p, nil
}

func (s *appService) GetPurchaseRequest(ctx context.Context, who core.Principal, id int) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Purchases.Get(ctx, id)
}

func (s *appService) SubmitPurchaseRequest(ctx context.Context, who core.Principal, id int) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionEdit, nil); err != nil {
		return nil, err
	}
	p, err := s.svc.Purchases.Submit(ctx, id, who)
	if err != nil {
		return nil, err
	}
	s.logTransition("purchase request", p.ID, string(core.PurchaseDraft), string(p.Status), who)
	return p, nil
}

func (s *appService) ApprovePurchaseRequest(ctx context.Context, who core.Principal, id int) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionApprove, nil); err != nil {
		return nil, err
	}
	p, err := s.svc.Purchases.Approve(ctx, id, who)
	if err != nil {
		return nil, err
	}
	s.logTransition("purchase request", p.ID, "", string(p.Status), who)
	return p, nil
}

func (s *appService) DenyPurchaseRequest(ctx context.Context, who core.Principal, id int, req DenyRequest) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionApprove, &req); err != nil {
		return nil, err
	}
	p, err := s.svc.Purchases.Deny(ctx, id, who, req.DenialReason)
	if err != nil {
		return nil, err
	}
	s.logTransition("purchase request", p.ID, "", string(p.Status), who)
	return p, nil
}

func (s *appService) OrderPurchaseRequest(ctx context.Context, who core.Principal, id int, req PurchaseOrderRequest) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	p, err := s.svc.Purchases.MarkOrdered(ctx, id, who, req.PONumber)
	if err != nil {
		return nil, err
	}
	s.logTransition("purchase request", p.ID, string(core.PurchaseApproved), string(p.Status), who)
	return p, nil
}

// ReceivePurchaseRequest needs receiving rights as well, since it puts stock on hand.
func (s *appService) ReceivePurchaseRequest(ctx context.Context, who core.Principal, id int, req PurchaseReceiveRequest) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	if err := s.policy.Require(who, core.ModuleReceiving, core.ActionCreate); err != nil {
		return nil, err
	}
	receipts := make([]core.ReceiptLineInput, len(req.Lines))
	for i, l := range req.Lines {
		receipts[i] = core.ReceiptLineInput{ItemID: l.ItemID, LocationID: l.LocationID, QtyReceived: l.QtyReceived}
	}
	p, err := s.svc.Purchases.Receive(ctx, id, who, receipts)
	if err != nil {
		return nil, err
	}
	s.logTransition("purchase request", p.ID, string(core.PurchaseOrdered), string(p.Status), who)
	s.stockChanged(ctx)
	return p, nil
}

func (s *appService) CancelPurchaseRequest(ctx context.Context, who core.Principal, id int) (*core.PurchaseRequest, error) {
	if err := s.authorize(who, core.ModulePurchasing, core.ActionEdit, nil); err != nil {
		return nil, err
	}
	p, err := s.svc.Purchases.Cancel(ctx, id, who)
	if err != nil {
		return nil, err
	}
	s.logTransition("purchase request", p.ID, "", string(p.Status), who)
	return p, nil
}
