package app

import (
	"context"

	"parstock/internal/core"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func (s *appService) ListStock(ctx context.Context, who core.Principal, filter core.StockFilter) ([]core.StockLevelView, error) {
	if err := s.authorize(who, core.ModuleStock, core.ActionView, nil); err != nil {
		return nil, err
	}
	levels, err := s.svc.Inventory.GetStockLevels(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]core.StockLevelView, len(levels))
	for i, l := range levels {
		out[i] = s.rules.View(l)
	}
	return out, nil
}

func (s *appService) StockByItem(ctx context.Context, who core.Principal, itemID int) ([]ItemStockResult, error) {
	if err := s.authorize(who, core.ModuleStock, core.ActionView, nil); err != nil {
		return nil, err
	}
	var (
		levels []core.StockLevel
		err    error
	)
	if itemID > 0 {
		levels, err = s.svc.Inventory.StockByItem(ctx, itemID)
	} else {
		levels, err = s.svc.Inventory.GetStockLevels(ctx, core.StockFilter{})
	}
	if err != nil {
		return nil, err
	}
	return groupByItem(levels, s.rules), nil
}

func (s *appService) logMovement(t *core.InventoryTransaction, who core.Principal) {
	s.logger.WithFields(logrus.Fields{
		"tx_id":   t.ID,
		"type":    t.Type,
		"item_id": t.ItemID,
		"qty":     t.Qty.String(),
		"actor":   who.Username,
	}).Info("stock movement")
}

func (s *appService) Transfer(ctx context.Context, who core.Principal, req TransferRequest) (*core.InventoryTransaction, error) {
	if err := s.authorize(who, core.ModuleStock, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	t, err := s.svc.Inventory.Transfer(ctx, core.TransferInput{
		ItemID:         req.ItemID,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Qty:            req.Qty,
		Notes:          req.Notes,
		UserID:         who.UserID,
	})
	if err != nil {
		return nil, err
	}
	s.logMovement(t, who)
	s.stockChanged(ctx)
	return t, nil
}

func (s *appService) Issue(ctx context.Context, who core.Principal, req IssueRequest) (*core.InventoryTransaction, error) {
	if err := s.authorize(who, core.ModuleStock, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	t, err := s.svc.Inventory.Issue(ctx, core.IssueInput{
		ItemID:         req.ItemID,
		FromLocationID: req.FromLocationID,
		Qty:            req.Qty,
		WorkOrderRef:   req.WorkOrderID,
		Notes:          req.Notes,
		UserID:         who.UserID,
	})
	if err != nil {
		return nil, err
	}
	s.logMovement(t, who)
	s.stockChanged(ctx)
	return t, nil
}

func (s *appService) Adjust(ctx context.Context, who core.Principal, req AdjustRequest) (*core.InventoryTransaction, error) {
	if err := s.authorize(who, core.ModuleStock, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	reason := req.Reason
	if reason == "" {
		reason = req.Notes
	}
	t, err := s.svc.Inventory.Adjust(ctx, core.AdjustInput{
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
		NewQty:     req.Qty,
		Reason:     reason,
		UserID:     who.UserID,
	})
	if err != nil {
		return nil, err
	}
	s.logMovement(t, who)
	s.stockChanged(ctx)
	return t, nil
}

func (s *appService) Reconcile(ctx context.Context, who core.Principal) ([]core.ReconcileDiff, error) {
	if err := s.authorize(who, core.ModuleStock, core.ActionApprove, nil); err != nil {
		return nil, err
	}
	diffs, err := s.svc.Inventory.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	if len(diffs) > 0 {
		s.logger.WithFields(logrus.Fields{"drifted": len(diffs), "actor": who.Username}).Warn("stock levels disagree with ledger")
	}
	return diffs, nil
}

// parUpdates maps request rows onto core updates. Par is the par_min alias
// used by the settings screen; absent values are zero.
func parUpdates(rows []ParLevelRow) []core.ParLevelUpdate {
	out := make([]core.ParLevelUpdate, len(rows))
	for i, r := range rows {
		u := core.ParLevelUpdate{
			ItemID:     r.ItemID,
			LocationID: r.LocationID,
			ParMin:     decimal.Zero,
			ParMax:     decimal.Zero,
		}
		switch {
		case r.ParMin != nil:
			u.ParMin = *r.ParMin
		case r.Par != nil:
			u.ParMin = *r.Par
		}
		if r.ParMax != nil {
			u.ParMax = *r.ParMax
		}
		out[i] = u
	}
	return out
}

func (s *appService) UpdateParLevels(ctx context.Context, who core.Principal, req ParLevelsRequest) (*core.ParLevelResult, error) {
	if err := s.authorize(who, core.ModuleSettings, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.Inventory.UpdateParLevels(ctx, parUpdates(req.Updates))
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"updated": len(res.Updated),
		"errors":  len(res.Errors),
		"actor":   who.Username,
	}).Info("par levels updated")
	if len(res.Updated) > 0 {
		s.stockChanged(ctx)
	}
	return res, nil
}

// ── Receiving ────────────────────────────────────────────────────────────────

func (s *appService) Receive(ctx context.Context, who core.Principal, req ReceiveRequest) (*core.InventoryTransaction, error) {
	if err := s.authorize(who, core.ModuleReceiving, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	t, err := s.svc.Inventory.Receive(ctx, core.ReceiveInput{
		ItemID:       req.ItemID,
		ToLocationID: req.ToLocationID,
		Qty:          req.Qty,
		Cost:         req.Cost,
		VendorID:     req.VendorID,
		ReceiptRef:   req.PONumber,
		Notes:        req.Notes,
		UserID:       who.UserID,
	})
	if err != nil {
		return nil, err
	}
	s.logMovement(t, who)
	s.stockChanged(ctx)
	return t, nil
}

func (s *appService) ReceivingHistory(ctx context.Context, who core.Principal, limit int) ([]core.InventoryTransaction, error) {
	if err := s.authorize(who, core.ModuleReceiving, core.ActionView, nil); err != nil {
		return nil, err
	}
	return s.svc.Inventory.ReceivingHistory(ctx, limit)
}
