package app

import (
	"parstock/internal/core"

	"github.com/shopspring/decimal"
)

// UserSession is returned by Login. The adapter turns it into a session cookie.
type UserSession struct {
	UserID      int       `json:"user_id"`
	Username    string    `json:"username"`
	Role        core.Role `json:"role"`
	Permissions []string  `json:"permissions"`
}

// UserResult is a user with its effective "module.action" permissions.
type UserResult struct {
	core.User
	Permissions []string `json:"permissions"`
}

// ItemStockResult totals one item's stock across locations.
type ItemStockResult struct {
	ItemID         int                   `json:"item_id"`
	ItemName       string                `json:"item_name"`
	ShortCode      string                `json:"item_short_code"`
	TotalOnHand    decimal.Decimal       `json:"total_on_hand"`
	TotalAvailable decimal.Decimal       `json:"total_available"`
	Locations      []core.StockLevelView `json:"locations"`
}

// CSRFResult is returned by the CSRF endpoint.
type CSRFResult struct {
	CSRFToken string `json:"csrfToken"`
}

// HealthResult reports process and dependency status.
type HealthResult struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}
