package app

import (
	"context"
	"errors"
	"fmt"

	"parstock/internal/cache"
	"parstock/internal/config"
	"parstock/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated is returned when a session no longer maps to an active user.
	ErrUnauthenticated = errors.New("authentication required")
)

// Services are the core services the application layer coordinates.
type Services struct {
	Inventory    core.InventoryService
	Counts       core.CountService
	Requisitions core.RequisitionService
	Purchases    core.PurchaseService
	Catalog      core.CatalogService
	Vendors      core.VendorService
	Users        core.UserService
	Reports      core.ReportingService
}

// NewServices builds every core service over pool using cfg's rules.
func NewServices(pool *pgxpool.Pool, cfg *config.Config) Services {
	inv := core.NewInventoryService(pool)
	reports := core.NewReportingService(pool, core.ParRules{RiskRatio: cfg.RiskRatio}, core.ForecastParams{
		WindowDays: cfg.UsageWindowDays,
		BufferDays: cfg.LeadTimeBufferDays,
	})
	return Services{
		Inventory:    inv,
		Counts:       core.NewCountService(pool, inv, cfg.RequireVarianceReason),
		Requisitions: core.NewRequisitionService(pool, inv),
		Purchases:    core.NewPurchaseService(pool, inv, reports),
		Catalog:      core.NewCatalogService(pool),
		Vendors:      core.NewVendorService(pool),
		Users:        core.NewUserService(pool),
		Reports:      reports,
	}
}

type appService struct {
	pool     *pgxpool.Pool
	svc      Services
	policy   *core.Policy
	rules    core.ParRules
	reports  *cache.ReportCache
	logger   logrus.FieldLogger
	validate *validator.Validate
}

// NewAppService constructs an appService that satisfies ApplicationService.
// pool is used only for health checks and may be nil; reports may be a disabled cache.
func NewAppService(
	pool *pgxpool.Pool,
	svc Services,
	policy *core.Policy,
	rules core.ParRules,
	reports *cache.ReportCache,
	logger logrus.FieldLogger,
) ApplicationService {
	return &appService{
		pool:     pool,
		svc:      svc,
		policy:   policy,
		rules:    rules,
		reports:  reports,
		logger:   logger,
		validate: newValidator(),
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// authorize checks who against module.action and, when req is non-nil, validates it.
func (s *appService) authorize(who core.Principal, m core.Module, a core.Action, req any) error {
	if err := s.policy.Require(who, m, a); err != nil {
		return err
	}
	if req != nil {
		return validateRequest(s.validate, req)
	}
	return nil
}

// stockChanged drops cached reports after a quantity or par change.
func (s *appService) stockChanged(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		config.LogError(s.logger, "app", "stockChanged", "report cache invalidation", nil, err)
	}
}

func (s *appService) logTransition(entity string, id int, from, to string, who core.Principal) {
	s.logger.WithFields(logrus.Fields{
		"entity": entity,
		"id":     id,
		"from":   from,
		"to":     to,
		"actor":  who.Username,
	}).Info("state transition")
}

// ── Health ───────────────────────────────────────────────────────────────────

func (s *appService) Health(ctx context.Context) *HealthResult {
	res := &HealthResult{Status: "ok", Database: "ok", Cache: "disabled"}
	if s.pool == nil {
		res.Database = "unavailable"
	} else if err := s.pool.Ping(ctx); err != nil {
		res.Status = "degraded"
		res.Database = "unreachable"
	}
	if s.reports.Enabled() {
		res.Cache = "enabled"
	}
	return res
}

// ── Identity ─────────────────────────────────────────────────────────────────

func principalOf(u *core.User) core.Principal {
	return core.Principal{UserID: u.ID, Username: u.Username, Role: u.Role, Grants: u.Grants}
}

func (s *appService) userResult(u *core.User) *UserResult {
	return &UserResult{User: *u, Permissions: s.policy.Effective(principalOf(u))}
}

func (s *appService) Login(ctx context.Context, req LoginRequest) (*UserSession, error) {
	if err := validateRequest(s.validate, &req); err != nil {
		return nil, err
	}
	u, err := s.svc.Users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.WithField("username", req.Username).Warn("login failed")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	s.logger.WithField("username", u.Username).Info("login")
	return &UserSession{
		UserID:      u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Permissions: s.policy.Effective(principalOf(u)),
	}, nil
}

func (s *appService) ResolvePrincipal(ctx context.Context, userID int) (core.Principal, error) {
	u, err := s.svc.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Principal{}, ErrUnauthenticated
		}
		return core.Principal{}, err
	}
	if !u.IsActive {
		return core.Principal{}, ErrUnauthenticated
	}
	return principalOf(u), nil
}

func (s *appService) CurrentUser(ctx context.Context, who core.Principal) (*UserResult, error) {
	u, err := s.svc.Users.GetByID(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	return s.userResult(u), nil
}

func (s *appService) ListUsers(ctx context.Context, who core.Principal) ([]UserResult, error) {
	if err := s.authorize(who, core.ModuleUsers, core.ActionView, nil); err != nil {
		return nil, err
	}
	users, err := s.svc.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserResult, len(users))
	for i := range users {
		out[i] = *s.userResult(&users[i])
	}
	return out, nil
}

func (s *appService) GetUser(ctx context.Context, who core.Principal, userID int) (*UserResult, error) {
	if err := s.authorize(who, core.ModuleUsers, core.ActionView, nil); err != nil {
		return nil, err
	}
	u, err := s.svc.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.userResult(u), nil
}

func userInput(req UserRequest) core.UserInput {
	return core.UserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     core.Role(req.Role),
		IsActive: req.IsActive,
	}
}

func (s *appService) CreateUser(ctx context.Context, who core.Principal, req UserRequest) (*UserResult, error) {
	if err := s.authorize(who, core.ModuleUsers, core.ActionCreate, &req); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, &ValidationError{Fields: map[string]string{"password": "this field is required"}}
	}
	u, err := s.svc.Users.Create(ctx, userInput(req))
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user": u.Username, "role": u.Role, "actor": who.Username}).Info("user created")
	return s.userResult(u), nil
}

func (s *appService) UpdateUser(ctx context.Context, who core.Principal, userID int, req UserRequest) (*UserResult, error) {
	if err := s.authorize(who, core.ModuleUsers, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	u, err := s.svc.Users.Update(ctx, userID, userInput(req))
	if err != nil {
		return nil, err
	}
	return s.userResult(u), nil
}

func (s *appService) DeactivateUser(ctx context.Context, who core.Principal, userID int) error {
	if err := s.authorize(who, core.ModuleUsers, core.ActionDelete, nil); err != nil {
		return err
	}
	if userID == who.UserID {
		return fmt.Errorf("%w: you cannot deactivate your own account", core.ErrInvalidInput)
	}
	return s.svc.Users.Deactivate(ctx, userID)
}

func (s *appService) SetUserPermissions(ctx context.Context, who core.Principal, userID int, req PermissionsRequest) (*UserResult, error) {
	if err := s.authorize(who, core.ModuleUsers, core.ActionEdit, &req); err != nil {
		return nil, err
	}
	grants := make([]core.Capability, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		c, err := core.ParseCapability(p)
		if err != nil {
			return nil, err
		}
		grants = append(grants, c)
	}
	if err := s.svc.Users.SetGrants(ctx, userID, grants, who.UserID); err != nil {
		return nil, err
	}
	u, err := s.svc.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"user": u.Username, "grants": req.Permissions, "actor": who.Username}).Info("permissions updated")
	return s.userResult(u), nil
}

func (s *appService) AvailablePermissions(_ context.Context, who core.Principal) ([]string, error) {
	if err := s.authorize(who, core.ModuleUsers, core.ActionView, nil); err != nil {
		return nil, err
	}
	return core.AllCapabilities(), nil
}
