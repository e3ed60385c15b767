package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ── Items ────────────────────────────────────────────────────────────────────

const itemColumns = `
	i.id, i.name, i.short_code, i.category_id, COALESCE(c.name, ''), i.photo_url, i.unit_of_measure,
	i.default_vendor_id, COALESCE(v.name, ''), i.cost, i.lead_time_days, i.is_active, i.created_at, i.updated_at`

const itemJoins = `
	FROM items i
	LEFT JOIN categories c ON c.id = i.category_id
	LEFT JOIN vendors v    ON v.id = i.default_vendor_id`

func scanItem(row pgx.Row) (*Item, error) {
	it := &Item{}
	err := row.Scan(&it.ID, &it.Name, &it.ShortCode, &it.CategoryID, &it.CategoryName, &it.PhotoURL,
		&it.UnitOfMeasure, &it.DefaultVendorID, &it.VendorName, &it.Cost, &it.LeadTimeDays,
		&it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *catalogService) ListItems(ctx context.Context, f ItemFilter) ([]Item, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.IncludeInactive {
		where = append(where, "i.is_active")
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(i.name ILIKE "+p+" OR i.short_code ILIKE "+p+")")
	}
	if f.CategoryID != 0 {
		where = append(where, "i.category_id = "+arg(f.CategoryID))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+itemJoins+` `+clause+` ORDER BY i.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *catalogService) GetItem(ctx context.Context, itemID int) (*Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+itemJoins+` WHERE i.id = $1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("item", itemID)
		}
		return nil, fmt.Errorf("failed to load item %d: %w", itemID, err)
	}
	return it, nil
}

func (s *catalogService) LookupItem(ctx context.Context, code string) (*Item, error) {
	code = strings.TrimSpace(code)
	it, err := scanItem(s.pool.QueryRow(ctx,
		`SELECT `+itemColumns+itemJoins+` WHERE lower(i.short_code) = lower($1) AND i.is_active`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("item code", code)
		}
		return nil, fmt.Errorf("failed to look up item %q: %w", code, err)
	}
	return it, nil
}

func validateItemInput(in ItemInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.ShortCode) == "" {
		return fmt.Errorf("%w: name and short_code are required", ErrInvalidInput)
	}
	if in.Cost != nil {
		if err := ValidateCost("cost", *in.Cost); err != nil {
			return err
		}
	}
	if in.LeadTimeDays < 0 {
		return fmt.Errorf("%w: lead_time_days cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (s *catalogService) CreateItem(ctx context.Context, in ItemInput) (*Item, error) {
	if err := validateItemInput(in); err != nil {
		return nil, err
	}
	uom := in.UnitOfMeasure
	if uom == "" {
		uom = "ea"
	}
	active := in.IsActive == nil || *in.IsActive

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO items (name, short_code, category_id, photo_url, unit_of_measure,
		                   default_vendor_id, cost, lead_time_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		in.Name, strings.TrimSpace(in.ShortCode), in.CategoryID, in.PhotoURL, uom,
		in.DefaultVendorID, in.Cost, in.LeadTimeDays, active).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: short_code %q already exists", ErrInvalidInput, in.ShortCode)
		}
		return nil, fmt.Errorf("failed to create item %q: %w", in.ShortCode, err)
	}
	return s.GetItem(ctx, id)
}

func (s *catalogService) UpdateItem(ctx context.Context, itemID int, in ItemInput) (*Item, error) {
	if err := validateItemInput(in); err != nil {
		return nil, err
	}
	uom := in.UnitOfMeasure
	if uom == "" {
		uom = "ea"
	}
	if in.IsActive != nil && !*in.IsActive {
		if err := s.itemOpenWork(ctx, itemID); err != nil {
			return nil, err
		}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE items
		SET name = $2, short_code = $3, category_id = $4, photo_url = $5, unit_of_measure = $6,
		    default_vendor_id = $7, cost = $8, lead_time_days = $9,
		    is_active = COALESCE($10, is_active), updated_at = now()
		WHERE id = $1`,
		itemID, in.Name, strings.TrimSpace(in.ShortCode), in.CategoryID, in.PhotoURL, uom,
		in.DefaultVendorID, in.Cost, in.LeadTimeDays, in.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: short_code %q already exists", ErrInvalidInput, in.ShortCode)
		}
		return nil, fmt.Errorf("failed to update item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("item", itemID)
	}
	return s.GetItem(ctx, itemID)
}

// itemOpenWork fails with ErrInvalidInput while open documents or reservations need the item.
func (s *catalogService) itemOpenWork(ctx context.Context, itemID int) error {
	var w openWork
	if err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM count_lines cl JOIN count_sessions cs ON cs.id = cl.count_session_id
			  WHERE cl.item_id = $1 AND cs.status IN ('IN_PROGRESS', 'COMPLETED')),
			(SELECT COUNT(*) FROM requisition_lines rl JOIN requisitions r ON r.id = rl.requisition_id
			  WHERE rl.item_id = $1 AND r.status IN ('PENDING', 'APPROVED', 'PICKED')),
			(SELECT COUNT(*) FROM purchase_request_lines pl JOIN purchase_requests p ON p.id = pl.purchase_request_id
			  WHERE pl.item_id = $1 AND p.status IN ('DRAFT', 'SUBMITTED', 'APPROVED', 'ORDERED')),
			(SELECT COUNT(*) FROM stock_levels WHERE item_id = $1 AND reserved_qty > 0)
	`, itemID).Scan(&w.Counts, &w.Requisitions, &w.Purchases, &w.Reservations); err != nil {
		return fmt.Errorf("failed to check open work for item %d: %w", itemID, err)
	}
	return w.refuse("item", itemID)
}

// DeactivateItem refuses while the item is on open counts, requisitions or
// purchase requests, or still reserved somewhere.
func (s *catalogService) DeactivateItem(ctx context.Context, itemID int) error {
	if err := s.itemOpenWork(ctx, itemID); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `UPDATE items SET is_active = false, updated_at = now() WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to deactivate item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("item", itemID)
	}
	return nil
}

// openWork counts unfinished documents that still need an item or location active.
type openWork struct {
	Counts       int
	Requisitions int
	Purchases    int
	Reservations int
}

func (w openWork) refuse(entity string, id int) error {
	var open []string
	for _, c := range []struct {
		n    int
		what string
	}{
		{w.Counts, "open count sessions"},
		{w.Requisitions, "open requisitions"},
		{w.Purchases, "open purchase requests"},
		{w.Reservations, "reserved stock"},
	} {
		if c.n > 0 {
			open = append(open, fmt.Sprintf("%d %s", c.n, c.what))
		}
	}
	if len(open) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s %d cannot be deactivated with %s", ErrInvalidInput, entity, id, strings.Join(open, ", "))
}

func (s *catalogService) ItemUsage(ctx context.Context, itemID, days int) (*ItemUsage, error) {
	if days <= 0 {
		days = 30
	}
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	points, err := dailyIssues(ctx, s.pool, itemID, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.Qty)
	}
	return &ItemUsage{
		ItemID:     itemID,
		ItemName:   item.Name,
		Days:       days,
		TotalQty:   total,
		AvgDaily:   total.Div(decimal.NewFromInt(int64(days))).Round(4),
		UsageByDay: points,
	}, nil
}

// dailyIssues sums ISSUE quantities per day since the given time. itemID 0 means all items.
func dailyIssues(ctx context.Context, pool *pgxpool.Pool, itemID int, since time.Time) ([]UsagePoint, error) {
	rows, err := pool.Query(ctx, `
		SELECT created_at::date AS day, SUM(qty)
		FROM inventory_transactions
		WHERE type = 'ISSUE' AND created_at >= $1 AND ($2 = 0 OR item_id = $2)
		GROUP BY day
		ORDER BY day`, since, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	points := []UsagePoint{}
	for rows.Next() {
		var day time.Time
		var qty decimal.Decimal
		if err := rows.Scan(&day, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		points = append(points, UsagePoint{Day: day.Format("2006-01-02"), Qty: qty})
	}
	return points, rows.Err()
}

// ── Locations ────────────────────────────────────────────────────────────────

const locationColumns = `id, property_id, name, type, parent_location_id, is_active, created_at`

func scanLocation(row pgx.Row) (*Location, error) {
	l := &Location{}
	var typ string
	if err := row.Scan(&l.ID, &l.PropertyID, &l.Name, &typ, &l.ParentLocationID, &l.IsActive, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Type = LocationType(typ)
	return l, nil
}

func (s *catalogService) allLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locs []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locs = append(locs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	fillLocationPaths(locs)
	return locs, nil
}

// fillLocationPaths sets Path to "Root > ... > Name" for every location.
func fillLocationPaths(locs []Location) {
	byID := make(map[int]*Location, len(locs))
	for i := range locs {
		byID[locs[i].ID] = &locs[i]
	}
	for i := range locs {
		parts := []string{locs[i].Name}
		seen := map[int]bool{locs[i].ID: true}
		for p := locs[i].ParentLocationID; p != nil; {
			parent, ok := byID[*p]
			if !ok || seen[parent.ID] {
				break
			}
			seen[parent.ID] = true
			parts = append([]string{parent.Name}, parts...)
			p = parent.ParentLocationID
		}
		locs[i].Path = strings.Join(parts, " > ")
	}
}

func (s *catalogService) ListLocations(ctx context.Context, includeInactive bool) ([]Location, error) {
	all, err := s.allLocations(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return all, nil
	}
	active := make([]Location, 0, len(all))
	for _, l := range all {
		if l.IsActive {
			active = append(active, l)
		}
	}
	return active, nil
}

func (s *catalogService) GetLocation(ctx context.Context, locationID int) (*Location, error) {
	all, err := s.allLocations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == locationID {
			return &all[i], nil
		}
	}
	return nil, notFound("location", locationID)
}

func validateLocationInput(in *LocationInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: location name is required", ErrInvalidInput)
	}
	if in.Type == "" {
		in.Type = LocationStoreroom
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown location type %q", ErrInvalidInput, in.Type)
	}
	return nil
}

func (s *catalogService) CreateLocation(ctx context.Context, in LocationInput) (*Location, error) {
	if err := validateLocationInput(&in); err != nil {
		return nil, err
	}
	if in.ParentLocationID != nil {
		if err := requireLocation(ctx, s.pool, *in.ParentLocationID); err != nil {
			return nil, err
		}
	}
	active := in.IsActive == nil || *in.IsActive

	var id int
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO locations (property_id, name, type, parent_location_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		in.PropertyID, in.Name, string(in.Type), in.ParentLocationID, active).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create location %q: %w", in.Name, err)
	}
	return s.GetLocation(ctx, id)
}

func (s *catalogService) UpdateLocation(ctx context.Context, locationID int, in LocationInput) (*Location, error) {
	if err := validateLocationInput(&in); err != nil {
		return nil, err
	}
	if in.ParentLocationID != nil && *in.ParentLocationID == locationID {
		return nil, fmt.Errorf("%w: a location cannot be its own parent", ErrInvalidInput)
	}
	if in.IsActive != nil && !*in.IsActive {
		if err := s.locationOpenWork(ctx, locationID); err != nil {
			return nil, err
		}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE locations
		SET property_id = $2, name = $3, type = $4, parent_location_id = $5,
		    is_active = COALESCE($6, is_active), updated_at = now()
		WHERE id = $1`,
		locationID, in.PropertyID, in.Name, string(in.Type), in.ParentLocationID, in.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to update location %d: %w", locationID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound("location", locationID)
	}
	return s.GetLocation(ctx, locationID)
}

// locationOpenWork fails with ErrInvalidInput while open documents or reservations need the location.
func (s *catalogService) locationOpenWork(ctx context.Context, locationID int) error {
	var w openWork
	if err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM count_sessions
			  WHERE location_id = $1 AND status IN ('IN_PROGRESS', 'COMPLETED')),
			(SELECT COUNT(*) FROM requisitions
			  WHERE (from_location_id = $1 OR to_location_id = $1) AND status IN ('PENDING', 'APPROVED', 'PICKED')),
			(SELECT COUNT(DISTINCT p.id) FROM purchase_request_lines pl JOIN purchase_requests p ON p.id = pl.purchase_request_id
			  WHERE pl.location_id = $1 AND p.status IN ('DRAFT', 'SUBMITTED', 'APPROVED', 'ORDERED')),
			(SELECT COUNT(*) FROM stock_levels WHERE location_id = $1 AND reserved_qty > 0)
	`, locationID).Scan(&w.Counts, &w.Requisitions, &w.Purchases, &w.Reservations); err != nil {
		return fmt.Errorf("failed to check open work for location %d: %w", locationID, err)
	}
	return w.refuse("location", locationID)
}

// DeactivateLocation refuses while the location has open counts, requisitions
// or purchase requests, or holds reserved stock.
func (s *catalogService) DeactivateLocation(ctx context.Context, locationID int) error {
	if err := s.locationOpenWork(ctx, locationID); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `UPDATE locations SET is_active = false, updated_at = now() WHERE id = $1`, locationID)
	if err != nil {
		return fmt.Errorf("failed to deactivate location %d: %w", locationID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("location", locationID)
	}
	return nil
}

// ── Categories ───────────────────────────────────────────────────────────────

const categoryColumns = `id, name, icon, parent_category_id, is_active, created_at`

func scanCategory(row pgx.Row) (*Category, error) {
	c := &Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Icon, &c.ParentCategoryID, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *catalogService) ListCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE is_active OR $1 ORDER BY name`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	active := in.IsActive == nil || *in.IsActive
	c, err := scanCategory(s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, icon, parent_category_id, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		in.Name, in.Icon, in.ParentCategoryID, active))
	if err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", in.Name, err)
	}
	return c, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, categoryID int, in CategoryInput) (*Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if in.ParentCategoryID != nil && *in.ParentCategoryID == categoryID {
		return nil, fmt.Errorf("%w: a category cannot be its own parent", ErrInvalidInput)
	}
	c, err := scanCategory(s.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = $2, icon = $3, parent_category_id = $4,
		    is_active = COALESCE($5, is_active), updated_at = now()
		WHERE id = $1
		RETURNING `+categoryColumns,
		categoryID, in.Name, in.Icon, in.ParentCategoryID, in.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("category", categoryID)
		}
		return nil, fmt.Errorf("failed to update category %d: %w", categoryID, err)
	}
	return c, nil
}

func (s *catalogService) DeactivateCategory(ctx context.Context, categoryID int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE categories SET is_active = false, updated_at = now() WHERE id = $1`, categoryID)
	if err != nil {
		return fmt.Errorf("failed to deactivate category %d: %w", categoryID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("category", categoryID)
	}
	return nil
}
