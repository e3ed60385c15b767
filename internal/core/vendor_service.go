package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type vendorService struct {
	pool *pgxpool.Pool
}

// NewVendorService constructs a VendorService backed by PostgreSQL.
func NewVendorService(pool *pgxpool.Pool) VendorService {
	return &vendorService{pool: pool}
}

const vendorColumns = `id, name, contact_info, phone, email, is_active, created_at`

func scanVendor(row pgx.Row) (*Vendor, error) {
	v := &Vendor{}
	if err := row.Scan(&v.ID, &v.Name, &v.ContactInfo, &v.Phone, &v.Email, &v.IsActive, &v.CreatedAt); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *vendorService) ListVendors(ctx context.Context, includeInactive bool) ([]Vendor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+vendorColumns+`
		FROM vendors
		WHERE is_active OR $1
		ORDER BY name`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, *v)
	}
	return vendors, rows.Err()
}

func (s *vendorService) GetVendor(ctx context.Context, vendorID int) (*Vendor, error) {
	v, err := scanVendor(s.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, vendorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("vendor", vendorID)
		}
		return nil, fmt.Errorf("failed to load vendor %d: %w", vendorID, err)
	}
	return v, nil
}

func (s *vendorService) CreateVendor(ctx context.Context, in VendorInput) (*Vendor, error) {
	active := in.IsActive == nil || *in.IsActive
	v, err := scanVendor(s.pool.QueryRow(ctx, `
		INSERT INTO vendors (name, contact_info, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+vendorColumns,
		in.Name, in.ContactInfo, in.Phone, in.Email, active))
	if err != nil {
		return nil, fmt.Errorf("failed to create vendor %q: %w", in.Name, err)
	}
	return v, nil
}

func (s *vendorService) UpdateVendor(ctx context.Context, vendorID int, in VendorInput) (*Vendor, error) {
	v, err := scanVendor(s.pool.QueryRow(ctx, `
		UPDATE vendors
		SET name = $2, contact_info = $3, phone = $4, email = $5,
		    is_active = COALESCE($6, is_active), updated_at = now()
		WHERE id = $1
		RETURNING `+vendorColumns,
		vendorID, in.Name, in.ContactInfo, in.Phone, in.Email, in.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("vendor", vendorID)
		}
		return nil, fmt.Errorf("failed to update vendor %d: %w", vendorID, err)
	}
	return v, nil
}

func (s *vendorService) DeactivateVendor(ctx context.Context, vendorID int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE vendors SET is_active = false, updated_at = now() WHERE id = $1`, vendorID)
	if err != nil {
		return fmt.Errorf("failed to deactivate vendor %d: %w", vendorID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("vendor", vendorID)
	}
	return nil
}
