package core

import (
	"context"
	"time"
)

// Vendor is a supplier that items are received from.
type Vendor struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	ContactInfo string    `json:"contact_info"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// VendorInput holds the editable fields of a vendor.
type VendorInput struct {
	Name        string
	ContactInfo string
	Phone       string
	Email       string
	IsActive    *bool
}

// VendorService provides vendor master data operations.
type VendorService interface {
	// ListVendors returns vendors by name; inactive ones only when asked.
	ListVendors(ctx context.Context, includeInactive bool) ([]Vendor, error)
	GetVendor(ctx context.Context, vendorID int) (*Vendor, error)
	CreateVendor(ctx context.Context, in VendorInput) (*Vendor, error)
	UpdateVendor(ctx context.Context, vendorID int, in VendorInput) (*Vendor, error)
	// DeactivateVendor hides the vendor; items and receipts keep referencing it.
	DeactivateVendor(ctx context.Context, vendorID int) error
}
