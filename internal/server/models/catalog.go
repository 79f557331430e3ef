package models

import "time"

// CatalogItem is a listed book. ID is assigned by the catalog store.
type CatalogItem struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Price            int64     `json:"price"`
	CoverRef         string    `json:"cover"`
	FileRef          string    `json:"-"`
	SubmittedBy      string    `json:"submitted_by,omitempty"`
	PaymentReference string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// GrantedFile is the capability returned by a confirmed purchase: the
// holder may stream FileRef from asset storage exactly as named here.
type GrantedFile struct {
	ItemID    int64
	Title     string
	FileRef   string
	FileName  string
	Reference string
	// Regrant is true when the reference had already been redeemed for
	// this item and no new entitlement was recorded.
	Regrant bool
}
