package model

import "time"

// Product is an owned catalog entry.
type Product struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         Cents     `json:"price"`
	Cost          Cents     `json:"cost"`
	Platform      string    `json:"platform"`
	ImgURL        string    `json:"img_url"`
	InternalCode  string    `json:"internal_code"`
	StockQuantity int       `json:"stock_quantity"`
	Inactive      bool      `json:"inactive"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OwnerID implements policy.Ownable.
func (p *Product) OwnerID() int64 {
	if p == nil {
		return 0
	}
	return p.UserID
}

// CreateProductRequest represents a product creation request. InternalCode
// is generated when omitted.
type CreateProductRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         Cents  `json:"price"`
	Cost          Cents  `json:"cost"`
	Platform      string `json:"platform"`
	ImgURL        string `json:"img_url"`
	InternalCode  string `json:"internal_code"`
	StockQuantity int    `json:"stock_quantity"`
}

// ProductPatch carries only the fields a client supplied; nil means unchanged.
type ProductPatch struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Price         *Cents  `json:"price"`
	Cost          *Cents  `json:"cost"`
	Platform      *string `json:"platform"`
	ImgURL        *string `json:"img_url"`
	InternalCode  *string `json:"internal_code"`
	StockQuantity *int    `json:"stock_quantity"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Cost == nil &&
		p.Platform == nil && p.ImgURL == nil && p.InternalCode == nil && p.StockQuantity == nil
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	IncludeInactive bool
	Platform        string
	Search          string
}
