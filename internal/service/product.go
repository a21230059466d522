package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stockpilot/stockpilot-go/internal/crypto"
	"github.com/stockpilot/stockpilot-go/internal/events"
	"github.com/stockpilot/stockpilot-go/internal/model"
	"github.com/stockpilot/stockpilot-go/internal/policy"
	"github.com/stockpilot/stockpilot-go/internal/repository"
)

const codeAttempts = 5

var (
	ErrProductNameTaken  = errors.New("there is already a product with that name")
	ErrInternalCodeTaken = errors.New("there is already a product with that internal code")
)

// ProductStore is the product persistence used by ProductService.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	ListByUser(ctx context.Context, userID int64, f model.ProductFilter) ([]model.Product, error)
	NameExists(ctx context.Context, userID int64, name string, excludeID int64) (bool, error)
	InternalCodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	Update(ctx context.Context, userID, id int64, patch model.ProductPatch) (*model.Product, error)
	ToggleInactive(ctx context.Context, userID, id int64) (*model.Product, error)
	Delete(ctx context.Context, userID, id int64) error
}

// ReportCache stores per-user report summaries.
type ReportCache interface {
	Get(ctx context.Context, userID int64) (*model.ReportSummary, bool, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	Set(ctx context.Context, userID, generation int64, summary *model.ReportSummary) error
	Invalidate(ctx context.Context, userID int64) error
}

// ProductService handles the owner-scoped product catalog. Every operation on
// an existing product goes through policy.Authorize first.
type ProductService struct {
	products          ProductStore
	cache             ReportCache
	publisher         events.Publisher
	lowStockThreshold int
	newCode           func() (string, error)
}

// NewProductService creates a new ProductService. cache and publisher may be nil.
func NewProductService(products ProductStore, cache ReportCache, publisher events.Publisher, lowStockThreshold int) *ProductService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ProductService{
		products:          products,
		cache:             cache,
		publisher:         publisher,
		lowStockThreshold: lowStockThreshold,
		newCode: func() (string, error) {
			return crypto.GenerateCode(crypto.DefaultCodeOptions())
		},
	}
}

// Create adds a product to the caller's catalog. A missing internal code is generated.
func (s *ProductService) Create(ctx context.Context, userID int64, req model.CreateProductRequest) (*model.Product, error) {
	if err := normalizeCreateProduct(&req); err != nil {
		return nil, err
	}

	taken, err := s.products.NameExists(ctx, userID, req.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrProductNameTaken
	}

	code := req.InternalCode
	if code == "" {
		if code, err = s.generateCode(ctx); err != nil {
			return nil, err
		}
	} else {
		taken, err := s.products.InternalCodeExists(ctx, code, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrInternalCodeTaken
		}
	}

	p := &model.Product{
		UserID:        userID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Cost:          req.Cost,
		Platform:      req.Platform,
		ImgURL:        req.ImgURL,
		InternalCode:  code,
		StockQuantity: req.StockQuantity,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, mapProductErr(err)
	}

	s.invalidate(ctx, userID)
	return p, nil
}

// Get returns one of the caller's products.
func (s *ProductService) Get(ctx context.Context, userID, id int64) (*model.Product, error) {
	return policy.Authorize(ctx, userID, s.loader(id), repository.ErrProductNotFound)
}

// List returns the caller's products, newest first.
func (s *ProductService) List(ctx context.Context, userID int64, f model.ProductFilter) ([]model.Product, error) {
	products, err := s.products.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// Update applies a partial update to one of the caller's products.
func (s *ProductService) Update(ctx context.Context, userID, id int64, patch model.ProductPatch) (*model.Product, error) {
	if err := normalizeProductPatch(&patch); err != nil {
		return nil, err
	}

	current, err := policy.Authorize(ctx, userID, s.loader(id), repository.ErrProductNotFound)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != current.Name {
		taken, err := s.products.NameExists(ctx, userID, *patch.Name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrProductNameTaken
		}
	}
	if patch.InternalCode != nil && *patch.InternalCode != current.InternalCode {
		taken, err := s.products.InternalCodeExists(ctx, *patch.InternalCode, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrInternalCodeTaken
		}
	}

	updated, err := s.products.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, mapProductErr(err)
	}

	s.invalidate(ctx, userID)
	s.checkLowStock(ctx, current, updated)
	return updated, nil
}

// ToggleInactive flips the inactive flag of one of the caller's products.
func (s *ProductService) ToggleInactive(ctx context.Context, userID, id int64) (*model.Product, error) {
	if _, err := policy.Authorize(ctx, userID, s.loader(id), repository.ErrProductNotFound); err != nil {
		return nil, err
	}

	p, err := s.products.ToggleInactive(ctx, userID, id)
	if err != nil {
		return nil, mapProductErr(err)
	}

	s.invalidate(ctx, userID)
	return p, nil
}

// Delete removes one of the caller's products.
func (s *ProductService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := policy.Authorize(ctx, userID, s.loader(id), repository.ErrProductNotFound); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, userID, id); err != nil {
		return mapProductErr(err)
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *ProductService) loader(id int64) func(context.Context) (*model.Product, error) {
	return func(ctx context.Context) (*model.Product, error) {
		return s.products.GetByID(ctx, id)
	}
}

func (s *ProductService) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		taken, err := s.products.InternalCodeExists(ctx, code, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrInternalCodeTaken
}

func (s *ProductService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		slog.Warn("report cache invalidation failed", "user_id", userID, "error", err)
	}
}

// checkLowStock publishes an alert when an update takes an active product
// below the threshold.
func (s *ProductService) checkLowStock(ctx context.Context, before, after *model.Product) {
	if s.lowStockThreshold <= 0 || after.Inactive {
		return
	}
	if before.StockQuantity < s.lowStockThreshold || after.StockQuantity >= s.lowStockThreshold {
		return
	}
	publish(ctx, s.publisher, events.Event{
		Type:   events.TypeProductLowStock,
		UserID: after.UserID,
		Payload: events.ProductLowStock{
			ProductID:     after.ID,
			InternalCode:  after.InternalCode,
			StockQuantity: after.StockQuantity,
			Threshold:     s.lowStockThreshold,
		},
	})
}

func mapProductErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return policy.ErrNotFound
	case errors.Is(err, repository.ErrDuplicateProductName):
		return ErrProductNameTaken
	case errors.Is(err, repository.ErrDuplicateInternalCode):
		return ErrInternalCodeTaken
	default:
		return err
	}
}
