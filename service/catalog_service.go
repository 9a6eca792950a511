package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deposit-ledger/model"
	"deposit-ledger/storage"
)

// CatalogService manages deposit types. Clients only ever see active types; inactive and
// missing types are indistinguishable to them.
type CatalogService struct {
	exec *executor
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(store storage.Store, opts Options) *CatalogService {
	return &CatalogService{exec: newExecutor(store, opts)}
}

func validateDepositType(req model.DepositTypeRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("name is required: %w", ErrInvalidProduct)
	case !req.InterestRate.IsPositive():
		return fmt.Errorf("interest rate %s must be positive: %w", req.InterestRate, ErrInvalidProduct)
	case req.TermMonths <= 0:
		return fmt.Errorf("term of %d months must be positive: %w", req.TermMonths, ErrInvalidProduct)
	}
	return nil
}

// activeFlag reads the requested availability. Omitted means active.
func activeFlag(req model.DepositTypeRequest) bool {
	return req.IsActive == nil || *req.IsActive
}

// duplicateName reports a name clash as an invalid product.
func duplicateName(err error, name string) error {
	if errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("name %q already exists: %w", name, ErrInvalidProduct)
	}
	return err
}

// CreateDepositType adds a product. It is active unless the request says otherwise.
func (s *CatalogService) CreateDepositType(ctx context.Context, req model.DepositTypeRequest) (model.DepositType, error) {
	var created model.DepositType
	err := s.exec.run(ctx, "create_deposit_type", func(ctx context.Context) error {
		if err := validateDepositType(req); err != nil {
			return err
		}

		now := s.exec.now()
		var err error
		created, err = s.exec.store.SaveDepositType(ctx, model.DepositType{
			Name:         strings.TrimSpace(req.Name),
			InterestRate: req.InterestRate,
			TermMonths:   req.TermMonths,
			Description:  req.Description,
			IsActive:     activeFlag(req),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return duplicateName(err, req.Name)
	})
	if err != nil {
		return model.DepositType{}, err
	}

	s.exec.logger.Info("deposit type created", "deposit_type_id", created.ID, "name", created.Name)
	return created, nil
}

// UpdateDepositType replaces every mutable field of the product, the active flag included. An
// omitted flag means active, as on create. Deposits already open keep the rate and term they
// were opened with.
func (s *CatalogService) UpdateDepositType(ctx context.Context, id int64, req model.DepositTypeRequest) (model.DepositType, error) {
	var updated model.DepositType
	err := s.exec.run(ctx, "update_deposit_type", func(ctx context.Context) error {
		if err := validateDepositType(req); err != nil {
			return err
		}

		return s.exec.inTx(ctx, "update_deposit_type", func(repo storage.Repository) error {
			dt, err := repo.FindDepositTypeByID(ctx, id)
			if err != nil {
				return notFound(err, ErrDepositTypeNotFound, "deposit type %d", id)
			}

			dt.Name = strings.TrimSpace(req.Name)
			dt.InterestRate = req.InterestRate
			dt.TermMonths = req.TermMonths
			dt.Description = req.Description
			dt.IsActive = activeFlag(req)
			dt.UpdatedAt = s.exec.now()

			updated, err = repo.SaveDepositType(ctx, *dt)
			return duplicateName(err, req.Name)
		})
	})
	if err != nil {
		return model.DepositType{}, err
	}

	s.exec.logger.Info("deposit type updated", "deposit_type_id", updated.ID, "name", updated.Name)
	return updated, nil
}

// ActivateDepositType makes the product available for new deposits. Idempotent.
func (s *CatalogService) ActivateDepositType(ctx context.Context, id int64) error {
	return s.setActive(ctx, "activate_deposit_type", id, true)
}

// DeactivateDepositType withdraws the product from new deposits. Idempotent; open deposits are
// unaffected.
func (s *CatalogService) DeactivateDepositType(ctx context.Context, id int64) error {
	return s.setActive(ctx, "deactivate_deposit_type", id, false)
}

func (s *CatalogService) setActive(ctx context.Context, op string, id int64, active bool) error {
	return s.exec.run(ctx, op, func(ctx context.Context) error {
		return s.exec.inTx(ctx, op, func(repo storage.Repository) error {
			dt, err := repo.FindDepositTypeByID(ctx, id)
			if err != nil {
				return notFound(err, ErrDepositTypeNotFound, "deposit type %d", id)
			}
			if dt.IsActive == active {
				return nil
			}
			dt.IsActive = active
			dt.UpdatedAt = s.exec.now()
			_, err = repo.SaveDepositType(ctx, *dt)
			return err
		})
	})
}

// GetActiveDepositType returns the product only while it is active.
func (s *CatalogService) GetActiveDepositType(ctx context.Context, id int64) (model.DepositType, error) {
	return s.find(ctx, "get_active_deposit_type", id, s.exec.store.FindDepositTypeActive)
}

// GetDepositType returns the product whether or not it is active.
func (s *CatalogService) GetDepositType(ctx context.Context, id int64) (model.DepositType, error) {
	return s.find(ctx, "get_deposit_type", id, s.exec.store.FindDepositTypeByID)
}

func (s *CatalogService) find(ctx context.Context, op string, id int64, fn func(context.Context, int64) (*model.DepositType, error)) (model.DepositType, error) {
	var dt *model.DepositType
	err := s.exec.run(ctx, op, func(ctx context.Context) error {
		var err error
		dt, err = fn(ctx, id)
		return notFound(err, ErrDepositTypeNotFound, "deposit type %d", id)
	})
	if err != nil {
		return model.DepositType{}, err
	}
	return *dt, nil
}

// ListActiveDepositTypes returns the products clients can open deposits under, oldest first.
func (s *CatalogService) ListActiveDepositTypes(ctx context.Context) ([]model.DepositType, error) {
	return s.list(ctx, "list_active_deposit_types", true)
}

// ListDepositTypes returns every product, oldest first.
func (s *CatalogService) ListDepositTypes(ctx context.Context) ([]model.DepositType, error) {
	return s.list(ctx, "list_deposit_types", false)
}

func (s *CatalogService) list(ctx context.Context, op string, activeOnly bool) ([]model.DepositType, error) {
	var types []model.DepositType
	err := s.exec.run(ctx, op, func(ctx context.Context) error {
		var err error
		types, err = s.exec.store.ListDepositTypes(ctx, activeOnly)
		return err
	})
	return types, err
}
