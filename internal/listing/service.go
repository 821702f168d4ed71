package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service 封装货品管理用例。
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// CreateListingInput 新增货品入参。
type CreateListingInput struct {
	FarmerID   string
	CropName   string `json:"cropName"`
	Category   string `json:"category"`
	Location   string `json:"location"`
	ImageURL   string `json:"imageUrl"`
	Quantity   int64  `json:"quantity"`
	PricePerKg int64  `json:"pricePerKg"`
}

func (s *Service) Create(ctx context.Context, in CreateListingInput) (*Listing, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if strings.TrimSpace(in.FarmerID) == "" {
		return nil, apperr.Validationf("farmer_id required")
	}
	if strings.TrimSpace(in.CropName) == "" {
		return nil, apperr.Validationf("crop_name required")
	}
	if in.Quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive")
	}
	if in.PricePerKg <= 0 {
		return nil, apperr.Validationf("price_per_kg must be positive")
	}

	l := &Listing{
		ID:         uuid.NewString(),
		FarmerID:   strings.TrimSpace(in.FarmerID),
		CropName:   strings.TrimSpace(in.CropName),
		Category:   strings.TrimSpace(in.Category),
		Location:   strings.TrimSpace(in.Location),
		ImageURL:   strings.TrimSpace(in.ImageURL),
		Quantity:   in.Quantity,
		PricePerKg: in.PricePerKg,
		Status:     StatusActive,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Update 更新货品展示字段（只允许货主操作，库存不在此处变动）。
func (s *Service) Update(ctx context.Context, id, farmerID string, in CreateListingInput) (*Listing, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	l, err := s.getOwned(ctx, id, farmerID)
	if err != nil {
		return nil, err
	}
	if in.PricePerKg <= 0 {
		return nil, apperr.Validationf("price_per_kg must be positive")
	}

	l.CropName = strings.TrimSpace(in.CropName)
	l.Category = strings.TrimSpace(in.Category)
	l.Location = strings.TrimSpace(in.Location)
	l.ImageURL = strings.TrimSpace(in.ImageURL)
	l.PricePerKg = in.PricePerKg

	if err := s.repo.UpdateDetails(ctx, l); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id, farmerID string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	if _, err := s.getOwned(ctx, id, farmerID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id, farmerID)
}

func (s *Service) Get(ctx context.Context, id string) (*Listing, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("listing %s", id)
		}
		return nil, err
	}
	return l, nil
}

func (s *Service) ListByFarmer(ctx context.Context, farmerID string) ([]Listing, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListByFarmer(ctx, farmerID)
}

func (s *Service) ListActive(ctx context.Context) ([]Listing, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListActive(ctx)
}

func (s *Service) getOwned(ctx context.Context, id, farmerID string) (*Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.FarmerID != farmerID {
		// 非货主按不存在处理，不暴露他人货品
		return nil, apperr.NotFoundf("listing %s", id)
	}
	return l, nil
}
