package service

import (
	"context"
	"strings"

	"rental-registry/internal/apperror"
	"rental-registry/internal/models"

	"gorm.io/gorm"
)

func (s *Registry) CreateHolder(ctx context.Context, input CreateHolderInput) (HolderDTO, error) {
	name, err := normalizeRequiredString(input.Name, "name")
	if err != nil {
		return HolderDTO{}, err
	}
	kind := models.HolderKind(strings.ToLower(strings.TrimSpace(input.Kind)))
	if !kind.Valid() {
		return HolderDTO{}, apperror.New(apperror.CodeValidation, "kind must be one of: tenant, owner, vendor, contact")
	}

	holder := models.Holder{
		Name: name,
		Kind: kind,
	}
	err = s.inTx(ctx, "create_holder", func(tx *gorm.DB) error {
		holder.ID = 0
		return tx.Create(&holder).Error
	})
	if err != nil {
		return HolderDTO{}, err
	}

	return HolderDTO{
		ID:        holder.ID,
		Name:      holder.Name,
		Kind:      string(holder.Kind),
		CreatedAt: holder.CreatedAt,
	}, nil
}
