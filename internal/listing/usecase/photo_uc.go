package usecase

import (
	"context"
	"fmt"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/resolver"
	"go.uber.org/zap"
)

// AddImages uploads payloads and appends them to the listing's images.
func (uc *ListingUsecase) AddImages(ctx context.Context, id string, payloads []resolver.Payload) (*domain.Listing, error) {
	if _, err := uc.GetListingByID(ctx, id); err != nil {
		return nil, err
	}
	refs, err := uc.persistAll(ctx, payloads)
	if err != nil {
		uc.logger.Error("ListingUsecase.AddImages: upload failed", zap.String("listing_id", id), zap.Error(err))
		return nil, err
	}
	return uc.mutate(ctx, id, func(l *domain.Listing) error {
		l.Images = append(l.Images, refs...)
		return nil
	})
}

// RemoveImage drops the image at index and deletes its blob once the
// collection is saved.
func (uc *ListingUsecase) RemoveImage(ctx context.Context, id string, index int) (*domain.Listing, error) {
	var removed domain.ImageRef
	l, err := uc.mutate(ctx, id, func(l *domain.Listing) error {
		if err := checkIndex(l, index); err != nil {
			return err
		}
		removed = l.Images[index]
		l.Images = append(l.Images[:index:index], l.Images[index+1:]...)
		return nil
	})
	if err != nil {
		return l, err
	}
	if removed.Kind != domain.RefInline {
		uc.images.Delete(ctx, removed)
	}
	return l, nil
}

// ReorderImages moves the image at from to position to.
func (uc *ListingUsecase) ReorderImages(ctx context.Context, id string, from, to int) (*domain.Listing, error) {
	return uc.mutate(ctx, id, func(l *domain.Listing) error {
		if err := checkIndex(l, from); err != nil {
			return err
		}
		if err := checkIndex(l, to); err != nil {
			return err
		}
		l.Images = moveImage(l.Images, from, to)
		return nil
	})
}

// SetPrimary makes the image at index the cover image.
func (uc *ListingUsecase) SetPrimary(ctx context.Context, id string, index int) (*domain.Listing, error) {
	return uc.ReorderImages(ctx, id, index, 0)
}

func checkIndex(l *domain.Listing, i int) error {
	if i < 0 || i >= len(l.Images) {
		return fmt.Errorf("%w: image index %d out of range (listing has %d images)", domain.ErrInvalidListingData, i, len(l.Images))
	}
	return nil
}

func moveImage(images []domain.ImageRef, from, to int) []domain.ImageRef {
	out := make([]domain.ImageRef, 0, len(images))
	moved := images[from]
	for i, ref := range images {
		if i != from {
			out = append(out, ref)
		}
	}
	out = append(out[:to], append([]domain.ImageRef{moved}, out[to:]...)...)
	return out
}
