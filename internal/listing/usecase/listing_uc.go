package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/dov85/Apartment/internal/resolver"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentStore is the synchronized collection.
type DocumentStore interface {
	Load(ctx context.Context) (domain.Collection, error)
	Save(ctx context.Context, c domain.Collection) error
	Current() domain.Collection
}

// ImageStore persists and removes image blobs.
type ImageStore interface {
	Persist(ctx context.Context, p resolver.Payload) (domain.ImageRef, error)
	Delete(ctx context.Context, ref domain.ImageRef)
}

type ListingUsecase struct {
	docs   DocumentStore
	images ImageStore
	logger *logger.Logger
	now    func() time.Time
}

func NewListingUsecase(docs DocumentStore, images ImageStore, log *logger.Logger) *ListingUsecase {
	return &ListingUsecase{
		docs:   docs,
		images: images,
		logger: log.Named("listing_usecase"),
		now:    time.Now,
	}
}

type CreateListingInput struct {
	Title      string
	Address    domain.Address
	Price      int64
	Rooms      string
	Phone      string
	Link       string
	Status     domain.ListingStatus
	Floor      *int
	Amenities  map[string]bool
	Rating     *int
	Notes      string
	Reminder   *domain.Reminder
	EntryMonth string
	Images     []resolver.Payload
}

// ListingPatch carries the fields to change; nil means unchanged.
type ListingPatch struct {
	Title      *string
	Street     *string
	City       *string
	Price      *int64
	Rooms      *string
	Phone      *string
	Link       *string
	Status     *domain.ListingStatus
	Floor      *int
	Amenities  map[string]bool
	Rating     *int
	Notes      *string
	Reminder   *domain.Reminder
	EntryMonth *string
}

func (uc *ListingUsecase) current(ctx context.Context) (domain.Collection, error) {
	if c := uc.docs.Current(); c != nil {
		return c, nil
	}
	return uc.docs.Load(ctx)
}

func (uc *ListingUsecase) ListListings(ctx context.Context) (domain.Collection, error) {
	return uc.docs.Load(ctx)
}

func (uc *ListingUsecase) GetListingByID(ctx context.Context, id string) (*domain.Listing, error) {
	c, err := uc.current(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := c.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrListingNotFound, id)
	}
	l := c[i].Clone()
	return &l, nil
}

// CreateListing uploads any attached images, then adds the listing at the
// top of the collection.
func (uc *ListingUsecase) CreateListing(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	uc.logger.Info("ListingUsecase.CreateListing: creating new listing", zap.String("title", in.Title), zap.Int("images", len(in.Images)))

	status := in.Status
	if status == "" {
		status = domain.StatusNew
	}
	listing := domain.Listing{
		ID:         uuid.NewString(),
		Title:      in.Title,
		Address:    in.Address,
		Price:      in.Price,
		Rooms:      in.Rooms,
		Phone:      in.Phone,
		Link:       in.Link,
		Status:     status,
		CreatedAt:  uc.now().UnixMilli(),
		Images:     []domain.ImageRef{},
		Floor:      in.Floor,
		Amenities:  in.Amenities,
		Rating:     in.Rating,
		Notes:      in.Notes,
		Reminder:   in.Reminder,
		EntryMonth: in.EntryMonth,
	}
	if err := listing.Validate(); err != nil {
		return nil, err
	}

	c, err := uc.current(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := uc.persistAll(ctx, in.Images)
	if err != nil {
		uc.logger.Error("ListingUsecase.CreateListing: failed to upload images", zap.Error(err))
		return nil, err
	}
	listing.Images = refs

	next := append(domain.Collection{listing}, c...)
	if err := uc.docs.Save(ctx, next); err != nil {
		uc.logger.Error("ListingUsecase.CreateListing: remote save failed", zap.String("listing_id", listing.ID), zap.Error(err))
		return &listing, err
	}
	return &listing, nil
}

func (uc *ListingUsecase) UpdateListing(ctx context.Context, id string, patch ListingPatch) (*domain.Listing, error) {
	uc.logger.Info("ListingUsecase.UpdateListing: updating listing", zap.String("listing_id", id))
	return uc.mutate(ctx, id, func(l *domain.Listing) error {
		applyPatch(l, patch)
		return nil
	})
}

func (uc *ListingUsecase) SetStatus(ctx context.Context, id string, status domain.ListingStatus) (*domain.Listing, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidListingData, status)
	}
	return uc.mutate(ctx, id, func(l *domain.Listing) error {
		l.Status = status
		return nil
	})
}

// DeleteListing removes the listing and then every image it owns.
func (uc *ListingUsecase) DeleteListing(ctx context.Context, id string) error {
	uc.logger.Info("ListingUsecase.DeleteListing: deleting listing", zap.String("listing_id", id))

	c, err := uc.current(ctx)
	if err != nil {
		return err
	}
	i, ok := c.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrListingNotFound, id)
	}
	owned := c[i].Images
	next := append(c[:i:i], c[i+1:]...)

	if err := uc.docs.Save(ctx, next); err != nil {
		uc.logger.Error("ListingUsecase.DeleteListing: remote save failed, keeping images", zap.String("listing_id", id), zap.Error(err))
		return err
	}
	for _, ref := range owned {
		if ref.Kind == domain.RefInline {
			continue
		}
		uc.images.Delete(ctx, ref)
	}
	return nil
}

// DueReminders returns listings whose reminder falls on or before day.
func (uc *ListingUsecase) DueReminders(ctx context.Context, day time.Time) ([]domain.Listing, error) {
	c, err := uc.current(ctx)
	if err != nil {
		return nil, err
	}
	var due []domain.Listing
	for _, l := range c {
		if l.Reminder != nil && l.Reminder.Due(day) {
			due = append(due, l.Clone())
		}
	}
	return due, nil
}

// mutate applies fn to one listing, validates and saves the collection. A
// remote save failure still returns the updated listing.
func (uc *ListingUsecase) mutate(ctx context.Context, id string, fn func(*domain.Listing) error) (*domain.Listing, error) {
	c, err := uc.current(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := c.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrListingNotFound, id)
	}
	if err := fn(&c[i]); err != nil {
		return nil, err
	}
	if err := c[i].Validate(); err != nil {
		return nil, err
	}
	updated := c[i].Clone()
	if err := uc.docs.Save(ctx, c); err != nil {
		uc.logger.Warn("ListingUsecase: remote save failed", zap.String("listing_id", id), zap.Error(err))
		return &updated, err
	}
	return &updated, nil
}

func (uc *ListingUsecase) persistAll(ctx context.Context, payloads []resolver.Payload) ([]domain.ImageRef, error) {
	refs := make([]domain.ImageRef, 0, len(payloads))
	for _, p := range payloads {
		ref, err := uc.images.Persist(ctx, p)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func applyPatch(l *domain.Listing, p ListingPatch) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Street != nil {
		l.Address.Street = *p.Street
	}
	if p.City != nil {
		l.Address.City = *p.City
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Rooms != nil {
		l.Rooms = *p.Rooms
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.Link != nil {
		l.Link = *p.Link
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.Floor != nil {
		v := *p.Floor
		l.Floor = &v
	}
	if p.Amenities != nil {
		if l.Amenities == nil {
			l.Amenities = make(map[string]bool, len(p.Amenities))
		}
		for k, v := range p.Amenities {
			l.Amenities[k] = v
		}
	}
	if p.Rating != nil {
		v := *p.Rating
		l.Rating = &v
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	if p.Reminder != nil {
		r := *p.Reminder
		if r.Date == "" {
			l.Reminder = nil
		} else {
			l.Reminder = &r
		}
	}
	if p.EntryMonth != nil {
		l.EntryMonth = *p.EntryMonth
	}
}
