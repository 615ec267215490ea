package services

import (
	"context"
	"fmt"
	"time"

	"eventease/internal/domain"
)

type notificationPreferenceService struct {
	prefRepo       domain.NotificationPreferenceRepository
	contextTimeout time.Duration
}

func NewNotificationPreferenceService(prefRepo domain.NotificationPreferenceRepository, timeout time.Duration) domain.NotificationPreferenceService {
	return &notificationPreferenceService{
		prefRepo:       prefRepo,
		contextTimeout: timeout,
	}
}

func (s *notificationPreferenceService) GetPreferences(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	p, err := s.prefRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

// UpdatePreferences changes only the fields that are non-nil.
func (s *notificationPreferenceService) UpdatePreferences(ctx context.Context, userID string, notifyInvited, notifyNotInvited *bool) (*domain.NotificationPreferences, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if notifyInvited == nil && notifyNotInvited == nil {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	p, err := s.prefRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if notifyInvited != nil {
		p.NotifyInvited = *notifyInvited
	}
	if notifyNotInvited != nil {
		p.NotifyNotInvited = *notifyNotInvited
	}
	p.UpdatedAt = time.Now()
	if err := s.prefRepo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	return p, nil
}
