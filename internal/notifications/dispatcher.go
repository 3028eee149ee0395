// Package notifications stores and delivers user-facing notifications.
// Settlement emits intents fire-and-forget; delivery failures never affect
// the emitting transaction.
package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gavelworks/auctionhouse-backend/pkg/db/models"
	"github.com/gavelworks/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelworks/auctionhouse-backend/pkg/errors"
)

// Intent is a request to notify a user about a domain event.
type Intent struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Link    *string
}

func (i Intent) validate() error {
	if i.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification user id required")
	}
	if !i.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown notification type %q", i.Type))
	}
	if strings.TrimSpace(i.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification title required")
	}
	return nil
}

// Dispatcher delivers an intent over one concrete channel. Implementations
// exist per enums.NotificationChannel; email and push variants plug in
// behind the same interface.
type Dispatcher interface {
	Channel() enums.NotificationChannel
	Dispatch(ctx context.Context, intent Intent) error
}

type inAppDispatcher struct {
	repo Repository
}

// NewInAppDispatcher delivers intents as persisted in-app notification rows.
func NewInAppDispatcher(repo Repository) (Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &inAppDispatcher{repo: repo}, nil
}

func (d *inAppDispatcher) Channel() enums.NotificationChannel {
	return enums.NotificationChannelInApp
}

func (d *inAppDispatcher) Dispatch(ctx context.Context, intent Intent) error {
	if err := intent.validate(); err != nil {
		return err
	}
	notification := &models.Notification{
		UserID:  intent.UserID,
		Type:    intent.Type,
		Title:   strings.TrimSpace(intent.Title),
		Message: intent.Message,
		Link:    intent.Link,
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist notification")
	}
	return nil
}
