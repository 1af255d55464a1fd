package broker

import (
	"context"
	"encoding/json"
	"testing"

	"order-composer/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	keys   []string
	events []interface{}
}

func (r *recordingSink) PublishEvent(ctx context.Context, key string, event interface{}) error {
	r.keys = append(r.keys, key)
	r.events = append(r.events, event)
	return nil
}

func TestPublisherKeysByBusiness(t *testing.T) {
	sink := &recordingSink{}
	pub := NewEventPublisher(sink)

	require.NoError(t, pub.PublishOrderSubmitted(context.Background(), &models.OrderSubmittedEvent{BusinessID: "42"}))
	require.NoError(t, pub.PublishOrderSubmissionFailed(context.Background(), &models.OrderSubmissionFailedEvent{BusinessID: "42"}))

	assert.Equal(t, []string{"business-42", "business-42"}, sink.keys)
}

func TestHandleCatalogUpdated(t *testing.T) {
	var got *models.CatalogUpdatedEvent
	h := NewEventHandler()
	h.OnCatalogUpdated(func(ctx context.Context, e *models.CatalogUpdatedEvent) error {
		got = e
		return nil
	})

	body, err := json.Marshal(models.CatalogUpdatedEvent{
		BaseEvent:  models.BaseEvent{EventID: "e-1", EventType: models.EventTypeCatalogUpdated},
		BusinessID: "biz-1",
		Kinds:      []string{models.CatalogKindProducts},
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: body}))
	require.NotNil(t, got)
	assert.Equal(t, "biz-1", got.BusinessID)
	assert.Equal(t, []string{models.CatalogKindProducts}, got.Kinds)
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	called := false
	h := NewEventHandler()
	h.OnCatalogUpdated(func(ctx context.Context, e *models.CatalogUpdatedEvent) error {
		called = true
		return nil
	})

	err := h.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"ORDER_SUBMITTED"}`)})
	assert.NoError(t, err)
	assert.False(t, called)

	assert.Error(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte(`not json`)}))
}
