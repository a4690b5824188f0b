package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/letteros/letteros/internal/domain"
)

const kindSubscriber = "SUB"

type subscriberItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	domain.Subscriber
}

func toSubscriberItem(s *domain.Subscriber) subscriberItem {
	return subscriberItem{
		PK:         kindSubscriber + "#" + s.ID,
		SK:         kindSubscriber,
		GSI1PK:     userKey(s.UserID, kindSubscriber),
		GSI1SK:     sortKey(s.CreatedAt) + "#" + s.Email,
		Subscriber: *s,
	}
}

// SubscriberRepo stores Subscriber items.
type SubscriberRepo struct {
	table *Table
}

func NewSubscriberRepo(t *Table) *SubscriberRepo { return &SubscriberRepo{table: t} }

func (r *SubscriberRepo) Get(ctx context.Context, id string) (*domain.Subscriber, error) {
	var it subscriberItem
	if err := r.table.get(ctx, kindSubscriber, id, &it); err != nil {
		return nil, err
	}
	return &it.Subscriber, nil
}

func (r *SubscriberRepo) ListByUser(ctx context.Context, userID string) ([]domain.Subscriber, error) {
	items, err := r.table.queryUser(ctx, userID, kindSubscriber, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Subscriber, 0, len(items))
	for _, item := range items {
		var it subscriberItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, fmt.Errorf("unmarshaling subscriber: %w", err)
		}
		if it.Tags == nil {
			it.Tags = []string{}
		}
		out = append(out, it.Subscriber)
	}
	return out, nil
}

func (r *SubscriberRepo) Put(ctx context.Context, s *domain.Subscriber) error {
	return r.table.put(ctx, toSubscriberItem(s))
}

// PutBatch writes an import batch in BatchWriteItem chunks. A failed chunk
// deletes the chunks already written, so the batch lands whole or not at all.
func (r *SubscriberRepo) PutBatch(ctx context.Context, subs []domain.Subscriber) error {
	items := make([]interface{}, len(subs))
	for i := range subs {
		items[i] = toSubscriberItem(&subs[i])
	}
	return r.table.batchPut(ctx, items)
}

func (r *SubscriberRepo) Delete(ctx context.Context, id string) error {
	return r.table.delete(ctx, kindSubscriber, id)
}
