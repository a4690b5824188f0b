package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/letteros/letteros/internal/domain"
)

const (
	kindNewsletter = "NL"
	scheduledKey   = "SCHEDULED"
)

type newsletterItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	GSI2PK string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK string `dynamodbav:"GSI2SK,omitempty"`
	domain.Newsletter
}

func toNewsletterItem(n *domain.Newsletter) newsletterItem {
	it := newsletterItem{
		PK:         kindNewsletter + "#" + n.ID,
		SK:         kindNewsletter,
		GSI1PK:     userKey(n.UserID, kindNewsletter),
		GSI1SK:     sortKey(n.CreatedAt),
		Newsletter: *n,
	}
	if n.Status == domain.NewsletterScheduled && n.ScheduledAt != nil {
		it.GSI2PK = scheduledKey
		it.GSI2SK = sortKey(*n.ScheduledAt)
	}
	return it
}

// NewsletterRepo stores Newsletter items.
type NewsletterRepo struct {
	table *Table
}

func NewNewsletterRepo(t *Table) *NewsletterRepo { return &NewsletterRepo{table: t} }

func (r *NewsletterRepo) Get(ctx context.Context, id string) (*domain.Newsletter, error) {
	var it newsletterItem
	if err := r.table.get(ctx, kindNewsletter, id, &it); err != nil {
		return nil, err
	}
	return &it.Newsletter, nil
}

func (r *NewsletterRepo) ListByUser(ctx context.Context, userID string) ([]domain.Newsletter, error) {
	items, err := r.table.queryUser(ctx, userID, kindNewsletter, true)
	if err != nil {
		return nil, err
	}
	return unmarshalNewsletters(items)
}

// ListDue reads the sparse scheduled index up to now.
func (r *NewsletterRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Newsletter, error) {
	items, err := r.table.query(ctx, &dynamodb.QueryInput{
		IndexName:              aws.String(gsi2),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND GSI2SK <= :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: scheduledKey},
			":now": &types.AttributeValueMemberS{Value: sortKey(now)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return unmarshalNewsletters(items)
}

func (r *NewsletterRepo) Put(ctx context.Context, n *domain.Newsletter) error {
	return r.table.put(ctx, toNewsletterItem(n))
}

// Claim drops the item out of the scheduled index with a conditional update.
func (r *NewsletterRepo) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	updatedAt, err := attributevalue.Marshal(now.UTC())
	if err != nil {
		return false, fmt.Errorf("marshaling updatedAt: %w", err)
	}
	_, err = r.table.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table.name),
		Key:                 key(kindNewsletter, id),
		UpdateExpression:    aws.String("REMOVE scheduledAt, GSI2PK, GSI2SK SET updatedAt = :updated"),
		ConditionExpression: aws.String("#status = :scheduled AND GSI2SK <= :now"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":scheduled": &types.AttributeValueMemberS{Value: string(domain.NewsletterScheduled)},
			":now":       &types.AttributeValueMemberS{Value: sortKey(now)},
			":updated":   updatedAt,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("claiming newsletter in DynamoDB: %w", err)
	}
	return true, nil
}

func (r *NewsletterRepo) Delete(ctx context.Context, id string) error {
	return r.table.delete(ctx, kindNewsletter, id)
}

func unmarshalNewsletters(items []map[string]types.AttributeValue) ([]domain.Newsletter, error) {
	out := make([]domain.Newsletter, 0, len(items))
	for _, item := range items {
		var it newsletterItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, fmt.Errorf("unmarshaling newsletter: %w", err)
		}
		out = append(out, it.Newsletter)
	}
	return out, nil
}
