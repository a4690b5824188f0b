package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/letteros/letteros/internal/domain"
)

const kindLaunchContent = "LC"

type launchContentItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	domain.LaunchContent
}

// LaunchContentRepo stores LaunchContent items.
type LaunchContentRepo struct {
	table *Table
}

func NewLaunchContentRepo(t *Table) *LaunchContentRepo { return &LaunchContentRepo{table: t} }

func (r *LaunchContentRepo) Get(ctx context.Context, id string) (*domain.LaunchContent, error) {
	var it launchContentItem
	if err := r.table.get(ctx, kindLaunchContent, id, &it); err != nil {
		return nil, err
	}
	return &it.LaunchContent, nil
}

func (r *LaunchContentRepo) ListByUser(ctx context.Context, userID string) ([]domain.LaunchContent, error) {
	items, err := r.table.queryUser(ctx, userID, kindLaunchContent, true)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LaunchContent, 0, len(items))
	for _, item := range items {
		var it launchContentItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, fmt.Errorf("unmarshaling launch content: %w", err)
		}
		out = append(out, it.LaunchContent)
	}
	return out, nil
}

func (r *LaunchContentRepo) Put(ctx context.Context, lc *domain.LaunchContent) error {
	return r.table.put(ctx, launchContentItem{
		PK:            kindLaunchContent + "#" + lc.ID,
		SK:            kindLaunchContent,
		GSI1PK:        userKey(lc.UserID, kindLaunchContent),
		GSI1SK:        sortKey(lc.CreatedAt),
		LaunchContent: *lc,
	})
}

func (r *LaunchContentRepo) Delete(ctx context.Context, id string) error {
	return r.table.delete(ctx, kindLaunchContent, id)
}
