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

// API is the subset of the DynamoDB client the repositories use.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

const (
	gsi1 = "GSI1"
	gsi2 = "GSI2"

	// BatchWriteItem accepts at most 25 requests.
	maxBatchWrite = 25

	sortTime = "2006-01-02T15:04:05.000000000Z07:00"
)

// Table wraps one DynamoDB table.
type Table struct {
	client API
	name   string

	// unprocessed items are retried this many times before giving up
	batchRetries int
	backoff      time.Duration
}

func NewTable(client API, name string) *Table {
	return &Table{client: client, name: name, batchRetries: 5, backoff: 50 * time.Millisecond}
}

func key(kind, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: kind + "#" + id},
		"SK": &types.AttributeValueMemberS{Value: kind},
	}
}

func userKey(userID, kind string) string { return "USER#" + userID + "#" + kind }

func sortKey(t time.Time) string { return t.UTC().Format(sortTime) }

func (t *Table) get(ctx context.Context, kind, id string, out interface{}) error {
	res, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            key(kind, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("getting %s from DynamoDB: %w", kind, err)
	}
	if len(res.Item) == 0 {
		return domain.ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", kind, err)
	}
	return nil
}

func (t *Table) put(ctx context.Context, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

func (t *Table) delete(ctx context.Context, kind, id string) error {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(t.name),
		Key:                 key(kind, id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("deleting %s from DynamoDB: %w", kind, err)
	}
	return nil
}

// query runs a paginated query and returns every item.
func (t *Table) query(ctx context.Context, in *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	in.TableName = aws.String(t.name)
	var items []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(t.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying DynamoDB: %w", err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (t *Table) queryUser(ctx context.Context, userID, kind string, newestFirst bool) ([]map[string]types.AttributeValue, error) {
	return t.query(ctx, &dynamodb.QueryInput{
		IndexName:              aws.String(gsi1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userKey(userID, kind)},
		},
		ScanIndexForward: aws.Bool(!newestFirst),
	})
}

// batchPut writes items 25 at a time, retrying whatever DynamoDB reports as
// unprocessed. The call is all-or-nothing: when a chunk cannot be fully
// written, every item of this call is deleted again before the error is
// returned. Items must be new; an overwritten item is not restored.
func (t *Table) batchPut(ctx context.Context, items []interface{}) error {
	keys := make([]map[string]types.AttributeValue, 0, len(items))
	for start := 0; start < len(items); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(items) {
			end = len(items)
		}
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, it := range items[start:end] {
			av, err := attributevalue.MarshalMap(it)
			if err != nil {
				return t.rollback(ctx, keys, fmt.Errorf("marshaling item: %w", err))
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
			keys = append(keys, map[string]types.AttributeValue{"PK": av["PK"], "SK": av["SK"]})
		}
		if err := t.writeChunk(ctx, reqs); err != nil {
			return t.rollback(ctx, keys, err)
		}
	}
	return nil
}

// rollback deletes keys after a failed batchPut and returns cause, joined
// with the delete error if the cleanup failed too.
func (t *Table) rollback(ctx context.Context, keys []map[string]types.AttributeValue, cause error) error {
	ctx = context.WithoutCancel(ctx)
	for start := 0; start < len(keys); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(keys) {
			end = len(keys)
		}
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: k}})
		}
		if err := t.writeChunk(ctx, reqs); err != nil {
			return errors.Join(cause, fmt.Errorf("rolling back batch: %w", err))
		}
	}
	return cause
}

func (t *Table) writeChunk(ctx context.Context, reqs []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{t.name: reqs}
	for attempt := 0; ; attempt++ {
		out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("batch writing to DynamoDB: %w", err)
		}
		if len(out.UnprocessedItems[t.name]) == 0 {
			return nil
		}
		if attempt >= t.batchRetries {
			return fmt.Errorf("batch write left %d items unprocessed", len(out.UnprocessedItems[t.name]))
		}
		pending = out.UnprocessedItems
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.backoff << attempt):
		}
	}
}
