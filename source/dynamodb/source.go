package dynamodb

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/rangecache/pageset"
	"github.com/hupe1980/rangecache/source"
)

// Client is the subset of the DynamoDB API the source uses.
type Client interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Item is the cached value for one DynamoDB item: its raw attribute map.
type Item = map[string]types.AttributeValue

// Source pages one partition's items in sort-key order. The sort key must
// be a string attribute; it becomes the cache key.
//
// Source implements source.ReverseSource: DynamoDB can page from either end
// via ScanIndexForward.
type Source struct {
	client         Client
	table          string
	partitionName  string
	partitionValue types.AttributeValue
	sortName       string
}

// New creates a DynamoDB partition source for the given table, partition
// key name/value and sort key name.
func New(client Client, table, partitionName, partitionValue, sortName string) *Source {
	return &Source{
		client:         client,
		table:          table,
		partitionName:  partitionName,
		partitionValue: &types.AttributeValueMemberS{Value: partitionValue},
		sortName:       sortName,
	}
}

// Fetch implements source.Source. The anchor is inclusive; the merge
// collapses the re-delivered anchor item.
func (s *Source) Fetch(ctx context.Context, after *string, limit int) (source.Window[string, Item], error) {
	return s.fetch(ctx, after, limit, true)
}

// FetchBefore implements source.ReverseSource.
func (s *Source) FetchBefore(ctx context.Context, before *string, limit int) (source.Window[string, Item], error) {
	return s.fetch(ctx, before, limit, false)
}

func (s *Source) fetch(ctx context.Context, anchor *string, limit int, forward bool) (source.Window[string, Item], error) {
	keyCond := "#pk = :pk"
	names := map[string]string{"#pk": s.partitionName}
	values := map[string]types.AttributeValue{":pk": s.partitionValue}
	if anchor != nil {
		if forward {
			keyCond += " AND #sk >= :anchor"
		} else {
			keyCond += " AND #sk <= :anchor"
		}
		names["#sk"] = s.sortName
		values[":anchor"] = &types.AttributeValueMemberS{Value: *anchor}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(forward),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return source.Window[string, Item]{}, err
	}

	items := make([]pageset.Item[string, Item], 0, len(out.Items))
	for _, raw := range out.Items {
		sk, ok := raw[s.sortName].(*types.AttributeValueMemberS)
		if !ok {
			return source.Window[string, Item]{}, fmt.Errorf("sort key %q is not a string attribute", s.sortName)
		}
		items = append(items, pageset.Item[string, Item]{Key: sk.Value, Value: raw})
	}
	if !forward {
		slices.Reverse(items)
	}

	exhausted := out.LastEvaluatedKey == nil
	w := source.Window[string, Item]{Items: items}
	if forward {
		w.IsStart = anchor == nil
		w.IsFinish = exhausted
		if anchor != nil {
			w.Min, w.HasMin = *anchor, true
		}
	} else {
		w.IsFinish = anchor == nil
		w.IsStart = exhausted
		if anchor != nil {
			w.Max, w.HasMax = *anchor, true
		}
	}
	return w, nil
}
