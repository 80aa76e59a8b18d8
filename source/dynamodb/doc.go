// Package dynamodb provides a window source over a DynamoDB partition.
//
// A partition's items ordered by sort key form an ordered, paginated
// dataset: Query delivers items in sort-key order with Limit and
// ScanIndexForward, so the source supports both forward and backward
// paging.
package dynamodb
