// Package s3 provides a window source over S3 object listings.
//
// Object keys under a bucket/prefix form an ordered, paginated dataset:
// ListObjectsV2 delivers keys in lexicographic order with StartAfter/MaxKeys
// pagination, which maps directly onto the paged range cache's window model.
package s3
