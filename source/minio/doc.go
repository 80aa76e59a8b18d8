// Package minio provides a window source over MinIO and S3-compatible
// object listings, mirroring the s3 source for deployments that use the
// MinIO client.
package minio
