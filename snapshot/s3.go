package snapshot

import (
	"cmp"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hupe1980/rangecache/pageset"
)

// Upload streams a snapshot of the set to an S3 object. The snapshot is
// produced into a pipe and uploaded with the S3 transfer manager, so large
// sets never materialize in memory.
func Upload[K cmp.Ordered, V any](ctx context.Context, client manager.UploadAPIClient, bucket, key string, set *pageset.PagedSet[K, V], opts ...Option) error {
	pr, pw := io.Pipe()
	uploader := manager.NewUploader(client)

	done := make(chan error, 1)
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		// Close the reader end so a writer blocked on the pipe observes
		// the upload failure.
		_ = pr.CloseWithError(err)
		done <- err
	}()

	werr := Write(pw, set, opts...)
	_ = pw.CloseWithError(werr)

	uerr := <-done
	if werr != nil {
		return werr
	}
	return uerr
}

// Download restores a set from an S3 object previously produced by Upload.
func Download[K cmp.Ordered, V any](ctx context.Context, client manager.DownloadAPIClient, bucket, key string) (*pageset.PagedSet[K, V], error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return Read[K, V](out.Body)
}
