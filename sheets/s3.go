package sheets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3ObjectGetter interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Workbook reads each worksheet from a CSV object in one bucket; keys[i] is
// worksheet i.
type S3Workbook struct {
	bucket string
	keys   []string
	s3     s3ObjectGetter
}

func NewS3Workbook(s3Client s3ObjectGetter, bucket string, keys ...string) *S3Workbook {
	return &S3Workbook{
		bucket: bucket,
		keys:   keys,
		s3:     s3Client,
	}
}

func (w *S3Workbook) Worksheet(ctx context.Context, index int) ([][]string, error) {
	if index < 0 || index >= len(w.keys) {
		return nil, &DataSourceError{Sheet: index, Err: fmt.Errorf("%w: %d of %d", ErrSheetNotFound, index, len(w.keys))}
	}

	resp, err := w.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.keys[index]),
	})
	if err != nil {
		return nil, &DataSourceError{Sheet: index, Err: fmt.Errorf("failed to get s3://%s/%s: %w", w.bucket, w.keys[index], err)}
	}
	defer resp.Body.Close()

	grid, err := readGrid(resp.Body)
	if err != nil {
		return nil, &DataSourceError{Sheet: index, Err: fmt.Errorf("parse s3://%s/%s: %w", w.bucket, w.keys[index], err)}
	}
	return grid, nil
}
