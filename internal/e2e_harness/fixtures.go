package e2e_harness

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
)

// SeedRecordsTable creates the records table and inserts a handful of Account
// rows so query paths have committed state to resolve against.
func SeedRecordsTable(ctx context.Context, db *sql.DB, table string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  record_type TEXT NOT NULL,
  row_id UUID NOT NULL,
  payload JSONB NOT NULL,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (record_type, row_id)
);`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}

	now := time.Now().UnixMilli()
	seeds := []struct {
		name     string
		industry string
	}{
		{"Acme Corporation", "Manufacturing"},
		{"Globex", "Energy"},
		{"Initech", "Software"},
	}
	insert := fmt.Sprintf(`INSERT INTO %s (record_type, row_id, payload, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)`, table)
	for i, seed := range seeds {
		payload, err := json.Marshal(map[string]any{
			recordops.FieldName:     seed.name,
			recordops.FieldIndustry: seed.industry,
		})
		if err != nil {
			return fmt.Errorf("marshal seed payload: %w", err)
		}
		createdAt := now - int64(100*(i+1))
		if _, err := db.ExecContext(ctx, insert,
			string(recordops.RecordTypeAccount), uuid.Must(uuid.NewV7()), payload, createdAt, createdAt); err != nil {
			return fmt.Errorf("insert seed account: %w", err)
		}
	}
	return nil
}

// EnsureBucket creates the archive bucket on a custom S3 endpoint, tolerating
// the bucket already existing.
func EnsureBucket(ctx context.Context, endpoint, accessKey, secretKey, bucket string) error {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	}
	if endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	if _, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}
	if _, cerr := s3Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); cerr != nil {
		var apiErr smithy.APIError
		if errors.As(cerr, &apiErr) {
			code := apiErr.ErrorCode()
			if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
				return nil
			}
		}
		return fmt.Errorf("create bucket: %w", cerr)
	}
	return nil
}

// ListArchivedKeys returns the object keys under the given prefix, for
// asserting that deletion snapshots landed.
func ListArchivedKeys(ctx context.Context, endpoint, accessKey, secretKey, bucket, prefix string) ([]string, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	}
	if endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	out, err := s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}
