package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsCreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
	"go.uber.org/zap"
)

// ArchiveUploader is the slice of the S3 client the archive depends on.
type ArchiveUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// archiveSnapshot is the document written to S3 for each successful delete
// call.
type archiveSnapshot struct {
	DeletedAt time.Time        `json:"deletedAt"`
	Records   []archivedRecord `json:"records"`
}

type archivedRecord struct {
	RecordType recordops.RecordType `json:"recordType"`
	ID         uuid.UUID            `json:"id"`
	Fields     map[string]any       `json:"fields"`
}

// ArchivingStore decorates a RecordStore so that every successful Delete
// leaves a JSON snapshot of the removed records in S3. The upload is
// best-effort: the delete has already committed, so an archive failure is
// logged and swallowed rather than surfaced to the caller.
type ArchivingStore struct {
	inner    recordops.RecordStore
	uploader ArchiveUploader
	bucket   string
	prefix   string
	clock    recordops.Clock
}

// NewArchivingStore wraps a RecordStore with the S3 deletion archive.
func NewArchivingStore(inner recordops.RecordStore, uploader ArchiveUploader, bucket, prefix string, clock recordops.Clock) *ArchivingStore {
	if clock == nil {
		clock = recordops.SystemClock()
	}
	return &ArchivingStore{
		inner:    inner,
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.TrimSuffix(prefix, "/"),
		clock:    clock,
	}
}

func (s *ArchivingStore) Insert(ctx context.Context, records []recordops.SObject) error {
	return s.inner.Insert(ctx, records)
}

func (s *ArchivingStore) Update(ctx context.Context, records []recordops.SObject) error {
	return s.inner.Update(ctx, records)
}

func (s *ArchivingStore) Upsert(ctx context.Context, records []recordops.SObject) error {
	return s.inner.Upsert(ctx, records)
}

func (s *ArchivingStore) Delete(ctx context.Context, records []recordops.SObject) error {
	if err := s.inner.Delete(ctx, records); err != nil {
		return err
	}
	s.archive(ctx, records)
	return nil
}

func (s *ArchivingStore) Query(ctx context.Context, query *recordops.Query) ([]recordops.SObject, error) {
	return s.inner.Query(ctx, query)
}

func (s *ArchivingStore) archive(ctx context.Context, records []recordops.SObject) {
	if len(records) == 0 {
		return
	}

	snapshot := archiveSnapshot{
		DeletedAt: s.clock.Now().UTC(),
		Records:   make([]archivedRecord, 0, len(records)),
	}
	for _, obj := range records {
		snapshot.Records = append(snapshot.Records, archivedRecord{
			RecordType: obj.RecordType(),
			ID:         obj.RecordID(),
			Fields:     obj.Fields(),
		})
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		zap.S().Warnw("failed to marshal deletion snapshot", "error", err)
		return
	}

	key := s.objectKey(records[0].RecordType())
	_, err = s.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			zap.S().Warnw("deletion archive upload rejected",
				"bucket", s.bucket, "key", key, "code", apiErr.ErrorCode(), "error", err)
			return
		}
		zap.S().Warnw("deletion archive upload failed", "bucket", s.bucket, "key", key, "error", err)
		return
	}

	zap.S().Debugw("archived deleted records", "bucket", s.bucket, "key", key, "count", len(records))
}

func (s *ArchivingStore) objectKey(recordType recordops.RecordType) string {
	name := uuid.Must(uuid.NewV7()).String()
	if s.prefix == "" {
		return fmt.Sprintf("deleted/%s/%s.json", recordType, name)
	}
	return fmt.Sprintf("%s/deleted/%s/%s.json", s.prefix, recordType, name)
}

// NewArchiveClient builds an S3 client from the archive configuration.
// Static credentials and a custom endpoint override the default AWS chain so
// MinIO-style deployments work unchanged.
func NewArchiveClient(ctx context.Context, cfg recordops.ArchiveConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = awsCreds.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ValidateArchiveConfig performs basic sanity checks on the archive settings.
func ValidateArchiveConfig(cfg recordops.ArchiveConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Bucket == "" {
		return fmt.Errorf("archive: enabled=true requires a bucket")
	}
	if cfg.AccessKey != "" && cfg.SecretKey == "" {
		return fmt.Errorf("accessKey provided without secretKey")
	}
	if cfg.SecretKey != "" && cfg.AccessKey == "" {
		return fmt.Errorf("secretKey provided without accessKey")
	}
	return nil
}

// ArchiveHealthCheck attempts a best-effort HTTP ping against a custom
// archive endpoint. It only succeeds for endpoints that accept anonymous
// HEAD requests; for AWS S3 it validates DNS and TLS at most.
func ArchiveHealthCheck(ctx context.Context, cfg recordops.ArchiveConfig, timeout time.Duration) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("archive endpoint not configured")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Timeout: timeout,
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("archive health request build failed: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("archive health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("archive endpoint reachable but returned auth error: %d", resp.StatusCode)
	}
	return fmt.Errorf("archive endpoint returned unexpected status: %d", resp.StatusCode)
}
