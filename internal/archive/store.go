package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store writes transcripts and the monthly manifest to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	now      func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		bucket:   bucket,
		s3Client: s3Client,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// TranscriptKey is the object key for a transcript archived at t.
func TranscriptKey(t time.Time, conversationID string) string {
	return fmt.Sprintf("conversations/v1/by-date/%d/%02d/%02d/%s.json",
		t.Year(), t.Month(), t.Day(), conversationID)
}

// ManifestKey is the monthly manifest object key.
func ManifestKey(t time.Time) string {
	return fmt.Sprintf("conversations/v1/manifests/%d-%02d.jsonl", t.Year(), t.Month())
}

// ArchiveTranscript writes record as JSON and appends it to the manifest.
// A manifest failure is logged; the transcript is already stored.
func (s *Store) ArchiveTranscript(ctx context.Context, record *Transcript) (ManifestEntry, error) {
	if !s.Enabled() {
		return ManifestEntry{}, nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("archive: marshal record: %w", err)
	}

	archivedAt := record.ArchivedAt
	if archivedAt.IsZero() {
		archivedAt = s.now()
	}
	key := TranscriptKey(archivedAt, record.ConversationID)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	s.logger.Info("archived conversation to S3", "conversation_id", record.ConversationID, "s3_key", key, "message_count", record.MessageCount)

	entry := ManifestEntry{
		ConversationID: record.ConversationID,
		S3Key:          key,
		ArchivedAt:     archivedAt.Format(time.RFC3339),
		MessageCount:   record.MessageCount,
		Outcome:        record.Outcome,
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "conversation_id", record.ConversationID)
	}
	return entry, nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// S3 has no append, so this is a read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}
	manifestKey := ManifestKey(s.now())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		_ = getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}
