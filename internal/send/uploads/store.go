// Package uploads stores recipient spreadsheets in S3 between upload and
// commit.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	commonaws "github.com/cds-snc/notification-admin-sub002/internal/common/aws"
	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/recipients"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// MaxFileNameBytes caps the original_file_name metadata value.
const MaxFileNameBytes = 1600

// Object is a file offered for sending from the send bucket.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store reads and writes uploads. Every upload gets a fresh id, so objects
// are written once; metadata stamps replace the whole set and can be retried.
type Store struct {
	s3           commonaws.S3API
	uploadBucket string
	sendBucket   string
	logger       logger.Logger
	newID        func() string
}

func NewStore(client commonaws.S3API, uploadBucket, sendBucket string, log logger.Logger) *Store {
	return &Store{
		s3:           client,
		uploadBucket: uploadBucket,
		sendBucket:   sendBucket,
		logger:       logger.ForComponent(log, "upload-store"),
		newID:        uuid.NewString,
	}
}

// ObjectKey is the upload bucket key for an upload.
func ObjectKey(serviceID, uploadID string) string {
	return fmt.Sprintf("service-%s-notify/%s.csv", serviceID, uploadID)
}

// Put stores CSV bytes under a new upload id.
func (s *Store) Put(ctx context.Context, serviceID string, data []byte) (string, error) {
	uploadID := s.newID()
	key := ObjectKey(serviceID, uploadID)
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               awssdk.String(s.uploadBucket),
		Key:                  awssdk.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          awssdk.String("text/csv"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", apperrors.NewStorageFailedError("put upload", fmt.Errorf("%s: %w", key, err))
	}
	s.logger.Info("Upload stored", map[string]interface{}{
		"serviceId": serviceID,
		"uploadId":  uploadID,
		"bytes":     len(data),
	})
	return uploadID, nil
}

// Fetch returns the CSV bytes and metadata of an upload.
func (s *Store) Fetch(ctx context.Context, serviceID, uploadID string) (*models.Upload, error) {
	key := ObjectKey(serviceID, uploadID)
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.uploadBucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewResourceNotFoundError("upload store", key)
		}
		return nil, apperrors.NewStorageFailedError("get upload", fmt.Errorf("%s: %w", key, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperrors.NewStorageFailedError("read upload", fmt.Errorf("%s: %w", key, err))
	}
	return &models.Upload{
		ID:        uploadID,
		ServiceID: serviceID,
		Data:      data,
		Metadata:  decodeMetadata(out.Metadata),
	}, nil
}

// Metadata fetches only the metadata of an upload.
func (s *Store) Metadata(ctx context.Context, serviceID, uploadID string) (map[string]string, error) {
	key := ObjectKey(serviceID, uploadID)
	out, err := s.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: awssdk.String(s.uploadBucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewResourceNotFoundError("upload store", key)
		}
		return nil, apperrors.NewStorageFailedError("head upload", fmt.Errorf("%s: %w", key, err))
	}
	return decodeMetadata(out.Metadata), nil
}

// SetMetadata replaces the metadata of an upload by copying the object onto
// itself.
func (s *Store) SetMetadata(ctx context.Context, serviceID, uploadID string, meta map[string]string) error {
	key := ObjectKey(serviceID, uploadID)
	_, err := s.s3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:               awssdk.String(s.uploadBucket),
		Key:                  awssdk.String(key),
		CopySource:           awssdk.String(url.PathEscape(s.uploadBucket) + "/" + escapeKey(key)),
		Metadata:             encodeMetadata(meta),
		MetadataDirective:    types.MetadataDirectiveReplace,
		ContentType:          awssdk.String("text/csv"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		if isNotFound(err) {
			return apperrors.NewResourceNotFoundError("upload store", key)
		}
		return apperrors.NewStorageFailedError("set upload metadata", fmt.Errorf("%s: %w", key, err))
	}
	return nil
}

// ListSendBucket lists the spreadsheets a service may send from the send
// bucket. Keys live under "{service_id}/".
func (s *Store) ListSendBucket(ctx context.Context, serviceID string) ([]Object, error) {
	if s.sendBucket == "" {
		return nil, nil
	}
	prefix := serviceID + "/"
	p := s3.NewListObjectsV2Paginator(s.s3, &s3.ListObjectsV2Input{
		Bucket: awssdk.String(s.sendBucket),
		Prefix: awssdk.String(prefix),
	})

	var objects []Object
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apperrors.NewStorageFailedError("list send bucket", err)
		}
		for _, o := range page.Contents {
			key := awssdk.ToString(o.Key)
			if !recipients.CanHandle(key) {
				continue
			}
			objects = append(objects, Object{
				Key:          key,
				Size:         awssdk.ToInt64(o.Size),
				LastModified: awssdk.ToTime(o.LastModified),
			})
		}
	}
	return objects, nil
}

// FetchFromSendBucket reads a file picked from the send bucket. Keys outside
// the service prefix are refused.
func (s *Store) FetchFromSendBucket(ctx context.Context, serviceID, key string) ([]byte, error) {
	if !strings.HasPrefix(key, serviceID+"/") || strings.Contains(key, "..") {
		return nil, apperrors.NewForbiddenError(fmt.Sprintf("key %s is not in the service folder", key))
	}
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.sendBucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewResourceNotFoundError("send bucket", key)
		}
		return nil, apperrors.NewStorageFailedError("get send bucket object", fmt.Errorf("%s: %w", key, err))
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperrors.NewStorageFailedError("read send bucket object", err)
	}
	return data, nil
}

// EscapeFileName query-escapes name and drops trailing runes until the
// escaped form fits in max bytes.
func EscapeFileName(name string, max int) string {
	var b strings.Builder
	for len(name) > 0 {
		_, size := utf8.DecodeRuneInString(name)
		esc := url.QueryEscape(name[:size])
		if b.Len()+len(esc) > max {
			break
		}
		b.WriteString(esc)
		name = name[size:]
	}
	return b.String()
}

// S3 metadata is ASCII only, so the file name is stored escaped.
func encodeMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if k == models.MetaOriginalFileName {
			v = EscapeFileName(v, MaxFileNameBytes)
		}
		out[k] = v
	}
	return out
}

func decodeMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		k = strings.ToLower(k)
		if k == models.MetaOriginalFileName {
			if unescaped, err := url.QueryUnescape(v); err == nil {
				v = unescaped
			}
		}
		out[k] = v
	}
	return out
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
