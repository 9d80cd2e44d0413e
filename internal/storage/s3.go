package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fenden/cachebolt/internal/cacheerr"
	"github.com/fenden/cachebolt/internal/config"
)

type s3Store struct {
	client *s3.Client
	bucket string
	appID  string
}

func newS3Store(ctx context.Context, cfg *config.Config) (*s3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
	if err != nil {
		return nil, &cacheerr.BackendInitError{Backend: "s3", Err: err}
	}
	return &s3Store{client: s3.NewFromConfig(awsCfg), bucket: cfg.S3Bucket, appID: cfg.AppID}, nil
}

func (s *s3Store) Name() string { return "s3" }

func (s *s3Store) dataKey(key string) string { return fmt.Sprintf("cache/%s/%s.gz", s.appID, key) }
func (s *s3Store) metaKey(key string) string {
	return fmt.Sprintf("cache/%s/%s.meta.gz", s.appID, key)
}

func gzipBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(compressed []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// Store uploads the body and headers as two separate gzip objects, matching
// the original data/.gz + meta/.meta.gz pair layout — no base64 is applied
// to the body here, unlike the GCS and local backends.
func (s *s3Store) Store(ctx context.Context, key string, body []byte, headers []Header) error {
	compressedBody, err := gzipBytes(body)
	if err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "compress", Err: err}
	}

	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "marshal", Err: err}
	}
	compressedMeta, err := gzipBytes(headersJSON)
	if err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "compress", Err: err}
	}

	contentType := "application/gzip"
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         strPtr(s.dataKey(key)),
		Body:        bytes.NewReader(compressedBody),
		ContentType: &contentType,
	}); err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "put_object", Err: err}
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         strPtr(s.metaKey(key)),
		Body:        bytes.NewReader(compressedMeta),
		ContentType: &contentType,
	}); err != nil {
		return &cacheerr.DurableIOError{Backend: s.Name(), Op: "put_object", Err: err}
	}
	return nil
}

func (s *s3Store) Load(ctx context.Context, key string) ([]byte, []Header, error) {
	dataResp, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: strPtr(s.dataKey(key))})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil, cacheerr.ErrCacheMiss
		}
		return nil, nil, &cacheerr.DurableIOError{Backend: s.Name(), Op: "get_object", Err: err}
	}
	compressedBody, err := io.ReadAll(dataResp.Body)
	dataResp.Body.Close()
	if err != nil {
		return nil, nil, &cacheerr.DurableIOError{Backend: s.Name(), Op: "read", Err: err}
	}
	body, err := gunzipBytes(compressedBody)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: gzip: %v", cacheerr.ErrDecode, err)
	}

	var headers []Header
	if metaResp, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: strPtr(s.metaKey(key))}); err == nil {
		compressedMeta, rerr := io.ReadAll(metaResp.Body)
		metaResp.Body.Close()
		if rerr == nil {
			if raw, derr := gunzipBytes(compressedMeta); derr == nil {
				_ = json.Unmarshal(raw, &headers)
			}
		}
	}

	return body, headers, nil
}

func (s *s3Store) DeleteAll(ctx context.Context) (int, error) {
	prefix := fmt.Sprintf("cache/%s/", s.appID)
	count := 0
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return count, &cacheerr.DurableIOError{Backend: s.Name(), Op: "list_objects", Err: err}
		}
		for _, obj := range out.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: obj.Key}); err == nil {
				count++
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return count, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}

func strPtr(s string) *string { return &s }
