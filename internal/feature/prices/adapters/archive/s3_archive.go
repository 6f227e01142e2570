// Package archive stores raw API payloads write-once in S3 and serves them
// back when the API cannot answer.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/usecase"
)

// S3API is the subset of the S3 client used by the archive.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// DecodeFunc turns a raw payload into the valid observations inside window.
type DecodeFunc func(symbol string, raw []byte, window entity.Window) ([]entity.Observation, int, error)

// S3Archive is the S3 backed usecase.Archive.
type S3Archive struct {
	api    S3API
	bucket string
	region string
	decode DecodeFunc
	log    *slog.Logger
}

var _ usecase.Archive = (*S3Archive)(nil)

// NewS3Archive creates an archive in bucket. decode parses raw payloads for
// the parquet copy and the read path.
func NewS3Archive(api S3API, bucket, region string, decode DecodeFunc) *S3Archive {
	return &S3Archive{
		api:    api,
		bucket: bucket,
		region: region,
		decode: decode,
		log:    slog.Default().With("component", "archive", "bucket", bucket),
	}
}

// EnsureBucket creates the bucket if it does not exist.
func (a *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := a.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("head bucket %s: %w", a.bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(a.bucket)}
	if a.region != "" && a.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.region),
		}
	}
	if _, err := a.api.CreateBucket(ctx, in); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	a.log.Info("archive bucket created")
	return nil
}

// Write stores raw for (symbol, batchID) unless it already exists. An
// existing record is left untouched and its reference returned.
func (a *S3Archive) Write(ctx context.Context, symbol, batchID string, raw []byte, window entity.Window) (entity.ArchiveRef, error) {
	key := JSONKey(symbol, batchID)
	ref := entity.ArchiveRef{Key: key, Symbol: symbol, BatchID: batchID, Window: window}

	existing, found, err := a.headWindow(ctx, key)
	if err != nil {
		return entity.ArchiveRef{}, err
	}
	if found {
		ref.Window = existing
		ref.Existing = true
		return ref, nil
	}

	_, err = a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
		Metadata:    windowMetadata(symbol, batchID, window),
	})
	if err != nil {
		return entity.ArchiveRef{}, fmt.Errorf("put %s: %w", key, err)
	}

	if err := a.writeParquet(ctx, symbol, batchID, raw, window); err != nil {
		// The JSON payload is the source of truth; the columnar copy is best effort.
		a.log.Warn("parquet copy failed", "symbol", symbol, "batch", batchID, "error", err)
	}
	return ref, nil
}

func (a *S3Archive) writeParquet(ctx context.Context, symbol, batchID string, raw []byte, window entity.Window) error {
	if a.decode == nil {
		return nil
	}
	key := ParquetKey(symbol, batchID)
	if _, found, err := a.headWindow(ctx, key); err != nil || found {
		return err
	}
	obs, _, err := a.decode(symbol, raw, window)
	if err != nil {
		return err
	}
	data, err := encodeParquet(obs)
	if err != nil {
		return err
	}
	meta := windowMetadata(symbol, batchID, window)
	meta["content-type"] = "parquet"
	meta["compression"] = "snappy"
	_, err = a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Read returns the archived observations of symbol inside window. covered
// is false unless the archived windows together span all of window.
func (a *S3Archive) Read(ctx context.Context, symbol string, window entity.Window) ([]entity.Observation, bool, error) {
	if a.decode == nil {
		return nil, false, errors.New("archive has no decoder")
	}
	batches, err := a.listBatches(ctx, symbol, window)
	if err != nil {
		return nil, false, err
	}

	windows := make([]entity.Window, 0, len(batches))
	for _, b := range batches {
		windows = append(windows, b.window)
	}
	if !usecase.Covers(windows, window) {
		return nil, false, nil
	}

	// Batches are in ascending batch order, so later payloads win on a date.
	byDate := make(map[string]entity.Observation)
	for _, b := range batches {
		raw, err := a.get(ctx, b.key)
		if err != nil {
			return nil, false, err
		}
		obs, dropped, err := a.decode(symbol, raw, window)
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", b.key, err)
		}
		if dropped > 0 {
			a.log.Warn("archived records dropped", "key", b.key, "dropped", dropped)
		}
		for _, o := range obs {
			byDate[o.Key()] = o
		}
	}

	out := make([]entity.Observation, 0, len(byDate))
	for _, o := range byDate {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, true, nil
}

type batch struct {
	key    string
	id     string
	window entity.Window
}

// listBatches returns the batches of symbol that may overlap window.
func (a *S3Archive) listBatches(ctx context.Context, symbol string, window entity.Window) ([]batch, error) {
	p := s3.NewListObjectsV2Paginator(a.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(jsonPrefix(symbol)),
	})

	var out []batch
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", jsonPrefix(symbol), err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			id := batchFromKey(key)
			if id == "" {
				continue
			}
			// A batch never answers dates after its own run date.
			if d, err := entity.ParseDay(id); err == nil && !d.After(window.After) {
				continue
			}
			w, found, err := a.headWindow(ctx, key)
			if err != nil {
				return nil, err
			}
			if !found || !overlaps(w, window) {
				continue
			}
			out = append(out, batch{key: key, id: id, window: w})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

// headWindow reads the answered window stored on key.
func (a *S3Archive) headWindow(ctx context.Context, key string) (entity.Window, bool, error) {
	head, err := a.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return entity.Window{}, false, nil
		}
		return entity.Window{}, false, fmt.Errorf("head %s: %w", key, err)
	}
	w, err := parseWindowMetadata(head.Metadata)
	if err != nil {
		return entity.Window{}, false, fmt.Errorf("head %s: %w", key, err)
	}
	return w, true, nil
}

func (a *S3Archive) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer func() {
		if err := obj.Body.Close(); err != nil {
			a.log.Warn("failed to close object body", "key", key, "error", err)
		}
	}()
	raw, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}

func windowMetadata(symbol, batchID string, w entity.Window) map[string]string {
	return map[string]string{
		metaSymbol:        symbol,
		metaBatch:         batchID,
		metaWindowAfter:   w.After.Format(entity.DateLayout),
		metaWindowThrough: w.Through.Format(entity.DateLayout),
	}
}

func parseWindowMetadata(meta map[string]string) (entity.Window, error) {
	after, err := entity.ParseDay(lookup(meta, metaWindowAfter))
	if err != nil {
		return entity.Window{}, fmt.Errorf("window metadata: %w", err)
	}
	through, err := entity.ParseDay(lookup(meta, metaWindowThrough))
	if err != nil {
		return entity.Window{}, fmt.Errorf("window metadata: %w", err)
	}
	return entity.Window{After: after, Through: through}, nil
}

// lookup reads user metadata regardless of the key casing returned by the
// S3 implementation.
func lookup(meta map[string]string, key string) string {
	if v, ok := meta[key]; ok {
		return v
	}
	for k, v := range meta {
		if http.CanonicalHeaderKey(k) == http.CanonicalHeaderKey(key) {
			return v
		}
	}
	return ""
}

func overlaps(a, b entity.Window) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	return a.Through.After(b.After) && b.Through.After(a.After)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	var httpErr *smithyhttp.ResponseError
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == http.StatusNotFound
}
