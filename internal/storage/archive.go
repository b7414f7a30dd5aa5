package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/paulgirard/ricardo-gph-analysis/internal/util"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const snapshotExt = ".json"

var ErrSnapshotNotFound = errors.New("snapshot not found")

type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Archive keeps one JSON snapshot per resolved year graph in a bucket,
// under <prefix>/<year>.json.
type Archive struct {
	bucket string
	prefix string
	client objectAPI
}

// NewArchiveParams configures the bucket of an Archive. Endpoint and
// path-style addressing make S3-compatible stores like MinIO usable.
type NewArchiveParams struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

func NewArchive(ctx context.Context, params NewArchiveParams) (*Archive, error) {
	if params.Bucket == "" {
		return nil, fmt.Errorf("snapshot archive needs a bucket")
	}
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return newArchiveWithClient(params.Bucket, params.Prefix, client), nil
}

func newArchiveWithClient(bucket, prefix string, client objectAPI) *Archive {
	return &Archive{bucket: bucket, prefix: strings.Trim(prefix, "/"), client: client}
}

// SnapshotKey returns the object key of the snapshot of year.
func (a *Archive) SnapshotKey(year int) string {
	return path.Join(a.prefix, strconv.Itoa(year)+snapshotExt)
}

// PutSnapshot uploads the snapshot of g, replacing an earlier one.
func (a *Archive) PutSnapshot(ctx context.Context, g *tradegraph.Graph) error {
	data, err := tradegraph.MarshalSnapshot(g)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %d: %w", g.Year, err)
	}
	key := a.SnapshotKey(g.Year)
	err = util.RetryErrWithContext(ctx, 3, 500*time.Millisecond, func(ctx context.Context) error {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}
	logger.Debug("[Archive] Snapshot uploaded", "key", key, "bytes", len(data))
	return nil
}

// PutSnapshots uploads the snapshot of every graph.
func (a *Archive) PutSnapshots(ctx context.Context, graphs map[int]*tradegraph.Graph) error {
	for _, year := range slices.Sorted(maps.Keys(graphs)) {
		if err := a.PutSnapshot(ctx, graphs[year]); err != nil {
			return err
		}
	}
	return nil
}

// GetSnapshot downloads and decodes the snapshot of year.
func (a *Archive) GetSnapshot(ctx context.Context, year int) (*tradegraph.Graph, error) {
	key := a.SnapshotKey(year)
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
		}
		return nil, fmt.Errorf("failed to get snapshot %s: %w", key, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return tradegraph.UnmarshalSnapshot(buf.Bytes())
}

// ListYears lists the years with an archived snapshot, ascending.
func (a *Archive) ListYears(ctx context.Context) ([]int, error) {
	prefix := a.prefix
	if prefix != "" {
		prefix += "/"
	}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	}

	var years []int
	for {
		out, err := a.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots under %q: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			if year, ok := a.yearOf(*obj.Key); ok {
				years = append(years, year)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	slices.Sort(years)
	return years, nil
}

func (a *Archive) yearOf(key string) (int, bool) {
	dir := a.prefix
	if dir == "" {
		dir = "."
	}
	if path.Dir(key) != dir {
		return 0, false
	}
	name, ok := strings.CutSuffix(path.Base(key), snapshotExt)
	if !ok {
		return 0, false
	}
	year, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return year, true
}
