package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"testing"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBucket struct {
	objects  map[string][]byte
	putFails int
	pageSize int
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}, pageSize: 2}
}

func (b *memoryBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if b.putFails > 0 {
		b.putFails--
		return nil, errors.New("slow down")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (b *memoryBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := b.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *memoryBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for _, k := range slices.Sorted(maps.Keys(b.objects)) {
		if len(k) >= len(*in.Prefix) && k[:len(*in.Prefix)] == *in.Prefix {
			keys = append(keys, k)
		}
	}
	start := 0
	if in.ContinuationToken != nil {
		start = slices.Index(keys, *in.ContinuationToken)
	}
	end := min(start+b.pageSize, len(keys))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func sampleGraph(year int) *tradegraph.Graph {
	g := tradegraph.New(year)
	g.MergeNode("FR", func(n *tradegraph.Node) {
		n.Label = "France"
		n.Reporting = true
	})
	g.MergeNode("UK", func(n *tradegraph.Node) { n.Label = "United Kingdom" })
	e := g.AddRole("FR", "UK", tradegraph.ReportedTrade)
	exp := 120.0
	e.Exp = &exp
	e.ExpReportedBy = []string{"France"}
	return g
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "1850.json", newArchiveWithClient("b", "", nil).SnapshotKey(1850))
	assert.Equal(t, "runs/v2/1850.json", newArchiveWithClient("b", "/runs/v2/", nil).SnapshotKey(1850))
}

func TestPutGetSnapshot(t *testing.T) {
	bucket := newMemoryBucket()
	bucket.putFails = 1
	a := newArchiveWithClient("snapshots", "runs", bucket)
	ctx := context.Background()

	require.NoError(t, a.PutSnapshot(ctx, sampleGraph(1850)))
	assert.Contains(t, bucket.objects, "runs/1850.json")

	g, err := a.GetSnapshot(ctx, 1850)
	require.NoError(t, err)
	assert.Equal(t, 1850, g.Year)
	e, ok := g.Edge("FR", "UK")
	require.True(t, ok)
	require.NotNil(t, e.Exp)
	assert.InDelta(t, 120, *e.Exp, 1e-9)
	assert.True(t, e.Roles.Has(tradegraph.ReportedTrade))

	_, err = a.GetSnapshot(ctx, 1851)
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestListYears(t *testing.T) {
	bucket := newMemoryBucket()
	a := newArchiveWithClient("snapshots", "runs", bucket)
	ctx := context.Background()

	require.NoError(t, a.PutSnapshots(ctx, map[int]*tradegraph.Graph{
		1852: sampleGraph(1852),
		1850: sampleGraph(1850),
		1851: sampleGraph(1851),
	}))
	bucket.objects["runs/README.md"] = []byte("notes")
	bucket.objects["runs/old/1840.json"] = []byte("{}")
	bucket.objects["other/1849.json"] = []byte("{}")

	years, err := a.ListYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1850, 1851, 1852}, years)
}
