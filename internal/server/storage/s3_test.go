package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/gophdrop/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	putErr  error
	listErr error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if in.ContentLength != nil && *in.ContentLength != int64(len(b)) {
		return nil, errors.New("content length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: aws.Int64(int64(len(b))),
	}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for k := range f.objects {
		if bytes.HasPrefix([]byte(k), []byte(aws.ToString(in.Prefix))) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func TestS3_CommitUploadsObject(t *testing.T) {
	fake := newFakeS3()
	s := newS3Storage(fake, "bucket", "files/")
	ctx := context.Background()

	writeAll(t, s, "doc.txt", []byte("payload"))

	assert.Equal(t, []byte("payload"), fake.objects["files/doc.txt"])

	rc, size, err := s.Open(ctx, "doc.txt")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(7), size)
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "payload", string(got))
}

func TestS3_AbortWritesNothing(t *testing.T) {
	fake := newFakeS3()
	s := newS3Storage(fake, "bucket", "")

	w, err := s.Create(context.Background(), "partial.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("half"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	assert.Zero(t, fake.puts)
	_, _, err = s.Open(context.Background(), "partial.bin")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := newS3Storage(fake, "bucket", "")

	w, err := s.Create(context.Background(), "x")
	require.NoError(t, err)
	err = w.Commit()
	assert.ErrorContains(t, err, "access denied")
}

func TestS3_ListStripsPrefix(t *testing.T) {
	fake := newFakeS3()
	fake.objects["files/b"] = nil
	fake.objects["files/a"] = nil
	fake.objects["other/c"] = nil
	fake.objects["files/nested/d"] = nil
	s := newS3Storage(fake, "bucket", "files/")

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestS3_ListError(t *testing.T) {
	fake := newFakeS3()
	fake.listErr = errors.New("timeout")
	s := newS3Storage(fake, "bucket", "")

	_, err := s.List(context.Background())
	assert.ErrorContains(t, err, "timeout")
}

func TestS3_InvalidName(t *testing.T) {
	s := newS3Storage(newFakeS3(), "bucket", "")

	_, err := s.Create(context.Background(), "../x")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestNewS3Storage_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-north-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		return newFakeS3()
	}

	s, err := NewS3Storage(context.Background(), S3Config{
		Bucket:       "drop",
		Region:       "eu-north-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
	})
	require.NoError(t, err)
	assert.Equal(t, "drop", s.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Storage_Errors(t *testing.T) {
	_, err := NewS3Storage(context.Background(), S3Config{})
	assert.Error(t, err)

	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err = NewS3Storage(context.Background(), S3Config{Bucket: "b"})
	assert.ErrorContains(t, err, "no config")
}
