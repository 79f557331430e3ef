package blobs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	putErr  error
	lastPut *s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.objects[*in.Key] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	v, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(v))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_PutOpenDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}}
	s := &S3Store{bucket: "comics", client: fake}
	ctx := context.Background()

	ref, err := s.Put(ctx, "Akira vol 1.pdf", strings.NewReader("pages"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "assets/"))
	assert.True(t, strings.HasSuffix(ref, "/Akira_vol_1.pdf"))
	assert.Equal(t, "*", aws.ToString(fake.lastPut.IfNoneMatch))
	assert.Equal(t, "comics", aws.ToString(fake.lastPut.Bucket))

	other, err := s.Put(ctx, "Akira vol 1.pdf", strings.NewReader("again"))
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)

	assert.Equal(t, "pages", readAll(t, s, ref))

	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Open(ctx, ref)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestS3Store_PreconditionFailed(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{}, putErr: &smithy.GenericAPIError{Code: "PreconditionFailed"}}
	s := &S3Store{bucket: "b", client: fake}

	_, err := s.Put(context.Background(), "x.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, common.ErrAssetExists)

	fake.putErr = errors.New("network")
	_, err = s.Put(context.Background(), "x.pdf", strings.NewReader("x"))
	assert.ErrorContains(t, err, "put object: network")
}

func TestS3Store_PresignGet(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "assets/2024/01/01/u/book.pdf", aws.ToString(in.Key))
		assert.Equal(t, `attachment; filename="book.pdf"`, aws.ToString(in.ResponseContentDisposition))
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, 5*time.Minute, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "https://s3/signed"}, nil
	}

	s := &S3Store{bucket: "b"}
	u, err := s.PresignGet(context.Background(), "assets/2024/01/01/u/book.pdf", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/signed", u)
}

func TestNewS3Store(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}

	s, err := NewS3Store(context.Background(), S3Config{Bucket: "b", Region: "us-east-1", BaseEndpoint: "http://127.0.0.1:9000", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.NotNil(t, s.presign)

	_, err = NewS3Store(context.Background(), S3Config{})
	assert.Error(t, err)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3Store(context.Background(), S3Config{Bucket: "b"})
	assert.ErrorContains(t, err, "load aws config")
}
