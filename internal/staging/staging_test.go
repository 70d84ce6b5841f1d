package staging

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisk_Stage(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(filepath.Join(dir, "upload"))
	require.NoError(t, err)

	loc, err := d.Stage(context.Background(), "domains.xlsx", []byte("payload"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(loc, "-domains.xlsx"), loc)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestDisk_StageStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir)
	require.NoError(t, err)

	for _, name := range []string{"../../etc/passwd", `..\..\evil.xlsx`, ""} {
		loc, err := d.Stage(context.Background(), name, []byte("x"))
		require.NoError(t, err, name)
		assert.Equal(t, dir, filepath.Dir(loc), name)
	}
}

func TestDisk_StageCancelled(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Stage(ctx, "a.xlsx", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestS3_Stage(t *testing.T) {
	client := &fakeS3{}
	st := NewS3WithClient(client, "imports", "staging/xlsx")

	loc, err := st.Stage(context.Background(), "domains.xlsx", []byte("payload"))
	require.NoError(t, err)

	key := aws.ToString(client.in.Key)
	assert.Equal(t, "imports", aws.ToString(client.in.Bucket))
	assert.True(t, strings.HasPrefix(key, "staging/xlsx/"), key)
	assert.True(t, strings.HasSuffix(key, "-domains.xlsx"), key)
	assert.Equal(t, int64(7), aws.ToInt64(client.in.ContentLength))
	assert.Equal(t, "payload", string(client.body))
	assert.Equal(t, "s3://imports/"+key, loc)
}

func TestS3_StageError(t *testing.T) {
	st := NewS3WithClient(&fakeS3{err: errors.New("access denied")}, "imports", "")

	_, err := st.Stage(context.Background(), "domains.xlsx", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestNewS3_StaticCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "imports",
		Region:          "us-east-1",
		Endpoint:        "http://minio:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "s3cr3t",
		ForcePathStyle:  true,
	})
	require.NoError(t, err)

	client, ok := s.client.(*s3.Client)
	require.True(t, ok, "client is %T", s.client)
	opts := client.Options()
	assert.True(t, opts.UsePathStyle)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *opts.BaseEndpoint)

	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "s3cr3t", creds.SecretAccessKey)
}
