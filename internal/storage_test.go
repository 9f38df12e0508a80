package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) key(in *string, key *string) string {
	return aws.ToString(in) + "/" + aws.ToString(key)
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[f.key(in.Bucket, in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[f.key(in.Bucket, in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestPhraseBatchRoundTrip(t *testing.T) {
	f := &fakeS3{}
	phrases := []string{
		"Hyperfine spiked 30% in the past day due to a new software release",
		"GE stock price droped 20% last quarter due to waining demand for appliances",
		"Linkedin subscriptions up 30%",
	}

	key, err := savePhraseBatch(context.Background(), f, "finsent-data", phrases)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "batches/"), "unexpected key %q", key)

	loaded, err := loadPhraseBatch(context.Background(), f, "finsent-data", key)
	require.NoError(t, err)
	assert.Equal(t, phrases, loaded)
}

func TestSavePhraseBatchRequiresBucket(t *testing.T) {
	f := &fakeS3{}

	_, err := savePhraseBatch(context.Background(), f, "", []string{"x"})
	require.Error(t, err)
	assert.Empty(t, f.objects)
}

func TestLoadPhraseBatchMissingObject(t *testing.T) {
	f := &fakeS3{}

	_, err := loadPhraseBatch(context.Background(), f, "finsent-data", "batches/missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batches/missing.json")
}

func TestSaveScoredResultsWritesJSON(t *testing.T) {
	f := &fakeS3{}
	results := []ScoredPhrase{
		{Phrase: "Linkedin subscriptions up 30%", Label: "positive", Score: 0.77},
	}

	key, size, err := saveScoredResults(context.Background(), f, "finsent-data", results)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "results/"), "unexpected key %q", key)

	stored := f.objects["finsent-data/"+key]
	require.NotNil(t, stored)
	assert.Equal(t, len(stored), size)

	var roundTrip []ScoredPhrase
	require.NoError(t, json.Unmarshal(stored, &roundTrip))
	assert.Equal(t, results, roundTrip)
}
