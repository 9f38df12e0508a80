package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// getAWSConfig returns the default resolved AWS configuration used to create
// service clients in this package.
func getAWSConfig() aws.Config {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		panic("failed to load AWS config: " + err.Error())
	}
	return cfg
}

func getS3Client() *s3.Client {
	return s3.NewFromConfig(getAWSConfig())
}

// s3API is the subset of the S3 client used by this package.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// LoadFromS3 retrieves the full contents of an object at bucket/key.
func LoadFromS3(ctx context.Context, bucket, key string) ([]byte, error) {
	return loadFromS3(ctx, getS3Client(), bucket, key)
}

func loadFromS3(ctx context.Context, client s3API, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// SavePhraseBatch persists the phrase list for a batch scoring run to a
// time-based key under bucket. The scoring lambda loads it back by key.
func SavePhraseBatch(ctx context.Context, bucket string, phrases []string) (string, error) {
	return savePhraseBatch(ctx, getS3Client(), bucket, phrases)
}

func savePhraseBatch(ctx context.Context, client s3API, bucket string, phrases []string) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("S3_BUCKET not configured")
	}
	data, err := json.Marshal(phrases)
	if err != nil {
		return "", fmt.Errorf("marshal phrase batch: %w", err)
	}
	key := fmt.Sprintf("batches/%d.json", time.Now().UnixNano())
	if err := saveToS3WithKey(ctx, client, data, bucket, key); err != nil {
		return "", err
	}
	return key, nil
}

// LoadPhraseBatch reads a phrase list previously written by SavePhraseBatch.
func LoadPhraseBatch(ctx context.Context, bucket, key string) ([]string, error) {
	return loadPhraseBatch(ctx, getS3Client(), bucket, key)
}

func loadPhraseBatch(ctx context.Context, client s3API, bucket, key string) ([]string, error) {
	data, err := loadFromS3(ctx, client, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("load phrase batch %s: %w", key, err)
	}
	var phrases []string
	if err := json.Unmarshal(data, &phrases); err != nil {
		return nil, fmt.Errorf("parse phrase batch %s: %w", key, err)
	}
	return phrases, nil
}

// SaveScoredResults writes a batch of scored phrases as JSON to a time-based
// key under the given bucket (falls back to S3_BUCKET when empty). Returns
// the generated key and the object size in bytes.
func SaveScoredResults(ctx context.Context, bucket string, results []ScoredPhrase) (string, int, error) {
	return saveScoredResults(ctx, getS3Client(), bucket, results)
}

func saveScoredResults(ctx context.Context, client s3API, bucket string, results []ScoredPhrase) (string, int, error) {
	if bucket == "" {
		bucket = os.Getenv("S3_BUCKET")
	}
	if bucket == "" {
		return "", 0, fmt.Errorf("S3_BUCKET not configured")
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", 0, fmt.Errorf("marshal scored results: %w", err)
	}
	key := fmt.Sprintf("results/%d.json", time.Now().Unix())
	if err := saveToS3WithKey(ctx, client, data, bucket, key); err != nil {
		return "", 0, err
	}
	return key, len(data), nil
}

// SaveToS3WithKey stores data to the specified bucket/key.
func SaveToS3WithKey(ctx context.Context, data []byte, bucket, key string) error {
	return saveToS3WithKey(ctx, getS3Client(), data, bucket, key)
}

func saveToS3WithKey(ctx context.Context, client s3API, data []byte, bucket, key string) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// GeneratePresignedGetURL returns a presigned GET url that expires after expiry.
func GeneratePresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	client := getS3Client()
	presigner := s3.NewPresignClient(client)
	out, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}
	return out.URL, nil
}
