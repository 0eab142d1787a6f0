package media

import (
	"context"
	"fmt"
	"go-user-api/config"
	"go-user-api/logger"
	"go-user-api/model"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Uploader stores media in an S3-compatible bucket (AWS, MinIO).
type S3Uploader struct {
	client  s3API
	bucket  string
	baseURL string
}

func NewS3Uploader(ctx context.Context, cfg *config.Config) (*S3Uploader, error) {
	c := cfg.Media.S3
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Uploader(client, c.Bucket, publicBaseURL(c.PublicBaseURL, c.BaseEndpoint, c.Bucket, c.Region)), nil
}

func newS3Uploader(client s3API, bucket, baseURL string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (u *S3Uploader) Name() string { return "s3" }

func (u *S3Uploader) Upload(ctx context.Context, file model.UploadedFile) (*Result, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := storageKey(file.Filename)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(file.MimeType),
		ContentLength: aws.Int64(file.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put object: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"field":  file.Field,
		"bucket": u.bucket,
		"key":    key,
	}).Info("File uploaded to s3")
	return &Result{URL: u.baseURL + "/" + key, PublicID: key}, nil
}

func (u *S3Uploader) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, u.baseURL+"/")
	if !ok || key == "" {
		return fmt.Errorf("%w: %s", ErrNotOwned, url)
	}

	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}

	logger.Log.WithField("key", key).Info("Old image deleted from s3")
	return nil
}

func storageKey(filename string) string {
	return "users/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// publicBaseURL is the prefix under which stored objects are served.
func publicBaseURL(configured, endpoint, bucket, region string) string {
	if configured != "" {
		return configured
	}
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}
