package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"appointmenthub_backend/pkg/config"
	"appointmenthub_backend/pkg/utils/image"
	"appointmenthub_backend/pkg/utils/validation"
)

var (
	s3Client  *s3.Client
	bucket    string
	region    string
	publicURL string
)

func InitStorage(cfg config.StorageConfig) error {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %v", err)
	}

	s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	bucket = cfg.S3Bucket
	region = cfg.S3Region
	publicURL = strings.TrimRight(cfg.PublicURL, "/")
	return nil
}

// UploadStorePhoto validates, optimizes and uploads a store photo, returning
// its public URL. Keys are store_id/timestamp_filename.
func UploadStorePhoto(file *multipart.FileHeader, storeID string) (string, error) {
	if err := validation.ValidateImage(file); err != nil {
		return "", err
	}

	buf, contentType, err := image.ProcessImage(file)
	if err != nil {
		return "", err
	}

	base := filepath.Base(file.Filename)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext) + ".webp"
	}

	key := fmt.Sprintf("stores/%s/%d_%s", storeID, time.Now().Unix(), base)

	_, err = s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload to S3: %v", err)
	}

	if publicURL != "" {
		return fmt.Sprintf("%s/%s", publicURL, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key), nil
}

// DeletePhoto removes an uploaded photo by its public URL.
func DeletePhoto(photoURL string) error {
	parts := strings.Split(photoURL, "/")
	if len(parts) < 4 {
		return fmt.Errorf("invalid photo URL: %s", photoURL)
	}
	key := strings.Join(parts[3:], "/")

	_, err := s3Client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	return err
}
