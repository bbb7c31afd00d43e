package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/google/uuid"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// S3Drop stores each rendered email as an object instead of sending it, for
// environments where a mail catcher reads the bucket.
type S3Drop struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

func NewS3Drop(ctx context.Context, cfg *config.Config) (*S3Drop, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Drop{client: client, bucket: cfg.S3Bucket, now: time.Now}, nil
}

// objectKey groups messages by day, e.g. "emails/2026/3/2/<uuid>.html".
func (d *S3Drop) objectKey() string {
	t := d.now()
	return fmt.Sprintf("emails/%d/%d/%d/%v.html", t.Year(), t.Month(), t.Day(), uuid.New())
}

func (d *S3Drop) Send(ctx context.Context, to, subject, htmlBody string) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.objectKey()),
		Body:        bytes.NewReader([]byte(htmlBody)),
		ContentType: aws.String("text/html; charset=utf-8"),
		Metadata: map[string]string{
			"to":      to,
			"subject": subject,
		},
	})
	if err != nil {
		return fmt.Errorf("store email: %w", err)
	}
	return nil
}
