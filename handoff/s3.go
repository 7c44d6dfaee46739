package handoff

import (
	"context"
	"os"
	"path"

	"fileshare/upload"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Handoff struct {
	bucket   string
	s3Client *s3.S3
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible storage
	AccessKey string
	SecretKey string
}

func NewS3Handoff(cfg S3Config) *S3Handoff {
	awsConfig := aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	return &S3Handoff{
		bucket:   cfg.Bucket,
		s3Client: s3.New(session.Must(session.NewSession(&awsConfig))),
	}
}

// Transfer uploads the assembled file. The object key doubles as the durable
// file identifier. The local temp file is not removed here; the caller does
// that once the handoff is confirmed.
func (h *S3Handoff) Transfer(ctx context.Context, desc *upload.FileDescriptor) (string, error) {
	file, err := os.Open(desc.TempPath)
	if err != nil {
		return "", &upload.HandoffError{Err: err}
	}
	defer file.Close()

	key := path.Join(desc.ChannelID, desc.UploadID+"_"+desc.Filename)
	uploader := s3manager.NewUploaderWithClient(h.s3Client)
	input := s3manager.UploadInput{
		Bucket:      &h.bucket,
		Key:         aws.String(key),
		ContentType: &desc.MimeType,
		Body:        file,
	}
	if _, err = uploader.UploadWithContext(ctx, &input); err != nil {
		return "", &upload.HandoffError{Err: err}
	}
	return key, nil
}
