package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/paxsolutions/anm/internal/model"
)

// stubS3 はHeadObjectの結果を差し替え可能にしたS3クライアント。
// GetObjectRequestと署名処理は実クライアントに委譲する(署名はローカル処理で
// ネットワークに出ない)。
type stubS3 struct {
	*s3.S3
	headErr error
}

func (s *stubS3) HeadObjectWithContext(ctx aws.Context, input *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error) {
	if s.headErr != nil {
		return nil, s.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func newTestPresigner(t *testing.T, headErr error) *S3Presigner {
	t.Helper()
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String("us-east-1"),
		Credentials: credentials.NewStaticCredentials("test-access-key", "test-secret-key", ""),
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return &S3Presigner{
		client: &stubS3{S3: s3.New(sess), headErr: headErr},
		bucket: "test-bucket",
		ttl:    15 * time.Minute,
	}
}

func TestNewS3Presigner(t *testing.T) {
	p, err := NewS3Presigner("us-east-1", "", "test-bucket", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewS3Presigner failed: %v", err)
	}
	if p.bucket != "test-bucket" {
		t.Errorf("bucket = %q, expected test-bucket", p.bucket)
	}
}

func TestPresignDownload_Success(t *testing.T) {
	p := newTestPresigner(t, nil)

	url, err := p.PresignDownload(context.Background(), "reports/2024.pdf")
	if err != nil {
		t.Fatalf("PresignDownload failed: %v", err)
	}
	if !strings.Contains(url, "test-bucket") {
		t.Errorf("URL %q does not reference the bucket", url)
	}
	if !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("URL %q is not signed", url)
	}
	if !strings.Contains(url, "reports/2024.pdf") {
		t.Errorf("URL %q does not reference the object key", url)
	}
}

func TestPresignDownload_ObjectNotFound(t *testing.T) {
	headErr := awserr.NewRequestFailure(awserr.New("NotFound", "Not Found", nil), 404, "req-1")
	p := newTestPresigner(t, headErr)

	_, err := p.PresignDownload(context.Background(), "missing.pdf")
	if err == nil {
		t.Fatal("expected error for missing object")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeObjectNotFound {
		t.Errorf("Code = %q, expected %q", apiErr.Code, model.ErrCodeObjectNotFound)
	}
}

func TestPresignDownload_HeadFailure(t *testing.T) {
	headErr := awserr.NewRequestFailure(awserr.New("AccessDenied", "Access Denied", nil), 403, "req-2")
	p := newTestPresigner(t, headErr)

	_, err := p.PresignDownload(context.Background(), "secret.pdf")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("non-404 errors should not map to APIError, got %v", apiErr)
	}
}
