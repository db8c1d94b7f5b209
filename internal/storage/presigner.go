// Package storage はS3オブジェクトへの署名付きURL発行を提供する。
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/paxsolutions/anm/internal/model"
)

// Presigner はダウンロード用の署名付きURLを発行するインターフェース。
type Presigner interface {
	PresignDownload(ctx context.Context, key string) (string, error)
}

// S3Presigner はAWS S3に対するPresignerの実装。
// URLを発行する前にHeadObjectでオブジェクトの存在を確認する。
type S3Presigner struct {
	client s3iface.S3API
	bucket string
	ttl    time.Duration
}

// NewS3Presigner はS3Presignerの新しいインスタンスを生成する。
// endpointが空の場合はAWSの既定エンドポイントを使用する。
func NewS3Presigner(region, endpoint, bucket string, ttl time.Duration) (*S3Presigner, error) {
	awsConfig := &aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		// MinIO等のS3互換ストレージ向け
		awsConfig.Endpoint = aws.String(endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return &S3Presigner{
		client: s3.New(sess),
		bucket: bucket,
		ttl:    ttl,
	}, nil
}

// PresignDownload はkeyで指定されたオブジェクトのダウンロードURLを発行する。
// オブジェクトが存在しない場合はOBJECT_NOT_FOUNDエラーを返す。
func (p *S3Presigner) PresignDownload(ctx context.Context, key string) (string, error) {
	_, err := p.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", model.NewObjectNotFoundError(key)
		}
		return "", fmt.Errorf("failed to head object: %w", err)
	}

	req, _ := p.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(p.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

// isNotFound はS3のエラーがオブジェクト未検出かどうかを判定する。
// HeadObjectはボディを返さないため、NoSuchKeyではなくNotFound/404になる。
func isNotFound(err error) bool {
	var awsErr awserr.RequestFailure
	if errors.As(err, &awsErr) {
		return awsErr.StatusCode() == 404
	}
	return false
}
