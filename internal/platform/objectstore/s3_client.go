// Package objectstore は生データアーカイブ用のS3クライアントを提供します。
package objectstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config はアーカイブ用バケットの設定です。
// LocalStackやMinIOを使う場合はEndpointとPathStyleを設定します。
type Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	CreateBucket    bool   `yaml:"create_bucket"`
}

// NewS3Client はAWS設定を読み込み、S3クライアントを作成します。
//
// 設定:
//   - Region: 未設定の場合はus-east-1
//   - 認証情報: AccessKeyIDとSecretAccessKeyが両方ある場合のみ静的認証情報を使用
//     それ以外はデフォルトの認証チェーン（環境変数、共有設定ファイル、IAMロール）
//   - Endpoint: 設定されている場合はBaseEndpointを上書き
//   - PathStyle: バケットをパスで指定する（LocalStack/MinIO向け）
//
// 注意:
//   - Bucketが空の場合はエラーを返す
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}
