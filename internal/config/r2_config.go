package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// JWTSecretObjectKey is where the disaster-recovery copy of the JWT secret lives.
const JWTSecretObjectKey = "config/jwt_secret.txt"

// R2Config holds Cloudflare R2 settings. R2 speaks the S3 API.
type R2Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Configured reports whether enough is set to talk to R2.
func (r R2Config) Configured() bool {
	return r.Endpoint != "" && r.AccessKey != "" && r.SecretKey != "" && r.Bucket != ""
}

// NewR2Client builds an S3 client pointed at the R2 endpoint.
func NewR2Client(ctx context.Context, r R2Config) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			r.AccessKey,
			r.SecretKey,
			"",
		)),
		awsconfig.WithRegion(r.Region),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(r.Endpoint)
		o.UsePathStyle = true
	}), nil
}
