package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/metrics/smithyotelmetrics"
	"go.opentelemetry.io/otel"
)

// Client carries the connection settings for an S3 or S3-compatible
// store such as MinIO.
type Client struct {
	Endpoint   string `json:"endpoint"`
	BucketName string `json:"bucketName"`
	Region     string `json:"region"`
	AccessKey  string `json:"accessKey"`
	SecretKey  string `json:"secretKey"`
}

// NewClient creates a new S3 client configuration.
func NewClient(
	endpoint, bucketName,
	region, accessKey, secretKey string,
) (c Client) {
	c = Client{
		Endpoint:   endpoint,
		BucketName: bucketName,
		Region:     region,
		AccessKey:  accessKey,
		SecretKey:  secretKey,
	}
	return
}

// API builds the AWS SDK client from the connection settings.
func (c Client) API() *awss3.Client {
	s3Options := awss3.Options{
		Region:       c.Region,
		BaseEndpoint: aws.String(c.Endpoint),
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     c.AccessKey,
				SecretAccessKey: c.SecretKey,
			}, nil
		}),
		MeterProvider: smithyotelmetrics.Adapt(otel.GetMeterProvider()),
		UsePathStyle:  true,
	}
	return awss3.New(s3Options)
}
