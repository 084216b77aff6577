package s3

import (
	"context"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

//go:generate mockgen -destination=mock/api.go -package=mock_s3 -source=api.go

// API is the slice of the S3 surface the transaction implementation
// depends on.
type API interface {
	CreateMultipartUpload(ctx context.Context, input *awss3.CreateMultipartUploadInput, opt ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, input *awss3.CompleteMultipartUploadInput, opt ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, input *awss3.AbortMultipartUploadInput, opt ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error)
	ListMultipartUploads(ctx context.Context, input *awss3.ListMultipartUploadsInput, opt ...func(*awss3.Options)) (*awss3.ListMultipartUploadsOutput, error)
}

// PresignAPI issues presigned part-upload requests.
type PresignAPI interface {
	PresignUploadPart(ctx context.Context, input *awss3.UploadPartInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}
