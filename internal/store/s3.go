package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// defaultRegion is used whenever the caller does not supply one; most
// S3-compatible endpoints require a region to be present even though
// they ignore its value.
const defaultRegion = "us-east-1"

// S3CredentialOptions selects how an S3 client authenticates, mirroring
// the enumerated configuration in spec.md §3.
type S3CredentialOptions struct {
	// Anonymous requests unsigned/anonymous access.
	Anonymous bool
	// AccessKeyID and SecretAccessKey request static credentials. Both
	// must be set together.
	AccessKeyID     string
	SecretAccessKey string
	// Profile requests a named profile from the shared AWS config/credentials files.
	Profile string
	// Region overrides the default region (us-east-1).
	Region string
}

// ambientCredentialEnvVars are rejected at client construction time: a
// shared host exporting these would otherwise leak credentials across
// tenants that only intended to supply per-request options.
var ambientCredentialEnvVars = []string{
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
}

// ErrAmbientCredentials is returned when process-wide AWS credential
// environment variables are present. The engine refuses to pick these up
// implicitly; see spec.md §9 "Rejecting ambient credentials".
var ErrAmbientCredentials = errors.New("store: ambient AWS credential environment variables are not supported; use anonymous, static, profile, or instance-profile credentials")

// NewS3Client builds an s3.Client for host (an S3-compatible endpoint)
// using the given credential options.
func NewS3Client(ctx context.Context, host string, opts S3CredentialOptions) (*s3.Client, error) {
	for _, name := range ambientCredentialEnvVars {
		if os.Getenv(name) != "" {
			return nil, ErrAmbientCredentials
		}
	}

	region := opts.Region
	if region == "" {
		region = defaultRegion
	}

	var credsProvider aws.CredentialsProvider
	switch {
	case opts.Anonymous:
		credsProvider = aws.AnonymousCredentials{}
	case opts.AccessKeyID != "" && opts.SecretAccessKey != "":
		credsProvider = credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.SecretAccessKey, "")
	case opts.Profile != "":
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithSharedConfigProfile(opts.Profile),
			awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("store: loading profile %q: %w", opts.Profile, err)
		}
		credsProvider = cfg.Credentials
	default:
		// Profile chain -> instance-profile chain, the SDK v2 default
		// resolution order when no explicit provider is configured.
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("store: loading default credential chain: %w", err)
		}
		credsProvider = cfg.Credentials
	}

	client := s3.New(s3.Options{
		Region:       region,
		Credentials:  credsProvider,
		BaseEndpoint: aws.String("https://" + host),
		UsePathStyle: true,
		HTTPClient:   http.DefaultClient,
	})
	return client, nil
}

// S3 is a Store backed by an S3-compatible object storage bucket.
type S3 struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

var _ Store = (*S3)(nil)

// NewS3 returns a Store rooted at bucket/keyPrefix on client.
func NewS3(client *s3.Client, bucket, keyPrefix string) *S3 {
	return &S3{client: client, bucket: bucket, keyPrefix: strings.Trim(keyPrefix, "/")}
}

func (s *S3) fullKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.keyPrefix == "" {
		return key
	}
	if key == "" {
		return s.keyPrefix
	}
	return s.keyPrefix + "/" + key
}

func (s *S3) Get(key string) ([]byte, error) {
	fullKey := s.fullKey(key)
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: s3 GetObject s3://%s/%s: %w", s.bucket, fullKey, err)
	}
	data, err := readAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("store: s3 GetObject s3://%s/%s: reading body: %w", s.bucket, fullKey, err)
	}
	return data, nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func (s *S3) Resolve(key string) Store {
	return &S3{client: s.client, bucket: s.bucket, keyPrefix: s.fullKey(key)}
}

func (s *S3) Identity() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.keyPrefix)
}
