package scoring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ArtifactSource returns the raw model artifact and its name (used to pick the codec)
type ArtifactSource interface {
	Fetch(ctx context.Context) (data []byte, name string, err error)
}

// FileSource reads the artifact from the local filesystem
type FileSource struct {
	Path string
}

// Fetch reads the artifact file
func (s FileSource) Fetch(ctx context.Context) ([]byte, string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read model artifact %s: %w", s.Path, err)
	}
	return data, filepath.Base(s.Path), nil
}

// S3Config locates an artifact in S3 or an S3-compatible object store
type S3Config struct {
	Bucket    string
	Key       string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	CacheDir  string // last downloaded copy is kept here and used when the store is unreachable
}

// S3Source downloads the artifact with the S3 transfer manager
type S3Source struct {
	cfg        S3Config
	downloader *manager.Downloader
	log        zerolog.Logger
}

// NewS3Source builds an S3 client from cfg. Static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies.
func NewS3Source(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Source{
		cfg:        cfg,
		downloader: manager.NewDownloader(client),
		log:        log.With().Str("component", "model_artifact").Str("bucket", cfg.Bucket).Str("key", cfg.Key).Logger(),
	}, nil
}

// Fetch downloads the artifact, falling back to the cached copy if the download fails
func (s *S3Source) Fetch(ctx context.Context) ([]byte, string, error) {
	name := filepath.Base(s.cfg.Key)

	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	})
	if err == nil {
		s.writeCache(name, buf.Bytes())
		s.log.Info().Int("bytes", len(buf.Bytes())).Msg("Downloaded model artifact")
		return buf.Bytes(), name, nil
	}

	if s.cfg.CacheDir != "" {
		cached, cacheErr := os.ReadFile(filepath.Join(s.cfg.CacheDir, name))
		if cacheErr == nil {
			s.log.Warn().Err(err).Msg("Model download failed, using cached artifact")
			return cached, name, nil
		}
	}
	return nil, "", fmt.Errorf("failed to download model artifact s3://%s/%s: %w", s.cfg.Bucket, s.cfg.Key, err)
}

func (s *S3Source) writeCache(name string, data []byte) {
	if s.cfg.CacheDir == "" {
		return
	}
	if err := os.MkdirAll(s.cfg.CacheDir, 0755); err != nil {
		s.log.Warn().Err(err).Msg("Failed to create model cache directory")
		return
	}
	if err := os.WriteFile(filepath.Join(s.cfg.CacheDir, name), data, 0644); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache model artifact")
	}
}
