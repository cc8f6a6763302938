package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// S3Config locates the backup object. Endpoint and the static keys are
// only needed for S3-compatible stores; otherwise the default AWS
// credential chain is used.
type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// objectAPI is the part of the S3 client the backup uses
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Backup stores snappy-compressed JSON snapshots in one S3 object
type S3Backup struct {
	client objectAPI
	bucket string
	key    string
	inst   instrument
}

var (
	_ network.Loader      = (*S3Backup)(nil)
	_ network.Snapshotter = (*S3Backup)(nil)
)

// NewS3Backup builds an S3 client from cfg
func NewS3Backup(ctx context.Context, cfg S3Config, opts Options) (*S3Backup, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 backup: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Backup(client, cfg, opts), nil
}

func newS3Backup(client objectAPI, cfg S3Config, opts Options) *S3Backup {
	key := cfg.Key
	if key == "" {
		key = "airnet/snapshot.json.snappy"
	}
	return &S3Backup{
		client: client,
		bucket: cfg.Bucket,
		key:    key,
		inst:   newInstrument("s3", opts),
	}
}

// Snapshot uploads ds, replacing the previous backup
func (b *S3Backup) Snapshot(ctx context.Context, ds *network.Dataset) (err error) {
	start := time.Now()
	defer func() { b.inst.observe("snapshot", start, err) }()

	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	body := snappy.Encode(nil, data)

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"encoding": "snappy",
			"airports": fmt.Sprint(len(ds.Airports)),
			"routes":   fmt.Sprint(len(ds.Routes)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	b.inst.logger.Info("snapshot uploaded",
		logging.String("bucket", b.bucket),
		logging.String("key", b.key),
		logging.Int("bytes", len(body)))
	return nil
}

// LoadGraph downloads the backup. A missing object yields an empty network.
func (b *S3Backup) LoadGraph(ctx context.Context) (ds *network.Dataset, err error) {
	start := time.Now()
	defer func() { b.inst.observe("load", start, err) }()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			b.inst.logger.Warn("no backup found, starting empty",
				logging.String("bucket", b.bucket),
				logging.String("key", b.key))
			return &network.Dataset{}, nil
		}
		return nil, fmt.Errorf("failed to download snapshot: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	data, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	ds = &network.Dataset{}
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return ds, nil
}
