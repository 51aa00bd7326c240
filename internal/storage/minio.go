package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig addresses an S3-compatible endpoint.
//
// NewMinioStore grants anonymous s3:GetObject on PublicPrefix so the URLs
// from PublicURL can be fetched without credentials (the chat API cannot
// sign requests). Objects outside the prefix stay private.
type MinioConfig struct {
	Endpoint  string // host[:port], no scheme
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL overrides the derived <scheme>://<endpoint>/<bucket>
	// prefix, e.g. for a CDN in front of the bucket.
	PublicBaseURL string
	// PublicPrefix is the key prefix made publicly readable, e.g.
	// "voicemails/". Empty makes the whole bucket readable.
	PublicPrefix string
}

type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStore connects and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	policy, err := PublicReadPolicy(cfg.Bucket, cfg.PublicPrefix)
	if err != nil {
		return nil, err
	}
	if err := client.SetBucketPolicy(ctx, cfg.Bucket, policy); err != nil {
		return nil, fmt.Errorf("set public read policy on %q: %w", cfg.Bucket, err)
	}

	return &MinioStore{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: PublicBase(cfg),
	}, nil
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

// PublicReadPolicy is a bucket policy allowing anonymous GET on prefix.
func PublicReadPolicy(bucket, prefix string) (string, error) {
	prefix = strings.TrimLeft(strings.TrimSpace(prefix), "/")
	if strings.TrimSpace(bucket) == "" || strings.Contains(prefix, "*") {
		return "", fmt.Errorf("storage: invalid public read scope %q/%q", bucket, prefix)
	}
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/" + prefix + "*"},
		}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PublicBase returns the URL prefix objects are served from.
func PublicBase(cfg MinioConfig) string {
	if b := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"); b != "" {
		return b
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(cfg.Endpoint, "/") + "/" + url.PathEscape(cfg.Bucket)
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000",
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (s *MinioStore) PublicURL(key string) string {
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}
