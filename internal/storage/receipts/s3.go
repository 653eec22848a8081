// Package receipts archives uploaded receipt files in S3-compatible storage.
package receipts

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	maxReceiptBytes = 20 << 20 // Telegram bot download limit
	thumbSize       = 300
)

// Receipt is one uploaded file as seen by the bot.
type Receipt struct {
	UserID      string
	FileID      string
	FileName    string
	ContentType string
	URL         string // direct download URL
}

// Stored describes the archived objects.
type Stored struct {
	OriginalURL  string
	ThumbnailURL string
}

// Archiver stores a copy of a receipt.
type Archiver interface {
	Archive(ctx context.Context, r Receipt) (Stored, error)
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type S3Archive struct {
	client   putter
	http     *http.Client
	bucket   string
	endpoint string
}

func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     cfg.AccessKeyID,
					SecretAccessKey: cfg.SecretAccessKey,
				}, nil
			},
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}
	return newS3Archive(client, &http.Client{Timeout: time.Minute}, cfg.Bucket, endpoint), nil
}

func newS3Archive(client putter, hc *http.Client, bucket, endpoint string) *S3Archive {
	return &S3Archive{client: client, http: hc, bucket: bucket, endpoint: endpoint}
}

// Archive downloads the receipt and uploads the original. Images also get a
// JPEG thumbnail; a thumbnail failure is not an error.
func (a *S3Archive) Archive(ctx context.Context, r Receipt) (Stored, error) {
	data, contentType, err := a.download(ctx, r.URL)
	if err != nil {
		return Stored{}, err
	}
	if r.ContentType != "" {
		contentType = r.ContentType
	}

	name := uuid.New().String() + extension(r.FileName, contentType)
	prefix := path.Join("receipts", r.UserID)

	var out Stored
	out.OriginalURL, err = a.put(ctx, path.Join(prefix, "originals", name), data, contentType)
	if err != nil {
		return Stored{}, err
	}

	if thumb, terr := thumbnail(data); terr == nil {
		thumbKey := path.Join(prefix, "thumbnails", strings.TrimSuffix(name, path.Ext(name))+".jpg")
		if u, perr := a.put(ctx, thumbKey, thumb, "image/jpeg"); perr == nil {
			out.ThumbnailURL = u
		}
	}
	return out, nil
}

func (a *S3Archive) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("receipt request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download receipt: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download receipt: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read receipt: %w", err)
	}
	if len(data) > maxReceiptBytes {
		return nil, "", fmt.Errorf("receipt larger than %d bytes", maxReceiptBytes)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return data, ct, nil
}

func (a *S3Archive) put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s/%s", a.endpoint, a.bucket, key), nil
}

func thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Thumbnail(img, thumbSize, thumbSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func extension(fileName, contentType string) string {
	if ext := strings.ToLower(path.Ext(fileName)); ext != "" {
		return ext
	}
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "application/pdf"):
		return ".pdf"
	}
	return ""
}
