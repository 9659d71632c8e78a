package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// RawFile is an unparsed document found by a Source.
type RawFile struct {
	Domain   string
	Filename string
	Data     []byte
	Origin   string
}

// Source enumerates files laid out as <domain>/<filename>.
type Source interface {
	Name() string
	Files(ctx context.Context) ([]RawFile, error)
}

// DirSource reads <root>/<domain>/<filename> from the local filesystem.
type DirSource struct {
	Root     string
	MaxBytes int64
}

func (d DirSource) Name() string {
	return "dir:" + d.Root
}

func (d DirSource) Files(ctx context.Context) ([]RawFile, error) {
	domains, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("read docs root: %w", err)
	}

	var out []RawFile
	for _, domainEntry := range domains {
		if !domainEntry.IsDir() || isHidden(domainEntry.Name()) {
			continue
		}
		domainPath := filepath.Join(d.Root, domainEntry.Name())
		files, err := os.ReadDir(domainPath)
		if err != nil {
			return nil, fmt.Errorf("read domain dir %s: %w", domainPath, err)
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if f.IsDir() || isHidden(f.Name()) {
				continue
			}
			path := filepath.Join(domainPath, f.Name())
			if d.MaxBytes > 0 {
				if info, err := f.Info(); err == nil && info.Size() > d.MaxBytes {
					log.Warn().Str("path", path).Int64("size", info.Size()).Msg("skipping oversized document")
					continue
				}
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read document %s: %w", path, err)
			}
			out = append(out, RawFile{
				Domain:   domainEntry.Name(),
				Filename: f.Name(),
				Data:     data,
				Origin:   path,
			})
		}
	}
	return out, nil
}

// S3API is the subset of the S3 client the source needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads s3://<bucket>/<prefix><domain>/<filename>.
type S3Source struct {
	Client   S3API
	Bucket   string
	Prefix   string
	MaxBytes int64
}

func (s S3Source) Name() string {
	return "s3://" + s.Bucket + "/" + s.Prefix
}

func (s S3Source) Files(ctx context.Context) ([]RawFile, error) {
	if s.Client == nil {
		return nil, errors.New("s3 client is required")
	}

	prefix := s.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	})

	var out []RawFile
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			domain, filename, ok := splitKey(strings.TrimPrefix(key, prefix))
			if !ok {
				continue
			}
			if s.MaxBytes > 0 && aws.ToInt64(obj.Size) > s.MaxBytes {
				log.Warn().Str("key", key).Int64("size", aws.ToInt64(obj.Size)).Msg("skipping oversized document")
				continue
			}
			data, err := s.get(ctx, key)
			if err != nil {
				return nil, err
			}
			out = append(out, RawFile{
				Domain:   domain,
				Filename: filename,
				Data:     data,
				Origin:   "s3://" + s.Bucket + "/" + key,
			})
		}
	}
	return out, nil
}

func (s S3Source) get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s: %w", key, err)
	}
	return data, nil
}

// splitKey accepts exactly <domain>/<filename>.
func splitKey(rel string) (string, string, bool) {
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	if isHidden(parts[0]) || isHidden(parts[1]) {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
