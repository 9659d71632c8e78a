package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Dir      string `split_words:"true" default:"docs"`
	MaxBytes int64  `split_words:"true" default:"10485760"`
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX"`
	S3Region string `envconfig:"S3_REGION"`
}

// Load reads every source in order and builds the Store. Files that cannot be
// parsed are skipped with a warning; a failing source aborts the load.
func Load(ctx context.Context, sources ...Source) (*Store, error) {
	var docs []Document
	for _, src := range sources {
		if src == nil {
			continue
		}
		files, err := src.Files(ctx)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", src.Name(), err)
		}
		for _, f := range files {
			text, mime, err := Extract(ctx, f.Filename, f.Data)
			if err != nil {
				log.Warn().Err(err).Str("origin", f.Origin).Msg("skipping document")
				continue
			}
			docs = append(docs, Document{
				Domain:   f.Domain,
				Filename: f.Filename,
				MIME:     mime,
				Source:   f.Origin,
				Content:  text,
			})
		}
		log.Debug().Str("source", src.Name()).Int("files", len(files)).Msg("document source loaded")
	}

	store := NewStore(docs...)
	log.Info().Int("documents", store.Len()).Msg("document store ready")
	return store, nil
}

// Open builds the sources described by cfg and loads them. A missing local
// directory yields an empty store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var sources []Source

	if dir := strings.TrimSpace(cfg.Dir); dir != "" {
		sources = append(sources, optionalDir{DirSource{Root: dir, MaxBytes: cfg.MaxBytes}})
	}

	if bucket := strings.TrimSpace(cfg.S3Bucket); bucket != "" {
		var opts []func(*awsconfig.LoadOptions) error
		if region := strings.TrimSpace(cfg.S3Region); region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		sources = append(sources, S3Source{
			Client:   s3.NewFromConfig(awsCfg),
			Bucket:   bucket,
			Prefix:   strings.TrimSpace(cfg.S3Prefix),
			MaxBytes: cfg.MaxBytes,
		})
	}

	return Load(ctx, sources...)
}

type optionalDir struct {
	DirSource
}

func (o optionalDir) Files(ctx context.Context) ([]RawFile, error) {
	files, err := o.DirSource.Files(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("dir", o.Root).Msg("docs directory not found, starting with no local documents")
		return nil, nil
	}
	return files, err
}
