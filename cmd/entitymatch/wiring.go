package main

import (
	"context"
	"fmt"
	"os"

	"entitymatch/internal/artifact"
	"entitymatch/internal/blobstore"
	"entitymatch/internal/blobstore/minio"
	"entitymatch/internal/blobstore/s3"
	"entitymatch/internal/config"
	"entitymatch/internal/dataset"
)

func openProvider(cfg *config.AppConfig) (dataset.Provider, func(), error) {
	switch cfg.Dataset.Type {
	case "csv", "":
		if cfg.Dataset.CSV == nil {
			return nil, nil, fmt.Errorf("csv dataset config missing")
		}
		p, err := dataset.NewCSVProvider(cfg.Dataset.CSV.Dir)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	case "sqlite":
		if cfg.Dataset.SQLite == nil {
			return nil, nil, fmt.Errorf("sqlite dataset config missing")
		}
		p, err := dataset.OpenSQLite(cfg.Dataset.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown dataset type: %s", cfg.Dataset.Type)
	}
}

// openArtifacts returns nil when artifact persistence is disabled.
func openArtifacts(ctx context.Context, cfg *config.AppConfig) (*artifact.Store, error) {
	if !cfg.Artifacts.Enabled {
		return nil, nil
	}
	codec, err := artifact.ParseCodec(cfg.Artifacts.Compression)
	if err != nil {
		return nil, err
	}

	var blobs blobstore.Store
	switch cfg.Artifacts.Store {
	case "local", "":
		if cfg.Artifacts.Local == nil {
			return nil, fmt.Errorf("local artifact store config missing")
		}
		blobs, err = blobstore.NewLocalStore(cfg.Artifacts.Local.Dir)
	case "s3":
		if cfg.Artifacts.S3 == nil {
			return nil, fmt.Errorf("s3 artifact store config missing")
		}
		blobs, err = s3.New(ctx, s3.Config{
			Bucket:   cfg.Artifacts.S3.Bucket,
			Region:   cfg.Artifacts.S3.Region,
			Endpoint: cfg.Artifacts.S3.Endpoint,
		})
	case "minio":
		mc := cfg.Artifacts.MinIO
		if mc == nil {
			return nil, fmt.Errorf("minio artifact store config missing")
		}
		blobs, err = minio.New(ctx, minio.Config{
			Endpoint:  mc.Endpoint,
			AccessKey: os.Getenv(mc.AccessKeyEnv),
			SecretKey: os.Getenv(mc.SecretKeyEnv),
			UseSSL:    mc.UseSSL,
			Bucket:    mc.Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown artifact store: %s", cfg.Artifacts.Store)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}
	return artifact.NewStore(blobs, cfg.Artifacts.Prefix, codec), nil
}
