// Package publish pushes finished run artifacts to external destinations:
// S3 for archival, YouTube for release. Both are optional and configured
// independently.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"clipforge/config"
	"clipforge/types"
)

// Run uploads a completed pipeline result per the publish configuration.
func Run(ctx context.Context, cfg config.PublishConfig, res *types.Result) error {
	if !res.Success {
		return fmt.Errorf("refusing to publish a failed run")
	}

	if cfg.S3Bucket != "" {
		up, err := NewS3Uploader(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		stem := filepath.Base(filepath.Dir(res.VideoPath))
		if _, err := up.UploadFile(ctx, stem, res.VideoPath, "video/mp4"); err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		if res.MetadataPath != "" {
			if _, err := up.UploadFile(ctx, stem, res.MetadataPath, "application/json"); err != nil {
				return fmt.Errorf("s3: %w", err)
			}
		}
		log.Printf("[Publish] archived to s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	}

	if cfg.YouTubeEnabled {
		meta, err := loadMetadata(res.MetadataPath)
		if err != nil {
			return fmt.Errorf("youtube: %w", err)
		}
		up, err := NewYouTubeUploader(ctx, cfg.ServiceAccountFile, cfg.PrivacyStatus, cfg.CategoryID)
		if err != nil {
			return fmt.Errorf("youtube: %w", err)
		}
		if _, err := up.Upload(ctx, res.VideoPath, meta); err != nil {
			return fmt.Errorf("youtube: %w", err)
		}
	}

	return nil
}

func loadMetadata(path string) (types.Metadata, error) {
	var meta types.Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse %s: %w", path, err)
	}
	return meta, nil
}
