package publish

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"clipforge/types"
)

// YouTubeUploader publishes finished videos with their generated metadata.
type YouTubeUploader struct {
	service       *youtube.Service
	privacyStatus string
	categoryID    string
}

func NewYouTubeUploader(ctx context.Context, serviceAccountFile, privacyStatus, categoryID string) (*YouTubeUploader, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	jwtCfg, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	service, err := youtube.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	if privacyStatus == "" {
		privacyStatus = "unlisted"
	}
	return &YouTubeUploader{
		service:       service,
		privacyStatus: privacyStatus,
		categoryID:    categoryID,
	}, nil
}

// Upload pushes the video file with the pipeline's metadata and returns the
// video ID.
func (u *YouTubeUploader) Upload(ctx context.Context, videoPath string, meta types.Metadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat video: %w", err)
	}
	log.Printf("[Publish] uploading %s (%.2f MB)", videoPath, float64(info.Size())/(1024*1024))

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  u.categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           u.privacyStatus,
			SelfDeclaredMadeForKids: false,
		},
	}

	call := u.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx)
	resp, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}

	log.Printf("[Publish] uploaded https://youtube.com/watch?v=%s", resp.Id)
	return resp.Id, nil
}
