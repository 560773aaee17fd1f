// Package encoder contains the media encoder adapter.
package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"clipforge/providers"
)

// Style carries the encode parameters resolved from configuration.
type Style struct {
	Width            int
	Height           int
	FPS              int
	Codec            string
	Preset           string
	AudioCodec       string
	AudioBitrate     string
	BackgroundColour string
}

// FFmpeg assembles timeline stills and narration audio into the final video.
type FFmpeg struct {
	style   Style
	workDir string
}

// NewFFmpeg builds the encoder; intermediate clips go under workDir.
func NewFFmpeg(style Style, workDir string) *FFmpeg {
	return &FFmpeg{style: style, workDir: workDir}
}

func (f *FFmpeg) Name() string { return "ffmpeg" }

// RenderTitleCard draws a solid-colour card with the segment title, used as
// the default/fallback visual for segments without resolved markers.
func (f *FFmpeg) RenderTitleCard(_ context.Context, spec providers.TitleCardSpec, outPath string) error {
	bg := strings.TrimPrefix(f.style.BackgroundColour, "#")
	src := fmt.Sprintf("color=c=0x%s:s=%dx%d", bg, f.style.Width, f.style.Height)

	label := strings.ToUpper(strings.ReplaceAll(spec.SegmentType, "_", " "))
	accent := strings.TrimPrefix(spec.Accent, "#")
	if accent == "" {
		accent = "4A9EFF"
	}

	err := ffmpeg.Input(src, ffmpeg.KwArgs{"f": "lavfi"}).
		Filter("drawtext", ffmpeg.Args{}, ffmpeg.KwArgs{
			"text":      escapeDrawtext(label),
			"fontcolor": "0x" + accent,
			"fontsize":  36,
			"x":         80,
			"y":         "(h/2)-120",
		}).
		Filter("drawtext", ffmpeg.Args{}, ffmpeg.KwArgs{
			"text":      escapeDrawtext(spec.Title),
			"fontcolor": "white",
			"fontsize":  72,
			"x":         80,
			"y":         "h/2",
		}).
		Output(outPath, ffmpeg.KwArgs{"vframes": 1}).
		OverWriteOutput().Run()
	if err != nil {
		return providers.Fatal("render title card", err)
	}
	return nil
}

// ConcatAudio joins the per-segment narration files into one track using the
// concat demuxer, stream-copied so measured durations are preserved.
func (f *FFmpeg) ConcatAudio(_ context.Context, paths []string, outPath string) error {
	if len(paths) == 0 {
		return providers.Fatal("concat audio", fmt.Errorf("no audio chunks"))
	}

	listPath := outPath + ".list.txt"
	var list strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return providers.Fatal("concat audio", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return providers.Fatal("concat audio", err)
	}
	defer os.Remove(listPath)

	err := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(outPath, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().Run()
	if err != nil {
		return providers.Fatal("concat audio", err)
	}
	return nil
}

// Assemble renders each timeline interval's still into a clip of the exact
// interval duration, concatenates the clips, and muxes the narration track.
func (f *FFmpeg) Assemble(ctx context.Context, req providers.AssembleRequest) (string, error) {
	if len(req.Timeline) == 0 {
		return "", providers.Fatal("assemble video", fmt.Errorf("empty timeline"))
	}
	if err := os.MkdirAll(f.workDir, 0o755); err != nil {
		return "", providers.Fatal("assemble video", err)
	}

	stem := strings.TrimSuffix(filepath.Base(req.OutputPath), filepath.Ext(req.OutputPath))

	var list strings.Builder
	for i, interval := range req.Timeline {
		clipPath := filepath.Join(f.workDir, fmt.Sprintf("%s_clip_%04d.mp4", stem, i))
		if err := f.stillToClip(interval.Asset.FilePath, interval.End-interval.Start, clipPath); err != nil {
			return "", err
		}
		abs, err := filepath.Abs(clipPath)
		if err != nil {
			return "", providers.Fatal("assemble video", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}

	listPath := filepath.Join(f.workDir, stem+"_clips.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", providers.Fatal("assemble video", err)
	}

	trackPath := filepath.Join(f.workDir, stem+"_track.mp4")
	err := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(trackPath, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().Run()
	if err != nil {
		return "", providers.Fatal("assemble video", fmt.Errorf("concat clips: %w", err))
	}

	video := ffmpeg.Input(trackPath)
	audio := ffmpeg.Input(req.AudioPath)
	err = ffmpeg.Output([]*ffmpeg.Stream{video, audio}, req.OutputPath, ffmpeg.KwArgs{
		"c:v":      "copy",
		"c:a":      f.style.AudioCodec,
		"b:a":      f.style.AudioBitrate,
		"shortest": "",
	}).OverWriteOutput().Run()
	if err != nil {
		return "", providers.Fatal("assemble video", fmt.Errorf("mux: %w", err))
	}

	return req.OutputPath, nil
}

// stillToClip loops one image for the given duration, scaled and padded to
// the canvas.
func (f *FFmpeg) stillToClip(imagePath string, duration float64, outPath string) error {
	if duration < 0.1 {
		duration = 0.1
	}
	w, h := f.style.Width, f.style.Height

	err := ffmpeg.Input(imagePath, ffmpeg.KwArgs{"loop": "1", "framerate": f.style.FPS}).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d:force_original_aspect_ratio=decrease", w, h)}).
		Filter("pad", ffmpeg.Args{fmt.Sprintf("%d:%d:(ow-iw)/2:(oh-ih)/2", w, h)}).
		Output(outPath, ffmpeg.KwArgs{
			"t":       fmt.Sprintf("%.3f", duration),
			"c:v":     f.style.Codec,
			"preset":  f.style.Preset,
			"pix_fmt": "yuv420p",
			"r":       f.style.FPS,
		}).
		OverWriteOutput().Run()
	if err != nil {
		return providers.Fatal("render clip", fmt.Errorf("%s: %w", imagePath, err))
	}
	return nil
}

// Probe returns the container duration in seconds.
func (f *FFmpeg) Probe(_ context.Context, mediaPath string) (float64, error) {
	raw, err := ffmpeg.Probe(mediaPath)
	if err != nil {
		return 0, providers.Fatal("probe media", fmt.Errorf("%s: %w", mediaPath, err))
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return 0, providers.Fatal("probe media", err)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, providers.Fatal("probe media", fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err))
	}
	return duration, nil
}

func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	return s
}
