package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os/exec"
	"strconv"

	// Decoders for ffmpeg frames and sidecar posters.
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Info is what ffprobe reports about a video.
type Info struct {
	Duration   float64
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
}

// Tool probes videos and grabs frames from them.
type Tool interface {
	Probe(ctx context.Context, path string) (Info, error)
	Frame(ctx context.Context, path string) (image.Image, error)
}

// FFmpeg runs the ffprobe and ffmpeg binaries.
type FFmpeg struct {
	ffprobe string
	ffmpeg  string
}

// FindFFmpeg looks both binaries up on PATH.
func FindFFmpeg() (*FFmpeg, error) {
	probe, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}
	mpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	return &FFmpeg{ffprobe: probe, ffmpeg: mpeg}, nil
}

// Probe reads duration, resolution and codecs.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, f.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Info{}, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}
	return parseProbe(stdout.Bytes())
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func parseProbe(data []byte) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info Info
	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.VideoCodec != "" {
				continue
			}
			info.VideoCodec, info.Width, info.Height = s.CodecName, s.Width, s.Height
			if info.Duration == 0 {
				info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		}
	}
	if info.VideoCodec == "" {
		return info, fmt.Errorf("no video stream")
	}
	return info, nil
}

// Frame grabs a frame one second in, or the first frame for very short
// clips.
func (f *FFmpeg) Frame(ctx context.Context, path string) (image.Image, error) {
	var stdout, stderr bytes.Buffer

	run := func(args ...string) error {
		stdout.Reset()
		stderr.Reset()
		cmd := exec.CommandContext(ctx, f.ffmpeg, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		return cmd.Run()
	}

	err := run("-ss", "00:00:01", "-i", path, "-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-")
	if err != nil || stdout.Len() == 0 {
		if err := run("-i", path, "-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-"); err != nil {
			return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
		}
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
