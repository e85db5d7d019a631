package recording

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
)

const ffmpegStderrBufferKB = 4

// Container is the video-container writer: something that accepts decoded
// frames sized to the first frame's dimensions and produces a muxed file on
// Close.
type Container interface {
	// Open sizes the container to the first frame and begins writing.
	Open(width, height int) error
	// WriteFrame writes one decoded frame. Its dimensions must match Open's.
	WriteFrame(img image.Image) error
	// Close finalizes the container. Safe to call even if Open failed or
	// was never called (no-op in that case).
	Close() error
}

// ffmpegContainer drives an `ffmpeg` subprocess fed raw RGB24 frames over
// stdin and muxes them into a single output file.
type ffmpegContainer struct {
	path      string
	fps       int
	encoder   string
	width     int
	height    int
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stderrBuf bytes.Buffer
}

// newFFmpegContainer constructs a writer for path. encoder is the ffmpeg
// "-c:v" value that resolveEncoder derived from the configured codec.
func newFFmpegContainer(path string, fps int, encoder string) *ffmpegContainer {
	return &ffmpegContainer{path: path, fps: fps, encoder: encoder}
}

func (c *ffmpegContainer) Open(width, height int) error {
	c.width, c.height = width, height

	args := []string{
		"-y",
		"-loglevel", "warning",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%d", c.fps),
		"-i", "-",
		"-c:v", c.encoder,
		"-r", fmt.Sprintf("%d", c.fps),
		"-pix_fmt", "yuv420p",
		c.path,
	}

	cmd := exec.Command("ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	go func() {
		buf := make([]byte, ffmpegStderrBufferKB*1024)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				c.stderrBuf.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	c.cmd = cmd
	c.stdin = stdin
	return nil
}

func (c *ffmpegContainer) WriteFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != c.width || b.Dy() != c.height {
		return fmt.Errorf("frame dimensions %dx%d do not match container %dx%d", b.Dx(), b.Dy(), c.width, c.height)
	}

	row := make([]byte, 0, c.width*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row = row[:0]
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			row = append(row, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
		if _, err := c.stdin.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (c *ffmpegContainer) Close() error {
	if c.cmd == nil {
		return nil
	}
	c.stdin.Close()
	err := c.cmd.Wait()
	if err != nil && c.stderrBuf.Len() > 0 {
		err = fmt.Errorf("%w: %s", err, strings.TrimSpace(c.stderrBuf.String()))
	}
	return err
}

// fourCCEncoders maps OpenCV-style FourCC codec identifiers (the form
// recording.codec takes, e.g. the default "mp4v") to the ffmpeg "-c:v"
// encoder name that produces an equivalent stream.
var fourCCEncoders = map[string]string{
	"mp4v": "mpeg4",
	"avc1": "libx264",
	"h264": "libx264",
	"x264": "libx264",
	"xvid": "libxvid",
	"mjpg": "mjpeg",
}

// resolveEncoder turns a configured codec into an ffmpeg "-c:v" value.
// An empty value or "auto" probes the local ffmpeg for the best available
// hardware encoder. A known FourCC identifier is translated to its ffmpeg
// equivalent. Anything else is passed through unchanged, on the assumption
// it already names a valid ffmpeg encoder.
func resolveEncoder(codec string, logger Logger) string {
	lower := strings.ToLower(codec)
	if lower == "" || lower == "auto" {
		return detectVideoEncoder(logger)
	}
	if encoder, ok := fourCCEncoders[lower]; ok {
		return encoder
	}
	return codec
}

// detectVideoEncoder probes the locally installed ffmpeg for the best
// available H.264 encoder, preferring hardware encoders and falling back to
// libx264 in software. Used when the configured codec is "auto".
func detectVideoEncoder(logger Logger) string {
	cmd := exec.Command("ffmpeg", "-encoders")
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Debugf("failed to query ffmpeg encoders: %v", err)
		return "libx264"
	}

	encoders := string(output)
	for _, candidate := range []string{"h264_v4l2m2m", "h264_vaapi", "libopenh264", "libx264"} {
		if strings.Contains(encoders, candidate) {
			return candidate
		}
	}

	logger.Printf("no suitable H.264 encoder detected, defaulting to libx264")
	return "libx264"
}
