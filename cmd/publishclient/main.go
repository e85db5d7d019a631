// Command publishclient is a reference client: it reads the files of a
// directory of JPEG frames once at startup, in name order, and replays them
// through the adaptive uploader in package publisher, as a real camera-feed
// client would.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/orangewood-co/relaystream/publisher"
)

type stdLogger struct{}

func (stdLogger) Printf(format string, v ...interface{}) { log.Printf(format, v...) }
func (stdLogger) Debugf(format string, v ...interface{}) { log.Printf(format, v...) }

func main() {
	var (
		url        = flag.String("url", "", "publish URL, e.g. http://localhost:5000/publish/cam1")
		dir        = flag.String("dir", "", "directory of JPEG frames to replay")
		fps        = flag.Float64("fps", 15, "target send rate")
		quality    = flag.Int("quality", 85, "base JPEG quality (50-100)")
		adaptive   = flag.Bool("adaptive", true, "enable adaptive quality and proactive skipping")
		queueSize  = flag.Int("queue-size", 15, "bounded send queue capacity")
		loopFrames = flag.Bool("loop", true, "replay the frame directory indefinitely")
	)
	flag.Parse()

	if *url == "" || *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: publishclient -url http://host:port/publish/name -dir ./frames")
		os.Exit(2)
	}

	frames, err := loadFramePaths(*dir)
	if err != nil || len(frames) == 0 {
		log.Fatalf("no frames found under %s: %v", *dir, err)
	}

	client := publisher.NewClient(publisher.Config{
		StreamURL:    *url,
		MaxQueueSize: *queueSize,
		MaxFPS:       *fps,
		BaseQuality:  *quality,
		Adaptive:     *adaptive,
	}, stdLogger{})
	client.Start()
	defer client.Stop()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *fps))
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i >= len(frames) {
			if !*loopFrames {
				break
			}
			i = 0
		}

		img, err := decodeJPEG(frames[i])
		if err != nil {
			log.Printf("skipping unreadable frame %s: %v", frames[i], err)
			continue
		}
		client.PublishFrame(img)

		<-ticker.C
	}

	stats := client.Stats()
	log.Printf("done: total=%d skipped=%d dropped=%d failed=%d quality=%d",
		stats.Total, stats.Skipped, stats.Dropped, stats.Failed, stats.Quality)
}

func loadFramePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func decodeJPEG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
