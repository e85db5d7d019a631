package publisher

import (
	"bytes"
	"image"
	"image/jpeg"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	adaptEveryNFrames  = 30
	durationWindowSize = 10
	dequeueTimeout     = time.Second
	postTimeout        = 10 * time.Second
	minQuality         = 50
)

// Config tunes the adaptive uploader. Zero-value fields are filled in by
// NewClient with sane defaults.
type Config struct {
	StreamURL    string
	MaxQueueSize int
	MaxFPS       float64
	BaseQuality  int
	Adaptive     bool
	RetryDelay   time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 15
	}
	if c.MaxFPS <= 0 {
		c.MaxFPS = 15
	}
	if c.BaseQuality <= 0 {
		c.BaseQuality = 85
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return c
}

// Stats is a snapshot of the uploader's lifetime counters. At any instant
// skipped + dropped + total + failed + in-flight + queued equals the number
// of frames offered to PublishFrame.
type Stats struct {
	Skipped int64
	Dropped int64
	Total   int64
	Failed  int64
	Queued  int
	Quality int
}

// Client is the adaptive bounded-queue uploader: frames are enqueued by an
// application goroutine and drained by a single background sender that
// encodes, rate-limits, and POSTs them, adjusting JPEG quality in response
// to observed latency and queue pressure. Transport is a resty client tuned
// with a dedicated connection pool so uploads never starve on idle conns.
type Client struct {
	cfg    Config
	logger Logger
	http   *resty.Client

	queue  chan image.Image
	stopCh chan struct{}
	doneCh chan struct{}

	skipped, dropped, total, failed atomic.Int64

	mu            sync.Mutex
	quality       int
	sendDurations []time.Duration
	dequeuedCount int
	lastSendAt    time.Time
}

// NewClient constructs an adaptive publisher targeting cfg.StreamURL
// (typically http://host:port/publish/{name}).
func NewClient(cfg Config, logger Logger) *Client {
	cfg = cfg.withDefaults()

	restyClient := resty.New().
		SetTimeout(postTimeout).
		SetHeader("User-Agent", "relaystream-publisher/1").
		SetDisableWarn(true)

	transport := &http.Transport{
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	restyClient.SetTransport(transport)

	return &Client{
		cfg:     cfg,
		logger:  logger,
		http:    restyClient,
		queue:   make(chan image.Image, cfg.MaxQueueSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		quality: cfg.BaseQuality,
	}
}

// Start launches the background sender loop.
func (c *Client) Start() {
	go c.run()
}

// Stop signals the sender loop to exit and waits for it.
func (c *Client) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// PublishFrame applies the enqueue-side policy: proactive probabilistic
// skipping once the queue exceeds 70% utilization (when adaptive), then a
// non-blocking enqueue that drops the frame if the queue is still full.
func (c *Client) PublishFrame(img image.Image) {
	u := float64(len(c.queue)) / float64(cap(c.queue))

	if c.cfg.Adaptive && u > 0.7 {
		p := clamp((u-0.7)/0.3, 0, 1)
		if rand.Float64() < p {
			c.skipped.Add(1)
			return
		}
	}

	select {
	case c.queue <- img:
	default:
		c.dropped.Add(1)
	}
}

// Stats returns a snapshot of the uploader's counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	quality := c.quality
	c.mu.Unlock()

	return Stats{
		Skipped: c.skipped.Load(),
		Dropped: c.dropped.Load(),
		Total:   c.total.Load(),
		Failed:  c.failed.Load(),
		Queued:  len(c.queue),
		Quality: quality,
	}
}

func (c *Client) run() {
	defer close(c.doneCh)

	for {
		select {
		case <-c.stopCh:
			return
		case frame := <-c.queue:
			c.handleFrame(frame)
		case <-time.After(dequeueTimeout):
			if c.cfg.Adaptive {
				c.mu.Lock()
				c.quality = c.cfg.BaseQuality
				c.mu.Unlock()
			}
		}
	}
}

func (c *Client) handleFrame(frame image.Image) {
	c.mu.Lock()
	c.dequeuedCount++
	shouldAdapt := c.dequeuedCount%adaptEveryNFrames == 0
	c.mu.Unlock()

	if shouldAdapt {
		c.adaptQuality()
	}

	c.rateLimit()

	quality := c.currentQuality()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		c.failed.Add(1)
		c.logger.Printf("publisher: failed to encode frame: %v", err)
		return
	}

	start := time.Now()
	resp, err := c.http.R().
		SetMultipartField("frame", "frame.jpg", "image/jpeg", bytes.NewReader(buf.Bytes())).
		Post(c.cfg.StreamURL)
	elapsed := time.Since(start)

	if err != nil || resp.StatusCode() != http.StatusOK {
		c.failed.Add(1)
		if err != nil {
			c.logger.Debugf("publisher: post failed: %v", err)
		} else {
			c.logger.Debugf("publisher: post returned status %d", resp.StatusCode())
		}

		u := float64(len(c.queue)) / float64(cap(c.queue))
		if u < 0.5 {
			delay := c.cfg.RetryDelay
			if delay > time.Second {
				delay = time.Second
			}
			time.Sleep(delay)
		}
		return
	}

	c.total.Add(1)
	c.recordSendDuration(elapsed)
}

func (c *Client) rateLimit() {
	c.mu.Lock()
	last := c.lastSendAt
	c.mu.Unlock()

	minInterval := time.Duration(float64(time.Second) / c.cfg.MaxFPS)
	if last.IsZero() {
		return
	}
	if elapsed := time.Since(last); elapsed < minInterval {
		time.Sleep(minInterval - elapsed)
	}
}

func (c *Client) recordSendDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSendAt = time.Now()
	c.sendDurations = append(c.sendDurations, d)
	if len(c.sendDurations) > durationWindowSize {
		c.sendDurations = c.sendDurations[len(c.sendDurations)-durationWindowSize:]
	}
}

func (c *Client) currentQuality() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quality
}

// adaptQuality is the feedback loop: recent average send latency and
// current queue utilization jointly decide whether to step quality down
// (to relieve an overloaded link) or back up toward base_quality once
// conditions recover.
func (c *Client) adaptQuality() {
	if !c.cfg.Adaptive {
		return
	}

	u := float64(len(c.queue)) / float64(cap(c.queue))

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.sendDurations) == 0 {
		return
	}
	var sum time.Duration
	for _, d := range c.sendDurations {
		sum += d
	}
	avg := sum.Seconds() / float64(len(c.sendDurations))

	switch {
	case avg > 0.5 && u > 0.5:
		c.quality = max(minQuality, c.quality-5)
	case avg < 0.2 && u < 0.3 && c.quality < c.cfg.BaseQuality:
		c.quality = min(c.cfg.BaseQuality, c.quality+5)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
