// Package assets provides AssetLoader implementations for frame images.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/loop"
	"github.com/matt-g-everett/framescroll/playback"
)

// ErrUnexpectedStatus is returned when an HTTP asset request does not answer 200.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// A Poster delivers callbacks onto the loop goroutine.
type Poster interface {
	Post(fn func())
}

// Frame is a decoded frame image.
type Frame struct {
	URL   string
	Image image.Image
	Size  int
}

// FileLoader reads frame images from disk or over HTTP and decodes them on worker
// goroutines. Raw bytes are kept in a bounded cache so preloaded frames decode
// without hitting the source again.
type FileLoader struct {
	post   Poster
	client *http.Client
	log    logrus.FieldLogger
	sem    chan struct{}

	mu         sync.Mutex
	cache      map[string][]byte
	cacheBytes int
	cacheLimit int
}

// NewFileLoader creates a FileLoader running at most workers reads at a time and
// caching up to cacheLimit bytes of encoded images.
func NewFileLoader(post Poster, workers, cacheLimit int, log logrus.FieldLogger) *FileLoader {
	if workers < 1 {
		workers = 1
	}

	l := new(FileLoader)
	l.post = post
	l.client = &http.Client{Timeout: 30 * time.Second}
	l.log = log.WithField("component", "loader")
	l.sem = make(chan struct{}, workers)
	l.cache = make(map[string][]byte)
	l.cacheLimit = cacheLimit
	return l
}

// LoadAsset starts loading url and returns its Future.
func (l *FileLoader) LoadAsset(url string) *loop.Future[playback.Asset] {
	f := loop.NewFuture[playback.Asset]()
	go func() {
		frame, err := l.load(url)
		l.post.Post(func() {
			if err != nil {
				f.Reject(err)
				return
			}
			f.Resolve(frame)
		})
	}()
	return f
}

// CachedBytes returns the number of encoded bytes held in the cache.
func (l *FileLoader) CachedBytes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cacheBytes
}

func (l *FileLoader) load(url string) (*Frame, error) {
	data, err := l.read(url)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return &Frame{URL: url, Image: img, Size: len(data)}, nil
}

func (l *FileLoader) read(url string) ([]byte, error) {
	l.mu.Lock()
	data, ok := l.cache[url]
	l.mu.Unlock()
	if ok {
		return data, nil
	}

	l.sem <- struct{}{}
	defer func() { <-l.sem }()

	start := time.Now()
	var err error
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		data, err = l.fetch(url)
	} else {
		data, err = os.ReadFile(url)
		if err != nil {
			err = fmt.Errorf("read %s: %w", url, err)
		}
	}
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"url":      url,
		"bytes":    len(data),
		"duration": time.Since(start),
	}).Trace("Asset read")

	l.store(url, data)
	return data, nil
}

func (l *FileLoader) fetch(url string) ([]byte, error) {
	resp, err := l.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %w: %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return data, nil
}

func (l *FileLoader) store(url string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.cache[url]; ok || l.cacheBytes+len(data) > l.cacheLimit {
		return
	}
	l.cache[url] = data
	l.cacheBytes += len(data)
}
