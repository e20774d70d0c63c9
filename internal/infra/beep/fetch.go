package beep

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

type codec string

const (
	codecMP3  codec = "mp3"
	codecFLAC codec = "flac"
	codecWAV  codec = "wav"
)

// fetcher opens local files and downloads remote resources.
type fetcher struct {
	client   *http.Client
	maxBytes int64
}

func newFetcher(maxBytes int64) *fetcher {
	return &fetcher{client: http.DefaultClient, maxBytes: maxBytes}
}

// open returns a decoded stream for source.
// Sources are plain paths, file:// URLs or http(s) URLs.
func (f *fetcher) open(ctx context.Context, source string) (beep.StreamSeekCloser, beep.Format, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, beep.Format{}, errors.New("empty source")
	}

	u, err := url.Parse(source)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return f.openRemote(ctx, u)
	}

	p := source
	if err == nil && u.Scheme == "file" {
		p = u.Path
	}
	return f.openFile(p)
}

func (f *fetcher) openFile(p string) (beep.StreamSeekCloser, beep.Format, error) {
	file, err := os.Open(p)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var head [12]byte
	n, _ := io.ReadFull(file, head[:])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, beep.Format{}, err
	}

	c, ok := detect(head[:n], path.Ext(p), "")
	if !ok {
		file.Close()
		return nil, beep.Format{}, errors.Newf("unsupported audio format: %s", path.Base(p))
	}
	s, format, err := decode(c, file)
	if err != nil {
		file.Close()
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s", c)
	}
	return s, format, nil
}

func (f *fetcher) openRemote(ctx context.Context, u *url.URL) (beep.StreamSeekCloser, beep.Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, beep.Format{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, beep.Format{}, errors.Newf("unexpected status: %s", resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, beep.Format{}, errors.Newf("resource too large: %s > %s",
			humanize.IBytes(uint64(resp.ContentLength)), humanize.IBytes(uint64(f.maxBytes)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "failed to read body")
	}
	if int64(len(data)) > f.maxBytes {
		return nil, beep.Format{}, errors.Newf("resource too large: more than %s", humanize.IBytes(uint64(f.maxBytes)))
	}

	c, ok := detect(data, path.Ext(u.Path), resp.Header.Get("Content-Type"))
	if !ok {
		return nil, beep.Format{}, errors.Newf("unsupported audio format: %s", u.Redacted())
	}
	s, format, err := decode(c, memFile{bytes.NewReader(data)})
	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s", c)
	}
	return s, format, nil
}

// detect picks a codec from magic bytes, then the extension, then the content type.
func detect(head []byte, ext, contentType string) (codec, bool) {
	switch {
	case bytes.HasPrefix(head, []byte("RIFF")) && len(head) >= 12 && string(head[8:12]) == "WAVE":
		return codecWAV, true
	case bytes.HasPrefix(head, []byte("fLaC")):
		return codecFLAC, true
	case bytes.HasPrefix(head, []byte("ID3")), len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return codecMP3, true
	}

	switch strings.ToLower(ext) {
	case ".mp3":
		return codecMP3, true
	case ".flac":
		return codecFLAC, true
	case ".wav", ".wave":
		return codecWAV, true
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return codecMP3, true
	case strings.Contains(ct, "flac"):
		return codecFLAC, true
	case strings.Contains(ct, "wav"):
		return codecWAV, true
	}
	return "", false
}

func decode(c codec, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch c {
	case codecMP3:
		return mp3.Decode(rc)
	case codecFLAC:
		return flac.Decode(rc)
	case codecWAV:
		return wav.Decode(rc)
	default:
		return nil, beep.Format{}, errors.Newf("unknown codec %q", c)
	}
}

// memFile is a seekable in-memory body.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }
