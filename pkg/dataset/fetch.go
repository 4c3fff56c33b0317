package dataset

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"trainer/pkg/serrors"
)

// DefaultSourceURL is the public archive the pipeline was built around.
const DefaultSourceURL = "https://raw.githubusercontent.com/ageron/handson-ml/master/datasets/housing/housing.tgz"

// Progress receives running byte counts while a download streams.
// total is -1 when the server does not announce a length.
type Progress func(read, total int64)

// Fetcher downloads and unpacks housing archives. It is safe for concurrent
// use.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher constructs a Fetcher on top of the provided http.Client. A nil
// client falls back to http.DefaultClient.
func NewFetcher(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Fetcher{httpClient: httpClient}
}

// Download streams the archive at url into dst, reporting progress when a
// callback is given. It returns the number of bytes written.
func (f *Fetcher) Download(ctx context.Context, url string, dst io.Writer, progress Progress) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return 0, serrors.With(serrors.ErrNotFound, "archive not found at %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return 0, fmt.Errorf("download failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	src := resp.Body
	var reader io.Reader = src
	if progress != nil {
		reader = &progressReader{r: src, total: resp.ContentLength, progress: progress}
	}

	written, err := io.Copy(dst, reader)
	if err != nil {
		return written, fmt.Errorf("could not stream archive body: %w", err)
	}

	return written, nil
}

// progressReader counts bytes as they pass through and invokes the callback.
type progressReader struct {
	r        io.Reader
	read     int64
	total    int64
	progress Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.progress(p.read, p.total)
	}

	return n, err
}

// ExtractCSV unpacks a tar.gz stream and returns the content of its first
// .csv member.
func ExtractCSV(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not open gzip stream: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".csv") {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("could not read tar member %q: %w", hdr.Name, err)
		}

		return content, nil
	}

	return nil, fmt.Errorf("archive contains no csv member")
}

// FetchTable downloads the archive at url and parses the contained CSV.
func (f *Fetcher) FetchTable(ctx context.Context, url string, progress Progress) (Table, error) {
	var buf bytes.Buffer
	if _, err := f.Download(ctx, url, &buf, progress); err != nil {
		return nil, fmt.Errorf("could not download %s: %w", url, err)
	}

	content, err := ExtractCSV(&buf)
	if err != nil {
		return nil, fmt.Errorf("could not extract %s: %w", url, err)
	}

	table, err := ReadCSV(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", url, err)
	}

	return table, nil
}

// EnsureFile makes sure dir holds the raw CSV named name (without extension)
// and returns its path. An existing file short-circuits the download; the
// temporary archive is removed after extraction.
func (f *Fetcher) EnsureFile(ctx context.Context, url, dir, name string, progress Progress) (string, error) {
	path := filepath.Join(dir, name+".csv")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create directory %s: %w", dir, err)
	}

	archive, err := os.CreateTemp(dir, name+"-*.tgz")
	if err != nil {
		return "", fmt.Errorf("could not create archive file: %w", err)
	}
	defer func() {
		_ = os.Remove(archive.Name())
	}()

	if _, err := f.Download(ctx, url, archive, progress); err != nil {
		_ = archive.Close()

		return "", fmt.Errorf("could not download %s: %w", url, err)
	}
	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		_ = archive.Close()

		return "", fmt.Errorf("could not rewind archive: %w", err)
	}

	content, err := ExtractCSV(archive)
	_ = archive.Close()
	if err != nil {
		return "", fmt.Errorf("could not extract %s: %w", url, err)
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("could not write %s: %w", path, err)
	}

	return path, nil
}
