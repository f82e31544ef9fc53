package dictionary

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
	"github.com/Sardonyx001/whats-this-kanji/pkg/ingest"
	"github.com/Sardonyx001/whats-this-kanji/pkg/kanjidic"
)

// DefaultURL is the EDRDG home of the gzip-compressed KANJIDIC2 file.
const DefaultURL = "http://www.edrdg.org/kanjidic/kanjidic2.xml.gz"

// DefaultFetchTimeout bounds the whole archive download.
const DefaultFetchTimeout = 5 * time.Minute

const userAgent = "whats-this-kanji/1.0"

// errEmptyDownload is returned when the server answers 200 with no body;
// storing an empty dictionary would be worse than failing.
var errEmptyDownload = errors.New("download returned an empty body")

// NetworkSource builds the dictionary from the authoritative distribution:
// download the compressed XML, decompress it to scratch space, parse it, and
// import the entries. Scratch files are deleted when the install returns.
type NetworkSource struct {
	// URL of the gzip-compressed KANJIDIC2 payload; empty means
	// DefaultURL.
	URL string
	// Client performs the fetch; nil means a client with
	// DefaultFetchTimeout.
	Client *http.Client
	// ScratchDir holds the downloaded archive and its expansion; empty
	// means the system temp directory.
	ScratchDir string
	// Version is stamped into metadata after a successful store.
	Version string
	// BatchSize overrides ingest.DefaultBatchSize when positive.
	BatchSize int
	// Logger is used for informational messages. nil means no logging.
	Logger *slog.Logger
}

func (n *NetworkSource) Name() string {
	return "network"
}

func (n *NetworkSource) Install(ctx context.Context, h *db.Handle, report func(Status)) error {
	archive, err := n.download(ctx, report)
	if err != nil {
		return err
	}
	defer os.Remove(archive)

	report(Status{Stage: StageDecompressing})
	xmlPath, err := n.decompress(archive)
	if err != nil {
		return err
	}
	defer os.Remove(xmlPath)

	entries, err := n.parse(xmlPath, report)
	if err != nil {
		return err
	}

	report(Status{Stage: StageStoring})
	im := ingest.NewImporter(h.DB(), n.Version)
	if n.BatchSize > 0 {
		im.BatchSize = n.BatchSize
	}
	im.Logger = n.Logger
	im.OnProgress = func(percent int) {
		report(Status{Stage: StageStoring, Percent: percent})
	}
	if err := im.Run(ctx, entries); err != nil {
		return err
	}
	return nil
}

// download fetches the archive to a scratch file and returns its path. The
// downloading stage is reported before the request goes out.
func (n *NetworkSource) download(ctx context.Context, report func(Status)) (string, error) {
	url := n.URL
	if url == "" {
		url = DefaultURL
	}
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	report(Status{Stage: StageDownloading})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading dictionary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(n.ScratchDir, "kanjidic2-*.xml.gz")
	if err != nil {
		return "", fmt.Errorf("creating scratch archive: %w", err)
	}
	defer tmp.Close()

	var body io.Reader = resp.Body
	if resp.ContentLength > 0 {
		body = &progressReader{
			r:     resp.Body,
			total: resp.ContentLength,
			f: func(percent int) {
				report(Status{Stage: StageDownloading, Percent: percent})
			},
		}
	}

	written, err := io.Copy(tmp, body)
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("saving dictionary archive: %w", err)
	}
	if written == 0 {
		os.Remove(tmp.Name())
		return "", errEmptyDownload
	}
	if n.Logger != nil {
		n.Logger.Info("dictionary_downloaded",
			slog.String("url", url),
			slog.Int64("bytes", written),
		)
	}
	return tmp.Name(), nil
}

// decompress expands the single-member gzip archive to a scratch XML file
// and returns its path.
func (n *NetworkSource) decompress(archive string) (string, error) {
	in, err := os.Open(archive)
	if err != nil {
		return "", fmt.Errorf("opening dictionary archive: %w", err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("reading dictionary archive: %w", err)
	}
	defer gz.Close()

	out, err := os.CreateTemp(n.ScratchDir, "kanjidic2-*.xml")
	if err != nil {
		return "", fmt.Errorf("creating scratch file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, gz); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("decompressing dictionary: %w", err)
	}
	return out.Name(), nil
}

// parse streams entries out of the decompressed XML, reporting the running
// count as the parsing stage.
func (n *NetworkSource) parse(xmlPath string, report func(Status)) ([]kanjidic.Entry, error) {
	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary xml: %w", err)
	}
	defer f.Close()

	report(Status{Stage: StageParsing})
	entries, skipped, err := kanjidic.ParseAll(f, func(count int) {
		report(Status{Stage: StageParsing, Count: count})
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 && n.Logger != nil {
		n.Logger.Warn("skipped_malformed_entries", slog.Int("count", skipped))
	}
	return entries, nil
}
