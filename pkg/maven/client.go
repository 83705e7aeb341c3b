package maven

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/klibmirror/klibmirror/pkg/errors"
	"github.com/klibmirror/klibmirror/pkg/httputil"
)

// ClientOptions configures a [Client].
//
// The zero value is usable: Maven Central, no request timeout, no retries,
// and no descriptor cache. Timeout and Retries default to off on purpose —
// a stalled remote stalls the run unless the caller opts into limits.
type ClientOptions struct {
	// Repository is the base URL of the Maven repository.
	// Defaults to [DefaultRepository].
	Repository string

	// Timeout bounds each HTTP request. 0 means no timeout.
	Timeout time.Duration

	// Retries is the number of additional attempts for transient failures
	// (transport errors, 5xx responses). 0 disables retrying.
	Retries int

	// Descriptors, if non-nil, caches raw POM documents so repeated runs
	// skip descriptor fetches entirely. Binary artifacts are never cached
	// here; the mirror directory itself is their cache.
	Descriptors *httputil.Cache
}

// Client fetches binary artifacts and POM descriptors from a Maven
// repository. All methods are safe for concurrent use by multiple
// goroutines.
type Client struct {
	http        *http.Client
	repository  string
	retries     int
	descriptors *httputil.Cache
}

// NewClient creates a Client with the given options.
func NewClient(opts ClientOptions) *Client {
	repo := opts.Repository
	if repo == "" {
		repo = DefaultRepository
	}
	return &Client{
		http:        &http.Client{Timeout: opts.Timeout},
		repository:  repo,
		retries:     opts.Retries,
		descriptors: opts.Descriptors,
	}
}

// Repository returns the base URL the client fetches from.
func (c *Client) Repository() string { return c.repository }

// Download ensures the coordinate's binary artifact exists in cacheDir.
//
// If cacheDir already contains the artifact's file, Download returns
// immediately without any network call. Otherwise the payload is fetched
// and written atomically: the bytes land in a uniquely named temp file that
// is renamed into place only once fully written, so a later run can never
// observe a partial artifact.
//
// Returns a NETWORK_ERROR for fetch failures and an IO_ERROR for local
// write failures.
func (c *Client) Download(ctx context.Context, coord Coordinate, cacheDir string) error {
	path := filepath.Join(cacheDir, coord.Filename())
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	var body []byte
	err := httputil.Retry(ctx, c.retries+1, time.Second, func() error {
		var err error
		body, err = c.get(ctx, coord.ArtifactURL(c.repository))
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "download %s", coord.Filename())
	}

	return writeFileAtomic(path, body)
}

// Dependencies fetches the coordinate's POM descriptor and returns the
// compact coordinate strings of its policy-selected dependencies.
//
// Raw descriptors are cached through the client's descriptor cache (when
// configured) keyed by coordinate, so a warm second run issues no network
// fetch. The cache stores the document itself, not the extracted list:
// switching policies against a warm cache re-filters locally. If refresh is
// true the cache is bypassed and the descriptor is fetched fresh.
func (c *Client) Dependencies(ctx context.Context, coord Coordinate, policy Policy, refresh bool) ([]string, error) {
	key := coord.String()

	var pom string
	if c.descriptors != nil && !refresh {
		if ok, _ := c.descriptors.Get(key, &pom); ok {
			return ExtractDependencies([]byte(pom), policy), nil
		}
	}

	err := httputil.Retry(ctx, c.retries+1, time.Second, func() error {
		body, err := c.get(ctx, coord.DescriptorURL(c.repository))
		if err != nil {
			return err
		}
		pom = string(body)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "descriptor for %s", coord.Key())
	}

	if c.descriptors != nil {
		_ = c.descriptors.Set(key, pom)
	}
	return ExtractDependencies([]byte(pom), policy), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, url); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("GET %s: status %d", url, code)}
	default:
		return fmt.Errorf("GET %s: status %d", url, code)
	}
}

// writeFileAtomic writes data next to path under a unique temp name and
// renames it into place. The unique suffix keeps concurrent runs sharing a
// cache directory from clobbering each other's in-progress writes.
func writeFileAtomic(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", filepath.Base(path))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", filepath.Base(path))
	}
	return nil
}
