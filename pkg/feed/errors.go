package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/software"
)

var (
	// ErrStale is returned by a load whose result was superseded by a load
	// started after it. The stale result is discarded.
	ErrStale = errors.New("feed response superseded by a newer load")

	// ErrDebounced is returned by a non-forced load issued within the minimum
	// refetch interval of the previous one.
	ErrDebounced = errors.New("feed reload suppressed: previous load was too recent")
)

// StatusError is a non-2xx HTTP response from a feed source.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Explain adds troubleshooting steps to a feed load error. Debounced and
// stale loads are returned unchanged since they are not failures.
func Explain(feed string, err error) error {
	if err == nil || errors.Is(err, ErrDebounced) || errors.Is(err, ErrStale) {
		return err
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == 404:
			return fmt.Errorf("%s feed not found: %w\n\n"+
				"To fix:\n"+
				"  1. Check feeds.%s in your config file\n"+
				"  2. Or set PATCHBROWSER_FEEDS_%s to the correct location", feed, err, feed, strings.ToUpper(feed))
		case statusErr.StatusCode == 401 || statusErr.StatusCode == 403:
			return fmt.Errorf("%s feed access denied: %w\n\n"+
				"The feed must be published without authentication.\n\n"+
				"To fix:\n"+
				"  1. Verify the sheet or file is shared publicly\n"+
				"  2. Check feeds.%s in your config file", feed, err, feed)
		case statusErr.StatusCode >= 500:
			return fmt.Errorf("%s feed server error: %w\n\n"+
				"The feed host is experiencing issues.\n\n"+
				"To fix:\n"+
				"  1. Wait a few minutes and reload", feed, err)
		}
		return fmt.Errorf("%s feed request failed: %w", feed, err)
	}

	var headerErr *software.HeaderError
	if errors.As(err, &headerErr) {
		return fmt.Errorf("%s feed has an unexpected layout: %w\n\n"+
			"To fix:\n"+
			"  1. Make sure the first row holds the column names\n"+
			"  2. Check that the 'Filename' and 'Direct Download' columns were not renamed", feed, err)
	}

	if errors.Is(err, patch.ErrInvalidJSON) {
		return fmt.Errorf("%s feed could not be parsed: %w\n\n"+
			"To fix:\n"+
			"  1. Validate the file with a JSON linter\n"+
			"  2. Make sure the source returns JSON and not an HTML error page", feed, err)
	}

	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s feed file not found: %w\n\n"+
			"To fix:\n"+
			"  1. Check feeds.%s in your config file\n"+
			"  2. Paths are relative to the working directory", feed, err, feed)
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return fmt.Errorf("%s feed request timed out: %w\n\n"+
			"To fix:\n"+
			"  1. Check your internet connection\n"+
			"  2. Raise feeds.timeout in your config file", feed, err)
	}

	var netErr net.Error
	var opErr *net.OpError
	if errors.As(err, &opErr) || errors.As(err, &netErr) {
		return fmt.Errorf("network error loading %s feed: %w\n\n"+
			"To fix:\n"+
			"  1. Check your internet connection\n"+
			"  2. Check if a firewall or proxy is blocking the connection", feed, err)
	}

	return fmt.Errorf("error loading %s feed: %w", feed, err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
