/*
Copyright © 2018 the cmorfix authors.
This file is part of cmorfix.

cmorfix is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cmorfix is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cmorfix.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// MaxRetries is the number of times a failed transfer is retried.
var MaxRetries uint64 = 4

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// IsURL returns whether path is an HTTP address.
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// IsRemote returns whether path has to be downloaded before use.
func IsRemote(path string) bool { return IsBlob(path) || IsURL(path) }

// permanentError marks a failure that a retry cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

// retry runs op, retrying failures up to MaxRetries times. Permanent
// failures are returned at once.
func retry(ctx context.Context, what string, op func() error) error {
	var stop error
	attempt := func() error {
		err := op()
		var p *permanentError
		if errors.As(err, &p) {
			stop = p.err
			return nil
		}
		return err
	}
	var b backoff.BackOff = &backoff.StopBackOff{}
	if MaxRetries > 0 {
		b = backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxRetries)
	}
	err := backoff.RetryNotify(attempt, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		logrus.WithError(err).Warnf("cloud: %s failed, retrying in %v", what, d)
	})
	if stop != nil {
		return stop
	}
	return err
}

// Download returns a local path holding the contents of path. Local
// files that exist are returned as is. HTTP addresses and blobs are
// copied into dir, which is a new temporary directory if dir is empty.
func Download(ctx context.Context, path, dir string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if !IsRemote(path) {
		return "", fmt.Errorf("cloud: %s does not exist", path)
	}
	if dir == "" {
		var err error
		if dir, err = os.MkdirTemp("", "cmorfix"); err != nil {
			return "", fmt.Errorf("cloud: creating temporary download directory: %v", err)
		}
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cloud: creating download directory: %v", err)
	}
	local := filepath.Join(dir, Base(path))
	get := downloadBlob
	if IsURL(path) {
		get = downloadHTTP
	}
	err := retry(ctx, "downloading "+path, func() error {
		w, err := os.Create(local)
		if err != nil {
			return fmt.Errorf("cloud: creating file for download: %v", err)
		}
		if err := get(ctx, path, w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
	if err != nil {
		os.Remove(local)
		return "", err
	}
	return local, nil
}

// Base returns the file name at the end of a local path or remote
// address, without any query string.
func Base(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Base(p)
}

func downloadHTTP(ctx context.Context, addr string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return fmt.Errorf("cloud: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloud: downloading %s: %v", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return permanent(fmt.Errorf("cloud: downloading %s: %s", addr, resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloud: downloading %s: %s", addr, resp.Status)
	}
	if _, err = io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("cloud: downloading %s: %v", addr, err)
	}
	return nil
}

func downloadBlob(ctx context.Context, addr string, w io.Writer) error {
	bucketName, key, err := splitBlob(addr)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return err
	}
	defer bucket.Close()
	return readBlob(ctx, bucket, key, w)
}
