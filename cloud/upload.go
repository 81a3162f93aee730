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
	"fmt"
	"os"
	"path/filepath"
)

// Upload copies the local file at src to the blob address dst.
func Upload(ctx context.Context, src, dst string) error {
	bucketName, key, err := splitBlob(dst)
	if err != nil {
		return err
	}
	return retry(ctx, "uploading "+dst, func() error {
		r, err := os.Open(src)
		if err != nil {
			return permanent(fmt.Errorf("cloud: opening file '%s' for upload: %v", src, err))
		}
		defer r.Close()
		bucket, err := OpenBucket(ctx, bucketName)
		if err != nil {
			return fmt.Errorf("cloud: opening bucket to upload file '%s': %v", dst, err)
		}
		defer bucket.Close()
		return writeBlob(ctx, bucket, key, r)
	})
}

// Uploader stages output files that belong in blob storage in a
// local directory until Flush is called.
type Uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// Path checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will be uploaded to blob storage when
// Flush is called. Other paths are returned unchanged.
func (u *Uploader) Path(path string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if !IsBlob(path) {
		return path, nil
	}
	if u.dir == "" {
		u.dir, u.err = os.MkdirTemp("", "cmorfix")
		if u.err != nil {
			return "", fmt.Errorf("cloud: creating upload directory: %v", u.err)
		}
	}
	local := filepath.Join(u.dir, fmt.Sprintf("%d_%s", len(u.files), Base(path)))
	u.files = append(u.files, [2]string{local, path})
	return local, nil
}

// Flush uploads the staged files and removes the staging directory.
func (u *Uploader) Flush(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	for _, f := range u.files {
		if err := Upload(ctx, f[0], f[1]); err != nil {
			return err
		}
	}
	u.files = nil
	if u.dir != "" {
		os.RemoveAll(u.dir)
		u.dir = ""
	}
	return nil
}
