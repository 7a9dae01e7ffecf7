package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vidtube/vidtube/internal/common"
)

// maxUploadBytes caps a single multipart request.
const maxUploadBytes = 32 << 20 // 32 MiB

// stageUploadedFile copies the named multipart file field into the staging
// directory and returns the staged path. A missing field returns "", nil;
// the caller decides whether the field was mandatory. The original file
// extension is kept, the name itself is randomized.
func (s *HTTPServer) stageUploadedFile(r *http.Request, field string) (string, error) {
	src, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading multipart field %s: %w", field, err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("creating staging dir: %w", err)
	}

	name, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.tempDir, name+filepath.Ext(header.Filename))

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating staged file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("staging %s: %w", field, err)
	}

	return path, nil
}

// removeStaged cleans up staged files that were never handed to the asset
// store (the store removes the ones it consumed).
func (s *HTTPServer) removeStaged(r *http.Request, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn(r.Context(), "failed to remove staged file", "path", p, "error", err.Error())
		}
	}
}
