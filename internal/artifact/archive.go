package artifact

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"music-downloader/pkg/models"
)

type archiveSource struct {
	record *models.ArtifactRecord
	folder string
}

// streamArchive writes a zip of the sources into a pipe on a separate goroutine.
// Closing the returned reader aborts the write.
func streamArchive(ctx context.Context, logger *slog.Logger, sources []archiveSource) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		zw := zip.NewWriter(pw)
		err := writeArchive(ctx, zw, sources)
		if closeErr := zw.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			logger.Warn("Archive stream aborted", "error", err)
			pw.CloseWithError(&StorageError{Op: "archive", Err: err})
			return
		}
		pw.Close()
	}()

	return pr
}

func writeArchive(ctx context.Context, zw *zip.Writer, sources []archiveSource) error {
	for _, src := range sources {
		for _, name := range src.record.Files {
			if err := ctx.Err(); err != nil {
				return err
			}

			entryName := name
			if src.folder != "" {
				entryName = path.Join(src.folder, name)
			}
			if err := addFile(zw, filepath.Join(src.record.Directory, name), entryName); err != nil {
				return err
			}
		}
	}
	return nil
}

func addFile(zw *zip.Writer, filePath, entryName string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", entryName, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", entryName, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", entryName, err)
	}
	header.Name = entryName
	// Audio is already compressed
	header.Method = zip.Store

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", entryName, err)
	}
	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("failed to write %s: %w", entryName, err)
	}
	return nil
}
