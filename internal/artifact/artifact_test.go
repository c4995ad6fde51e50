package artifact

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"music-downloader/internal/database"
	"music-downloader/pkg/models"
)

func newTestStore(t *testing.T) (*Store, *database.DB) {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(filepath.Join(t.TempDir(), "artifacts"), db)
	require.NoError(t, err)
	return store, db
}

// complete stores files for job and records the job as completed, publishing the artifact
func complete(t *testing.T, store *Store, db *database.DB, job models.DownloadJob, files ...string) *models.ArtifactRecord {
	t.Helper()
	record, err := store.Store(context.Background(), job, files)
	require.NoError(t, err)
	require.NoError(t, db.RecordCompletion(&models.CompletedDownload{
		JobID:       job.ID,
		SessionID:   job.SessionID,
		URL:         job.URL,
		DownloadID:  record.DownloadID,
		SizeBytes:   record.SizeBytes,
		Songs:       len(files),
		CompletedAt: time.Now(),
	}))
	return record
}

func writeSong(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testJob(id string) models.DownloadJob {
	return models.DownloadJob{ID: id, SessionID: "s1", URL: "https://youtube.com/watch?v=" + id}
}

func readAll(t *testing.T, c *Content) []byte {
	t.Helper()
	defer c.Reader.Close()
	data, err := io.ReadAll(c.Reader)
	require.NoError(t, err)
	return data
}

func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = string(content)
	}
	return entries
}

func TestStore_SingleFile(t *testing.T) {
	store, db := newTestStore(t)
	work := t.TempDir()
	src := writeSong(t, filepath.Join(work, "0"), "Song.mp3", "audio-bytes")

	record := complete(t, store, db, testJob("j1"), src)
	require.NotEmpty(t, record.DownloadID)
	require.Equal(t, int64(len("audio-bytes")), record.SizeBytes)
	require.Equal(t, []string{"Song.mp3"}, record.Files)

	_, err := os.Stat(src)
	require.True(t, os.IsNotExist(err))

	content, err := store.Fetch(context.Background(), record.DownloadID)
	require.NoError(t, err)
	require.Equal(t, "Song.mp3", content.Name)
	require.Equal(t, int64(11), content.Size)
	require.Equal(t, "audio-bytes", string(readAll(t, content)))
}

func TestStore_MultipleFilesAsZip(t *testing.T) {
	store, db := newTestStore(t)
	work := t.TempDir()
	files := []string{
		writeSong(t, filepath.Join(work, "0"), "Intro.mp3", "one"),
		writeSong(t, filepath.Join(work, "1"), "Outro.mp3", "two"),
		writeSong(t, filepath.Join(work, "2"), "Intro.mp3", "three"),
	}

	record := complete(t, store, db, testJob("j1"), files...)
	require.Equal(t, []string{"Intro.mp3", "Outro.mp3", "Intro (2).mp3"}, record.Files)

	content, err := store.Fetch(context.Background(), record.DownloadID)
	require.NoError(t, err)
	require.Equal(t, int64(-1), content.Size)
	require.Contains(t, content.Name, ".zip")

	require.Equal(t, map[string]string{
		"Intro.mp3":     "one",
		"Outro.mp3":     "two",
		"Intro (2).mp3": "three",
	}, zipEntries(t, readAll(t, content)))
}

func TestStore_DistinctDownloadIDs(t *testing.T) {
	store, db := newTestStore(t)
	work := t.TempDir()

	first := complete(t, store, db, testJob("j1"), writeSong(t, filepath.Join(work, "a"), "Song.mp3", "x"))
	second := complete(t, store, db, testJob("j2"), writeSong(t, filepath.Join(work, "b"), "Song.mp3", "y"))

	require.NotEqual(t, first.DownloadID, second.DownloadID)

	c1, err := store.Fetch(context.Background(), first.DownloadID)
	require.NoError(t, err)
	require.Equal(t, "x", string(readAll(t, c1)))
	c2, err := store.Fetch(context.Background(), second.DownloadID)
	require.NoError(t, err)
	require.Equal(t, "y", string(readAll(t, c2)))
}

func TestStore_Errors(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Store(context.Background(), testJob("j1"), nil)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)

	_, err = store.Store(context.Background(), testJob("j1"), []string{"/does/not/exist.mp3"})
	require.ErrorAs(t, err, &storageErr)

	entries, err := os.ReadDir(store.root)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStore_FetchNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	for _, id := range []string{"", "../../etc", "not-a-uuid", "7f1d8a52-3c0e-4d6b-9a51-2a8f4d8c9e10"} {
		_, err := store.Fetch(context.Background(), id)
		require.True(t, errors.Is(err, ErrNotFound), "id %q", id)

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
	}
}

func TestStore_FetchAll(t *testing.T) {
	store, db := newTestStore(t)
	work := t.TempDir()

	first := complete(t, store, db, testJob("j1"), writeSong(t, filepath.Join(work, "a"), "A.mp3", "a"))
	second := complete(t, store, db, testJob("j2"),
		writeSong(t, filepath.Join(work, "b"), "B1.mp3", "b1"),
		writeSong(t, filepath.Join(work, "c"), "B2.mp3", "b2"),
	)

	ids, err := store.SessionDownloads("s1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{first.DownloadID, second.DownloadID}, ids)

	content, err := store.FetchAll(context.Background(), ids)
	require.NoError(t, err)
	entries := zipEntries(t, readAll(t, content))
	require.Len(t, entries, 3)

	names := make([]string, 0, len(entries))
	for name := range entries {
		folder, file := path.Split(name)
		require.True(t, strings.HasPrefix(folder, "download-"), name)
		names = append(names, file)
	}
	sort.Strings(names)
	require.Equal(t, []string{"A.mp3", "B1.mp3", "B2.mp3"}, names)

	_, err = store.FetchAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.FetchAll(context.Background(), []string{first.DownloadID, "7f1d8a52-3c0e-4d6b-9a51-2a8f4d8c9e10"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteOlderThan(t *testing.T) {
	store, db := newTestStore(t)
	work := t.TempDir()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	old, err := store.Store(context.Background(), testJob("j1"), []string{writeSong(t, filepath.Join(work, "a"), "A.mp3", "a")})
	require.NoError(t, err)

	now = now.Add(20 * time.Hour)
	recent, err := store.Store(context.Background(), testJob("j2"), []string{writeSong(t, filepath.Join(work, "b"), "B.mp3", "b")})
	require.NoError(t, err)

	now = now.Add(10 * time.Hour)
	deleted, err := store.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	_, err = store.Fetch(context.Background(), old.DownloadID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(filepath.Join(store.root, old.DownloadID))
	require.True(t, os.IsNotExist(err))

	_, err = db.GetArtifact(recent.DownloadID)
	require.NoError(t, err)
}

func TestStore_UnpublishedIsHidden(t *testing.T) {
	store, db := newTestStore(t)
	work := t.TempDir()

	pending, err := store.Store(context.Background(), testJob("j1"), []string{writeSong(t, filepath.Join(work, "a"), "A.mp3", "a")})
	require.NoError(t, err)

	_, err = store.Fetch(context.Background(), pending.DownloadID)
	require.ErrorIs(t, err, ErrNotFound)
	ids, err := store.SessionDownloads("s1")
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, store.Discard(pending.DownloadID))
	require.NoDirExists(t, pending.Directory)
	_, err = db.GetArtifact(pending.DownloadID)
	require.ErrorIs(t, err, database.ErrArtifactNotFound)

	require.ErrorIs(t, store.Discard("../escape"), ErrNotFound)
}

func TestStore_RecentDownloads(t *testing.T) {
	store, db := newTestStore(t)
	work := t.TempDir()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	single := complete(t, store, db, testJob("j1"), writeSong(t, filepath.Join(work, "a"), "A.mp3", "aaaa"))
	now = now.Add(time.Minute)
	album := complete(t, store, db, testJob("j2"),
		writeSong(t, filepath.Join(work, "b"), "B1.mp3", "b1"),
		writeSong(t, filepath.Join(work, "c"), "B2.mp3", "b2"),
	)
	now = now.Add(time.Minute)
	_, err := store.Store(context.Background(), testJob("j3"), []string{writeSong(t, filepath.Join(work, "d"), "D.mp3", "d")})
	require.NoError(t, err)

	recent, err := store.RecentDownloads("s1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	require.Equal(t, album.DownloadID, recent[0].DownloadID)
	require.Equal(t, archiveName(album), recent[0].Name)
	require.Equal(t, 2, recent[0].Files)

	require.Equal(t, single.DownloadID, recent[1].DownloadID)
	require.Equal(t, "A.mp3", recent[1].Name)
	require.Equal(t, 1, recent[1].Files)
	require.True(t, recent[1].CreatedAt.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))

	recent, err = store.RecentDownloads("s1", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{}
	require.Equal(t, "a.mp3", uniqueName("a.mp3", taken))
	require.Equal(t, "a (2).mp3", uniqueName("a.mp3", taken))
	require.Equal(t, "a (3).mp3", uniqueName("a.mp3", taken))
	require.Equal(t, "b", uniqueName("b", taken))
	require.Equal(t, "b (2)", uniqueName("b", taken))
}
