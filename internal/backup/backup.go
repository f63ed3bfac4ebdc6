// Package backup archives the local sportdesk settings database, and
// optionally its config file, as tar.gz.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/sportdesk/internal/store"
	"github.com/HerbHall/sportdesk/internal/version"
)

// ManifestName is the archive entry describing the backup.
const ManifestName = "manifest.yaml"

// ErrExists is returned by Restore when a target file exists and force
// is not set.
var ErrExists = errors.New("backup: target file exists")

// Manifest is stored as the first archive entry.
type Manifest struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	Database  string    `yaml:"database"`
	Config    string    `yaml:"config,omitempty"`
}

// Backup writes dbPath, and configPath when it names an existing file,
// to a tar.gz at outputPath. The database WAL is checkpointed first so
// the copied file is self-contained.
func Backup(ctx context.Context, dbPath, configPath, outputPath string) (*Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database file not found: %w", err)
	}
	if err := checkpointWAL(ctx, dbPath); err != nil {
		return nil, fmt.Errorf("WAL checkpoint failed: %w", err)
	}

	m := &Manifest{
		Version:   version.Short(),
		CreatedAt: time.Now().UTC(),
		Database:  filepath.Base(dbPath),
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			m.Config = filepath.Base(configPath)
		}
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	if err := writeManifest(tw, m); err != nil {
		return nil, fmt.Errorf("adding manifest to archive: %w", err)
	}
	if err := addFileToTar(tw, dbPath, m.Database); err != nil {
		return nil, fmt.Errorf("adding database to archive: %w", err)
	}
	if m.Config != "" {
		if err := addFileToTar(tw, configPath, m.Config); err != nil {
			return nil, fmt.Errorf("adding config to archive: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finishing archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("finishing archive: %w", err)
	}
	return m, nil
}

// Restore extracts an archive written by Backup into destDir and returns
// its manifest. Existing files are only replaced when force is set.
func Restore(_ context.Context, archivePath, destDir string, force bool) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	defer gr.Close()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating %s: %w", destDir, err)
	}

	var m *Manifest
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := safeName(hdr.Name)
		if err != nil {
			return nil, err
		}

		if name == ManifestName {
			m = &Manifest{}
			if err := yaml.NewDecoder(tr).Decode(m); err != nil {
				return nil, fmt.Errorf("decoding manifest: %w", err)
			}
			continue
		}
		if err := extractFile(tr, filepath.Join(destDir, name), force); err != nil {
			return nil, err
		}
	}
	if m == nil {
		return nil, fmt.Errorf("%s: no %s, not a sportdesk backup", archivePath, ManifestName)
	}
	return m, nil
}

// checkpointWAL folds the WAL into dbPath on a connection of its own.
func checkpointWAL(ctx context.Context, dbPath string) error {
	db, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Checkpoint(ctx)
}

func writeManifest(tw *tar.Writer, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Name:    ManifestName,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: m.CreatedAt,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = tw.Write(data)
	return err
}

// addFileToTar adds a single file to the tar archive under the given name.
func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}

// safeName rejects entries that would escape the destination directory.
// Archives written by Backup are flat.
func safeName(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean != filepath.Base(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("backup: unsafe archive entry %q", name)
	}
	return clean, nil
}

func extractFile(r io.Reader, path string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	out, err := os.OpenFile(path, flags, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}
