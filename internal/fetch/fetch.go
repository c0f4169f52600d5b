// Package fetch downloads a world from a go-getter source (local path, HTTP
// archive, git, S3, ...) before a run.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"
)

const levelFile = "level.dat"

var (
	// ErrDestinationExists is returned when the download directory is taken.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrNoWorld is returned when the download holds no level.dat.
	ErrNoWorld = errors.New("no world found in download")
)

// World downloads src into dst and returns the directory holding level.dat:
// dst itself or one of its immediate subdirectories, since archives usually
// wrap the world in a folder.
func World(ctx context.Context, src, dst string, log *slog.Logger) (string, error) {
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	log.Info("downloading world", "source", src, "dest", dst)
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeDir,
	}
	if err := client.Get(); err != nil {
		return "", fmt.Errorf("download %s: %w", src, err)
	}

	dir, err := findWorld(dst)
	if err != nil {
		return "", err
	}
	log.Info("downloaded world", "dir", dir)
	return dir, nil
}

func findWorld(dir string) (string, error) {
	if isWorld(dir) {
		return dir, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		sub := filepath.Join(dir, e.Name())
		if e.IsDir() && isWorld(sub) {
			return sub, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoWorld, dir)
}

func isWorld(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, levelFile))
	return err == nil && info.Mode().IsRegular()
}
