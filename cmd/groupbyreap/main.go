// Command groupbyreap is the "external means" of cleanup spec §5 invites
// for a DiskResultIterator abandoned before exhaustion: it scans a base
// directory for request_* workspaces, archives any remaining dump files
// into a single LZ4-compressed file for audit purposes, and removes the
// workspace. It never runs inside a live GroupBy call.
//
// Grounded on the teacher's internal/indexer/sorter.go flushChunk, which
// wraps each chunk file's writer in lz4.NewWriter(file); this tool adapts
// that idiom from "compress the hot spill-write path" (not done here — see
// SPEC_FULL.md §4.1) to "compress an already-finished, abandoned
// workspace before archiving it."
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pierrec/lz4/v4"
)

func main() {
	baseDir := flag.String("base", os.TempDir(), "directory to scan for request_* workspaces")
	olderThan := flag.Duration("older-than", time.Hour, "only reap workspaces whose newest file is older than this")
	dryRun := flag.Bool("dry-run", false, "list what would be reaped without touching anything")
	flag.Parse()

	entries, err := os.ReadDir(*baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read base dir %s: %v\n", *baseDir, err)
		os.Exit(1)
	}

	cutoff := time.Now().Add(-*olderThan)
	reaped := 0

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "request_") {
			continue
		}
		workspace := filepath.Join(*baseDir, entry.Name())

		newest, err := newestModTime(workspace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", workspace, err)
			continue
		}
		if newest.After(cutoff) {
			continue
		}

		if *dryRun {
			fmt.Printf("would reap %s (last modified %s)\n", workspace, newest)
			continue
		}

		archivePath := workspace + ".lz4"
		if err := archiveWorkspace(workspace, archivePath); err != nil {
			fmt.Fprintf(os.Stderr, "archive %s: %v\n", workspace, err)
			continue
		}
		if err := os.RemoveAll(workspace); err != nil {
			fmt.Fprintf(os.Stderr, "remove %s: %v\n", workspace, err)
			continue
		}
		fmt.Printf("reaped %s -> %s\n", workspace, archivePath)
		reaped++
	}

	fmt.Printf("reaped %d abandoned workspace(s)\n", reaped)
}

func newestModTime(dir string) (time.Time, error) {
	var newest time.Time
	entries, err := os.ReadDir(dir)
	if err != nil {
		return newest, err
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest, nil
}

// archiveWorkspace writes every regular file in workspace into a single
// LZ4-compressed archive: a flat sequence of (name length, name, content
// length, content) records, encoding/binary big-endian, inside one
// lz4.Writer stream — the same length-prefixed-record idiom the teacher
// uses in internal/common/common.go for its fixed-width index records,
// generalized to variable-length named entries since this archive has no
// fixed schema.
func archiveWorkspace(workspace, archivePath string) error {
	entries, err := os.ReadDir(workspace)
	if err != nil {
		return err
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := lz4.NewWriter(out)
	defer zw.Close()

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := appendEntry(zw, filepath.Join(workspace, e.Name()), e.Name()); err != nil {
			return fmt.Errorf("append %s: %w", e.Name(), err)
		}
	}

	return zw.Close()
}

func appendEntry(w io.Writer, path, name string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(name)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name); err != nil {
		return err
	}

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(content)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
