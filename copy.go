package vfs

import (
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/vfs/internal/archive"
	"github.com/meigma/vfs/internal/disk"
	"github.com/meigma/vfs/internal/pathutil"
)

// CopyFile copies srcPath in srcLoc to dstPath in the writable location
// dstLoc, replacing any existing file. Files inside the package archive are
// decompressed and written to disk.
//
// CopyFile panics if dstLoc is not writable.
func (f *FileSystem) CopyFile(srcLoc StorageLocation, srcPath string, dstLoc StorageLocation, dstPath string) error {
	mustBeValid("CopyFile", srcLoc)
	dst, dstRel, err := f.writableRoot("CopyFile", dstLoc, dstPath)
	if err != nil {
		return err
	}

	c, e, ok := f.findFile(srcLoc, srcPath)
	if !ok {
		return notExist("copy", srcPath)
	}
	if c.ArchiveBacked {
		content, err := f.readArchived(e)
		if err != nil {
			return fmt.Errorf("copy %s: %w", srcPath, err)
		}
		return dst.WriteFile(dstRel, content)
	}
	return copyDiskFile(f.rootFor(c.Location), c.Path, dst, dstRel)
}

// copyDiskFile streams a file between two disk roots.
func copyDiskFile(src *disk.Root, srcRel string, dst *disk.Root, dstRel string) error {
	in, err := src.Open(srcRel)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := dst.Create(dstRel)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Discard() //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("copy %s: %w", srcRel, err)
	}
	return out.Commit()
}

// copyBatchBytes bounds how much archive content CopyDirectory reads under
// one hold of the archive lock before writing it out.
const copyBatchBytes = 16 << 20

type archiveCopy struct {
	pos  archive.Position
	size uint64
	dest string
}

// archiveBatches splits jobs into runs whose declared sizes total at most
// budget. A file larger than budget gets a batch of its own.
func archiveBatches(jobs []archiveCopy, budget uint64) [][]archiveCopy {
	var (
		out   [][]archiveCopy
		start int
		total uint64
	)
	for i, j := range jobs {
		if i > start && total+j.size > budget {
			out = append(out, jobs[start:i])
			start, total = i, 0
		}
		total += j.size
	}
	if start < len(jobs) {
		out = append(out, jobs[start:])
	}
	return out
}

// CopyDirectory copies every file below srcDir in srcLoc to dstDir in the
// writable location dstLoc, preserving relative paths.
//
// The source listing is the same union GetFilePaths returns, and each file
// is taken from the first candidate that holds it. Files from the package
// archive are read in batches under the archive lock and written after it
// is released; disk files are copied in parallel.
// The destination directory is created even when the source is empty, and
// subdirectories are created as files are written into them.
//
// CopyDirectory panics if dstLoc is not writable.
func (f *FileSystem) CopyDirectory(srcLoc StorageLocation, srcDir string, dstLoc StorageLocation, dstDir string) error {
	mustBeValid("CopyDirectory", srcLoc)
	dst, dstRel, err := f.writableRoot("CopyDirectory", dstLoc, dstDir)
	if err != nil {
		return err
	}
	if !f.DirectoryExists(srcLoc, srcDir) {
		return notExist("copy", srcDir)
	}

	files, err := f.GetFilePaths(srcLoc, srcDir, true)
	if err != nil {
		return err
	}
	if err := dst.MkdirPath(dstRel); err != nil {
		return err
	}

	type diskCopy struct {
		root      *disk.Root
		src, dest string
	}
	var (
		archived []archiveCopy
		onDisk   []diskCopy
	)
	for _, rel := range files {
		c, e, ok := f.findFile(srcLoc, pathutil.Join(srcDir, rel))
		if !ok {
			continue
		}
		dest := pathutil.Join(dstRel, rel)
		if c.ArchiveBacked {
			archived = append(archived, archiveCopy{pos: e.Position, size: e.Size, dest: dest})
			continue
		}
		onDisk = append(onDisk, diskCopy{root: f.rootFor(c.Location), src: c.Path, dest: dest})
	}

	f.log().Debug("copying directory",
		"source", srcDir,
		"destination", dstDir,
		"archived", len(archived),
		"disk", len(onDisk))

	for _, batch := range archiveBatches(archived, copyBatchBytes) {
		positions := make([]archive.Position, len(batch))
		for i, j := range batch {
			positions[i] = j.pos
		}
		contents, err := f.session.ReadBatch(positions)
		if err != nil {
			return fmt.Errorf("copy %s: %w", srcDir, err)
		}
		for i, j := range batch {
			if err := dst.WriteFile(j.dest, contents[i]); err != nil {
				return err
			}
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(max(f.copyWorkers, 1))
	for _, job := range onDisk {
		g.Go(func() error {
			return copyDiskFile(job.root, job.src, dst, job.dest)
		})
	}
	return g.Wait()
}
