// Package location defines the logical storage locations of the virtual file
// system and the fallback chain used to resolve each of them.
package location

import (
	"fmt"
	"strings"
)

// StorageLocation identifies a logical root.
type StorageLocation uint8

const (
	// None is the zero value and never a valid location.
	None StorageLocation = iota
	// Package is the read-only installed application package.
	Package
	// Engine is the read-only engine resources package.
	Engine
	// SaveData is the writable save data root.
	SaveData
	// Cache is the writable cache root.
	Cache
	// DLC is the writable downloadable content root, backed by the
	// package's DLC directory for content that was shipped with the install.
	DLC
	// Root is the unrestricted absolute root of the host filesystem.
	Root
)

// All lists every valid storage location in declaration order.
var All = []StorageLocation{Package, Engine, SaveData, Cache, DLC, Root}

// String returns a string representation of the location.
func (l StorageLocation) String() string {
	switch l {
	case Package:
		return "package"
	case Engine:
		return "engine"
	case SaveData:
		return "savedata"
	case Cache:
		return "cache"
	case DLC:
		return "dlc"
	case Root:
		return "root"
	case None:
		return "none"
	default:
		return fmt.Sprintf("location(%d)", uint8(l))
	}
}

// Parse returns the location named by s. Matching is case-insensitive and
// accepts the underscore-free spellings used in asset descriptors
// ("Package", "SaveData", "DLC", ...).
func Parse(s string) (StorageLocation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "package":
		return Package, nil
	case "engine", "engineresources", "chillisource":
		return Engine, nil
	case "savedata":
		return SaveData, nil
	case "cache":
		return Cache, nil
	case "dlc":
		return DLC, nil
	case "root":
		return Root, nil
	default:
		return None, fmt.Errorf("unknown storage location %q", s)
	}
}

// Valid reports whether l names a usable location.
func (l StorageLocation) Valid() bool {
	return l >= Package && l <= Root
}

// IsWritable reports whether files may be created, changed or removed in l.
func IsWritable(l StorageLocation) bool {
	switch l {
	case SaveData, Cache, DLC, Root:
		return true
	default:
		return false
	}
}

// IsPackage reports whether l is one of the read-only package locations.
func IsPackage(l StorageLocation) bool {
	return l == Package || l == Engine
}

// Layout describes how the install was packaged. It is fixed for the
// lifetime of a file system.
type Layout struct {
	// PackageArchived is true when the application package is a single zip
	// archive rather than a directory tree.
	PackageArchived bool

	// PackageDLCPath is the directory, relative to the package root, that
	// holds the DLC shipped with the install.
	PackageDLCPath string
}

// IsArchiveBacked reports whether content for l is read from inside the
// package archive.
func (lay Layout) IsArchiveBacked(l StorageLocation) bool {
	return lay.PackageArchived && IsPackage(l)
}

// Candidate is one step of a fallback chain.
type Candidate struct {
	// Location is the storage location whose root the candidate lives under.
	Location StorageLocation

	// ArchiveBacked is true when the candidate is looked up in the archive.
	ArchiveBacked bool

	// Prefix is prepended to the caller's relative path.
	Prefix string
}

// FallbackChain returns the ordered candidates to try for l.
//
// DLC prefers the downloaded cache over the copy shipped in the package.
// Package locations resolve to exactly one candidate, archive-backed when
// the package is archived. Writable locations never consult the archive.
func (lay Layout) FallbackChain(l StorageLocation) []Candidate {
	switch l {
	case DLC:
		return []Candidate{
			{Location: DLC},
			{Location: Package, ArchiveBacked: lay.IsArchiveBacked(Package), Prefix: lay.PackageDLCPath},
		}
	case Package, Engine:
		return []Candidate{{Location: l, ArchiveBacked: lay.IsArchiveBacked(l)}}
	case SaveData, Cache, Root:
		return []Candidate{{Location: l}}
	default:
		return nil
	}
}
