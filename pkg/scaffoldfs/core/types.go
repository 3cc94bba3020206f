package core

import "io/fs"

// OperationKind identifies a forward filesystem mutation recorded in the
// operation log.
type OperationKind string

const (
	// OpMakeDir creates a directory.
	OpMakeDir OperationKind = "mkdir"
	// OpCreateFile writes a new file.
	OpCreateFile OperationKind = "create_file"
	// OpChmod changes permission bits on an existing path.
	OpChmod OperationKind = "chmod"
	// OpChown changes ownership of an existing path.
	OpChown OperationKind = "chown"
)

// UndoKind identifies the inverse of a successfully applied operation.
type UndoKind string

const (
	// UndoRemoveTree removes a directory and everything beneath it.
	UndoRemoveTree UndoKind = "remove_tree"
	// UndoRemoveFile removes a single file.
	UndoRemoveFile UndoKind = "remove_file"
	// UndoRestoreMode restores the permission bits a chmod replaced.
	UndoRestoreMode UndoKind = "restore_mode"
	// UndoRestoreOwner restores the ownership a chown replaced.
	UndoRestoreOwner UndoKind = "restore_owner"
)

// MetadataLevel is the organizational tier a metadata file describes.
type MetadataLevel string

const (
	LevelNone      MetadataLevel = ""
	LevelWorkspace MetadataLevel = "workspace"
	LevelWorld     MetadataLevel = "world"
	LevelProject   MetadataLevel = "project"
	LevelStudy     MetadataLevel = "study"
)

// ParseMetadataLevel maps a level tag to its MetadataLevel. The empty string
// and "none" both mean no metadata file.
func ParseMetadataLevel(s string) (MetadataLevel, bool) {
	switch s {
	case "", "none":
		return LevelNone, true
	case "workspace":
		return LevelWorkspace, true
	case "world":
		return LevelWorld, true
	case "project":
		return LevelProject, true
	case "study":
		return LevelStudy, true
	}
	return LevelNone, false
}

func (l MetadataLevel) String() string {
	if l == LevelNone {
		return "none"
	}
	return string(l)
}

// Permission classes produced on disk (see the Enforcer). Integrity
// directories and their contents get the restricted class; everything else
// gets the default class.
const (
	DefaultDirMode     fs.FileMode = 0o755
	DefaultFileMode    fs.FileMode = 0o644
	RestrictedDirMode  fs.FileMode = 0o700
	RestrictedFileMode fs.FileMode = 0o600
)

// MetaDirName is the name of the restricted metadata subdirectory created
// next to a node's children when the node requires one.
const MetaDirName = ".meta"
