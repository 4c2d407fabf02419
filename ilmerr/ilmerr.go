// Package ilmerr defines the error taxonomy shared by every ilmenite package.
//
// Errors carry a Source (the subsystem that raised them) and a Kind (the
// failure category). Collaborator failures — file I/O, table parsing — flow
// in with their own Source; the only Kind values raised inside the core
// subsystems themselves are UnimplementedDataType, MissingGlyph, and Other.
package ilmerr

import "fmt"

// Source identifies the subsystem that produced an Error.
type Source int

const (
	SourceUnknown Source = iota
	SourceFile
	SourceCmap
	SourceGlyf
	SourceHmtx
	SourceHead
	SourceHhea
	SourceOutline
	SourceRasterizer
	SourceCache
	SourceShaper
	SourceRegistry
)

func (s Source) String() string {
	switch s {
	case SourceFile:
		return "file"
	case SourceCmap:
		return "cmap"
	case SourceGlyf:
		return "glyf"
	case SourceHmtx:
		return "hmtx"
	case SourceHead:
		return "head"
	case SourceHhea:
		return "hhea"
	case SourceOutline:
		return "outline"
	case SourceRasterizer:
		return "rasterizer"
	case SourceCache:
		return "cache"
	case SourceShaper:
		return "shaper"
	case SourceRegistry:
		return "registry"
	default:
		return "unknown"
	}
}

// Kind categorizes the failure.
type Kind int

const (
	KindOther Kind = iota
	KindFileRead
	KindFileBadVersion
	KindFileBadOffset
	KindFileMissingTable
	KindFileMissingSubTable
	KindMissingIndex
	KindMissingGlyph
	KindMissingFont
	KindUnimplementedDataType
)

func (k Kind) String() string {
	switch k {
	case KindFileRead:
		return "file-read"
	case KindFileBadVersion:
		return "file-bad-version"
	case KindFileBadOffset:
		return "file-bad-offset"
	case KindFileMissingTable:
		return "file-missing-table"
	case KindFileMissingSubTable:
		return "file-missing-subtable"
	case KindMissingIndex:
		return "missing-index"
	case KindMissingGlyph:
		return "missing-glyph"
	case KindMissingFont:
		return "missing-font"
	case KindUnimplementedDataType:
		return "unimplemented-data-type"
	default:
		return "other"
	}
}

// Error is the concrete error type returned by every ilmenite package.
type Error struct {
	Src     Source
	Kind    Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ilmenite: %s: %s: %s", e.Src, e.Kind, e.Message)
	}
	return fmt.Sprintf("ilmenite: %s: %s", e.Src, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// New builds an Error from a source and kind with no further detail.
func New(src Source, kind Kind) *Error {
	return &Error{Src: src, Kind: kind}
}

// Newf builds an Error with a formatted message (Kind is always KindOther).
func Newf(src Source, format string, args ...any) *Error {
	return &Error{Src: src, Kind: KindOther, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches src/kind to an underlying error, preserving it for errors.Is/As.
func Wrap(src Source, kind Kind, err error) *Error {
	return &Error{Src: src, Kind: kind, Wrapped: err}
}

// Is reports whether target has the same Source and Kind, the usual meaning
// callers want out of errors.Is(err, ilmerr.New(ilmerr.SourceGlyf, ilmerr.KindMissingGlyph)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Src == t.Src && e.Kind == t.Kind
}
