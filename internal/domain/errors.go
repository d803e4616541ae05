package domain

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Domain errors.
var (
	// ErrSourceRead is returned when a file cannot be read or a URL cannot be fetched.
	ErrSourceRead = errors.New("source could not be read")

	// ErrUnsupportedFile is returned for local files that are not .json files.
	ErrUnsupportedFile = errors.New("not a JSON file")

	// ErrJSONParse is returned when source content is not valid JSON.
	ErrJSONParse = errors.New("JSON format error")

	// ErrNotArray is returned when the top-level JSON value is not an array.
	ErrNotArray = errors.New("JSON format error: top-level value is not an array")

	// ErrNoSources is returned when a load is requested with no sources at all.
	ErrNoSources = errors.New("no sources given")

	// ErrNoUsableSource is returned when every source in a batch failed.
	ErrNoUsableSource = errors.New("all sources failed to load")

	// ErrInvalidURL is returned for source URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid source URL")

	// ErrFetchTimeout is returned when the global fetch budget for a URL runs out.
	ErrFetchTimeout = errors.New("request timed out")

	// ErrFetchFailed is returned when every candidate URL failed.
	ErrFetchFailed = errors.New("all candidate URLs failed")

	// ErrTweetNotFound is returned when a tweet is not in the working set.
	ErrTweetNotFound = errors.New("tweet not found")

	// ErrRecentNotFound is returned when a recent-source entry does not exist.
	ErrRecentNotFound = errors.New("recent source not found")
)

// ErrorKind classifies a per-source failure so the presentation layer can
// choose between a "malformed data" notice and a generic "couldn't load" one.
type ErrorKind string

const (
	ErrorKindRead  ErrorKind = "read"
	ErrorKindParse ErrorKind = "parse"
	ErrorKindShape ErrorKind = "shape"
)

// IsJSONFormat returns true for the kinds that mean the data itself is malformed.
func (k ErrorKind) IsJSONFormat() bool {
	return k == ErrorKindParse || k == ErrorKindShape
}

// SourceKind is the origin type of a source.
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceURL  SourceKind = "url"
)

// Source is one input to a load: a local file path or a remote URL.
type Source struct {
	Kind     SourceKind `json:"kind"`
	Location string     `json:"location"`
}

// Name returns a short label for the source: the base name for files and
// the full location for URLs.
func (s Source) Name() string {
	if s.Kind == SourceFile {
		return filepath.Base(s.Location)
	}
	return s.Location
}

// SourceError wraps an error with the source it came from.
type SourceError struct {
	Index  int // zero-based position in the batch
	Source Source
	Kind   ErrorKind
	Err    error
}

func (e *SourceError) Error() string {
	label := "File"
	if e.Source.Kind == SourceURL {
		label = "URL"
	}
	return fmt.Sprintf("%s %d (%s): %s", label, e.Index+1, e.Source.Name(), e.Err.Error())
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a SourceError, deriving the kind from err.
func NewSourceError(index int, src Source, err error) *SourceError {
	return &SourceError{
		Index:  index,
		Source: src,
		Kind:   KindOf(err),
		Err:    err,
	}
}

// KindOf classifies err into an ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotArray):
		return ErrorKindShape
	case errors.Is(err, ErrJSONParse):
		return ErrorKindParse
	default:
		return ErrorKindRead
	}
}

// IsJSONFormatError reports whether err is a parse or shape failure.
func IsJSONFormatError(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind.IsJSONFormat()
	}
	return KindOf(err).IsJSONFormat()
}
