package stream

import "errors"

var (
	// ErrFileNotFound is returned when the input file does not exist.
	ErrFileNotFound = errors.New("stream: file not found")
	// ErrEmptyFile is returned when the input has no header line.
	ErrEmptyFile = errors.New("stream: empty file")
	// ErrDecompression is returned when the decompression stream fails.
	ErrDecompression = errors.New("stream: decompression failed")
	// ErrParse is returned when a chunk fails to parse.
	ErrParse = errors.New("stream: parse failed")
	// ErrUnsupportedFormat is returned when the file is not a delimited
	// text format.
	ErrUnsupportedFormat = errors.New("stream: unsupported file format")
)
