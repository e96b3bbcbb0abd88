package document

import (
	"log/slog"

	"github.com/netwrix/iworkcore/iwa"
	"google.golang.org/protobuf/proto"
)

// openOptions holds Open's functional-options configuration: there is no
// daemon/config-file surface at this layer (SPEC_FULL.md §10), only the
// registry a caller must supply to decode payloads, an optional logger,
// and a concurrency bound for .iwa reads.
type openOptions struct {
	registry    TypeRegistry
	logger      *slog.Logger
	concurrency int
}

func defaultOptions() openOptions {
	return openOptions{
		registry: noopRegistry{},
		logger:   slog.Default(),
	}
}

// Option configures Open.
type Option func(*openOptions)

// WithRegistry supplies the TypeRegistry used to decode payloads into
// concrete protobuf messages. Without one, every payload is treated as
// undecodable (logged and dropped), which is a valid but record-free way
// to open a package for metadata/kind inspection only.
func WithRegistry(registry TypeRegistry) Option {
	return func(o *openOptions) { o.registry = registry }
}

// WithLogger overrides the default slog.Logger used for the
// "logged and dropped" / "logged and skipped" non-fatal decode failures
// spec.md §4.4 and §4.7 call for.
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// WithConcurrency bounds how many .iwa entries are read and decompressed
// concurrently. 0 (the default) makes iwa.LoadAll bound it to
// runtime.GOMAXPROCS(0) itself; errgroup has no default limit of its own.
func WithConcurrency(n int) Option {
	return func(o *openOptions) { o.concurrency = n }
}

// noopRegistry never recognizes a payload; it lets Open succeed for
// callers who only want metadata and kind detection.
type noopRegistry struct{}

func (noopRegistry) Decode(iwa.Kind, uint32, []byte) (proto.Message, bool) {
	return nil, false
}
