// Package iwa parses a decompressed IWA byte stream into a record map,
// implementing the two-pass merge protocol described in spec.md §4.4, and
// orchestrates concurrent loading of every .iwa entry in a package.
package iwa

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/netwrix/iworkcore/container"
	"github.com/netwrix/iworkcore/snappy"
	"github.com/netwrix/iworkcore/wire"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
)

// InvalidArchiveStructureError is fatal to a document load: the buffer
// did not frame as a well-formed sequence of
// {length-prefixed ArchiveInfo, declared payloads} blocks.
type InvalidArchiveStructureError struct {
	Reason string
}

func (e *InvalidArchiveStructureError) Error() string {
	return fmt.Sprintf("iwa: invalid archive structure: %s", e.Reason)
}

type block struct {
	ai       archiveInfo
	payloads [][]byte
}

// readBlocks walks a decompressed IWA buffer once, materializing every
// {ArchiveInfo, payloads} block. Both merge-protocol passes replay this
// same slice rather than re-parsing, since the underlying bytes never
// change between passes.
func readBlocks(data []byte) ([]block, error) {
	r := wire.NewReader(data)
	var blocks []block
	for !r.Done() {
		header, err := r.ReadLengthDelimited()
		if err != nil {
			return nil, &InvalidArchiveStructureError{Reason: fmt.Sprintf("reading ArchiveInfo header: %v", err)}
		}
		ai, err := parseArchiveInfo(header)
		if err != nil {
			return nil, &InvalidArchiveStructureError{Reason: fmt.Sprintf("parsing ArchiveInfo: %v", err)}
		}

		payloads := make([][]byte, len(ai.messageInfos))
		for i, mi := range ai.messageInfos {
			if !mi.hasLen {
				return nil, &InvalidArchiveStructureError{Reason: "MessageInfo missing length"}
			}
			b, err := r.ReadBytes(int(mi.length))
			if err != nil {
				return nil, &InvalidArchiveStructureError{Reason: fmt.Sprintf("reading payload: %v", err)}
			}
			payloads[i] = b
		}
		blocks = append(blocks, block{ai: ai, payloads: payloads})
	}
	return blocks, nil
}

// Load runs the two-pass merge protocol over one decompressed IWA buffer,
// writing decoded records into records. records is mutated in place so
// that LoadAll can share one map across every file in a package, each
// replaying its own two passes in turn (spec.md §9's canonicalized
// per-file ordering).
func Load(data []byte, kind Kind, registry TypeRegistry, records RecordMap, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	blocks, err := readBlocks(data)
	if err != nil {
		return err
	}

	// Pass 1 — non-merging: base records overwrite any prior value.
	for _, blk := range blocks {
		if blk.ai.shouldMerge || !blk.ai.hasIdentifier {
			continue
		}
		for i, mi := range blk.ai.messageInfos {
			if !mi.hasType {
				continue
			}
			msg, ok := registry.Decode(kind, mi.typ, blk.payloads[i])
			if !ok {
				logger.Warn("dropping undecodable record", "identifier", blk.ai.identifier, "type", mi.typ)
				continue
			}
			records[blk.ai.identifier] = Record{Identifier: blk.ai.identifier, TypeTag: mi.typ, Value: msg}
		}
	}

	// Pass 2 — merging: apply deltas onto whatever pass 1 established.
	for _, blk := range blocks {
		if !blk.ai.shouldMerge || !blk.ai.hasIdentifier {
			continue
		}
		id := blk.ai.identifier
		for i, mi := range blk.ai.messageInfos {
			if !mi.hasType {
				continue
			}
			payload := blk.payloads[i]
			existing, has := records[id]
			if !has {
				msg, ok := registry.Decode(kind, mi.typ, payload)
				if !ok {
					logger.Warn("dropping unmergeable record with no base value", "identifier", id, "type", mi.typ)
					continue
				}
				records[id] = Record{Identifier: id, TypeTag: mi.typ, Value: msg}
				continue
			}
			delta, ok := registry.Decode(kind, mi.typ, payload)
			if !ok {
				logger.Warn("skipping unmergeable payload, keeping prior value", "identifier", id, "type", mi.typ)
				continue
			}
			if err := mergeInto(existing.Value, delta); err != nil {
				logger.Warn("merge failed, keeping prior value", "identifier", id, "type", mi.typ, "error", err)
				continue
			}
		}
	}
	return nil
}

// mergeInto applies proto.Merge(dst, src), refusing (rather than
// panicking, which proto.Merge does on a type mismatch) to merge two
// differently-typed messages.
func mergeInto(dst, src proto.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iwa: recovered from merge panic: %v", r)
		}
	}()
	dstName := dst.ProtoReflect().Descriptor().FullName()
	srcName := src.ProtoReflect().Descriptor().FullName()
	if dstName != srcName {
		return fmt.Errorf("iwa: cannot merge %s into %s", srcName, dstName)
	}
	proto.Merge(dst, src)
	return nil
}

// LoadAll reads every .iwa entry under indexSuffix from store, decompresses
// each with the framed Snappy codec, and loads it into a single shared
// RecordMap. Reads happen concurrently (bounded by maxConcurrency; 0 or
// less means runtime.GOMAXPROCS(0)) since they're the only blocking step
// (spec.md §5); the two-pass merge walk over each file's decompressed
// bytes is then replayed sequentially in store.List's stable
// lexicographic order.
func LoadAll(ctx context.Context, store container.Store, indexSuffix string, kind Kind, registry TypeRegistry, logger *slog.Logger, maxConcurrency int) (RecordMap, error) {
	paths, err := store.List(indexSuffix)
	if err != nil {
		return nil, err
	}

	decompressed := make([][]byte, len(paths))
	g, _ := errgroup.WithContext(ctx)
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(maxConcurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			raw, err := store.Read(path)
			if err != nil {
				return err
			}
			decoded, err := snappy.DecompressFramed(raw)
			if err != nil {
				return fmt.Errorf("iwa: decompressing %s: %w", path, err)
			}
			decompressed[i] = decoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make(RecordMap)
	for i := range paths {
		if err := Load(decompressed[i], kind, registry, records, logger); err != nil {
			return nil, fmt.Errorf("iwa: loading %s: %w", paths[i], err)
		}
	}
	return records, nil
}
