package index

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"

	"crateindex/internal/errs"
)

// Wire field numbers for the hand-rolled protobuf encoding. There is no
// .proto schema behind this — the index's shape is internal and never
// crosses a service boundary — but the wire format itself is real
// protobuf (varint + length-delimited fields via protowire), so the
// on-disk bytes are exactly what a generated message of this shape
// would produce.
const (
	fieldCrate     = 1
	fieldExports   = 2 // repeated within a crate message, one per exported symbol
	fieldKind      = 1 // within an export entry: 0=function,1=type,2=trait
	fieldName      = 2
	fieldQualified = 3
	fieldFile      = 4
	fieldLine      = 5
)

const (
	kindFunction = 0
	kindType     = 1
	kindTrait    = 2
)

// Encode serializes idx to its protobuf wire-format bytes.
func Encode(idx *GlobalSymbolIndex) []byte {
	var out []byte
	for crate, ce := range idx.Exports {
		var crateMsg []byte
		crateMsg = protowire.AppendTag(crateMsg, fieldCrate, protowire.BytesType)
		crateMsg = protowire.AppendString(crateMsg, crate)

		appendEntry := func(kind int, name string, loc Location) {
			var entry []byte
			entry = protowire.AppendTag(entry, fieldKind, protowire.VarintType)
			entry = protowire.AppendVarint(entry, uint64(kind))
			entry = protowire.AppendTag(entry, fieldName, protowire.BytesType)
			entry = protowire.AppendString(entry, name)
			entry = protowire.AppendTag(entry, fieldQualified, protowire.BytesType)
			entry = protowire.AppendString(entry, loc.QualifiedName)
			entry = protowire.AppendTag(entry, fieldFile, protowire.BytesType)
			entry = protowire.AppendString(entry, loc.File)
			entry = protowire.AppendTag(entry, fieldLine, protowire.VarintType)
			entry = protowire.AppendVarint(entry, uint64(loc.Line))

			crateMsg = protowire.AppendTag(crateMsg, fieldExports, protowire.BytesType)
			crateMsg = protowire.AppendBytes(crateMsg, entry)
		}
		for name, loc := range ce.Functions {
			appendEntry(kindFunction, name, loc)
		}
		for name, loc := range ce.Types {
			appendEntry(kindType, name, loc)
		}
		for name, loc := range ce.Traits {
			appendEntry(kindTrait, name, loc)
		}

		out = protowire.AppendTag(out, fieldCrate, protowire.BytesType)
		out = protowire.AppendBytes(out, crateMsg)
	}
	return out
}

// Decode parses bytes produced by Encode back into an index. Any
// malformed input is reported as errs.IndexCacheError so callers can
// treat it as a corrupt cache and rebuild silently (§4.5, §7).
func Decode(data []byte) (*GlobalSymbolIndex, error) {
	idx := New()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad top-level tag", errs.IndexCacheError)
		}
		data = data[n:]
		if num != fieldCrate || typ != protowire.BytesType {
			return nil, fmt.Errorf("%w: unexpected top-level field %d", errs.IndexCacheError, num)
		}
		crateMsg, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad crate message", errs.IndexCacheError)
		}
		data = data[n:]

		crate, ce, err := decodeCrateMessage(crateMsg)
		if err != nil {
			return nil, err
		}
		idx.Exports[crate] = ce
	}
	return idx, nil
}

func decodeCrateMessage(data []byte) (string, CrateExports, error) {
	crate := ""
	ce := newCrateExports()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", ce, fmt.Errorf("%w: bad crate field tag", errs.IndexCacheError)
		}
		data = data[n:]
		switch {
		case num == fieldCrate && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", ce, fmt.Errorf("%w: bad crate name", errs.IndexCacheError)
			}
			data = data[n:]
			crate = s
		case num == fieldExports && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return "", ce, fmt.Errorf("%w: bad export entry", errs.IndexCacheError)
			}
			data = data[n:]
			if err := decodeEntry(entry, &ce); err != nil {
				return "", ce, err
			}
		default:
			return "", ce, fmt.Errorf("%w: unexpected crate field %d", errs.IndexCacheError, num)
		}
	}
	for _, m := range []map[string]Location{ce.Functions, ce.Types, ce.Traits} {
		for name, loc := range m {
			loc.Crate = crate
			m[name] = loc
		}
	}
	return crate, ce, nil
}

func decodeEntry(data []byte, ce *CrateExports) error {
	var kind uint64
	var name, qualified, file string
	var line uint64
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: bad entry field tag", errs.IndexCacheError)
		}
		data = data[n:]
		switch num {
		case fieldKind:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("%w: bad kind", errs.IndexCacheError)
			}
			data = data[n:]
			kind = v
		case fieldName:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("%w: bad name", errs.IndexCacheError)
			}
			data = data[n:]
			name = s
		case fieldQualified:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("%w: bad qualified name", errs.IndexCacheError)
			}
			data = data[n:]
			qualified = s
		case fieldFile:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("%w: bad file", errs.IndexCacheError)
			}
			data = data[n:]
			file = s
		case fieldLine:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("%w: bad line", errs.IndexCacheError)
			}
			data = data[n:]
			line = v
		default:
			return fmt.Errorf("%w: unexpected entry field %d", errs.IndexCacheError, num)
		}
		_ = typ
	}
	loc := Location{QualifiedName: qualified, File: file, Line: int(line)}
	switch kind {
	case kindFunction:
		ce.Functions[name] = loc
	case kindType:
		ce.Types[name] = loc
	case kindTrait:
		ce.Traits[name] = loc
	default:
		return fmt.Errorf("%w: unknown entry kind %d", errs.IndexCacheError, kind)
	}
	return nil
}

// SaveCompressed zstd-compresses the encoded index and writes it to path.
func SaveCompressed(idx *GlobalSymbolIndex, path string) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("%w: zstd writer: %v", errs.IndexCacheError, err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(Encode(idx), nil)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", errs.IndexCacheError, err)
	}
	return os.WriteFile(path, compressed, 0o644)
}

// LoadCompressed reads and decodes a cache file written by SaveCompressed.
func LoadCompressed(path string) (*GlobalSymbolIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.IndexCacheError, err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd reader: %v", errs.IndexCacheError, err)
	}
	defer dec.Close()
	data, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decode: %v", errs.IndexCacheError, err)
	}
	return Decode(data)
}

// DefaultCachePath is the conventional on-disk location for a
// workspace's index cache, relative to the workspace root.
func DefaultCachePath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, "target", "crateindex", "symbol-index.zst")
}

// IsCacheValid implements the freshness invariant: the cache is valid
// only if its mtime is strictly after every manifest's mtime (§3.2.7).
// A missing cache, or a missing manifest, is never valid.
func IsCacheValid(cachePath string, manifestPaths []string) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	for _, m := range manifestPaths {
		info, err := os.Stat(m)
		if err != nil {
			return false
		}
		if !cacheInfo.ModTime().After(info.ModTime()) {
			return false
		}
	}
	return true
}

// TryLoadFromCache loads the index from path only if it is fresh
// relative to manifestPaths; any load or decode failure — a corrupt
// cache, a truncated write — is treated the same as a cold cache: the
// caller rebuilds from scratch rather than erroring (§4.5, §7).
func TryLoadFromCache(path string, manifestPaths []string) (*GlobalSymbolIndex, bool) {
	if !IsCacheValid(path, manifestPaths) {
		return nil, false
	}
	idx, err := LoadCompressed(path)
	if err != nil {
		return nil, false
	}
	return idx, true
}

// SaveToCache is the write-side counterpart used after a fresh build;
// it stamps the file's mtime to now so subsequent IsCacheValid checks
// compare against a time strictly after this build started.
func SaveToCache(idx *GlobalSymbolIndex, path string) error {
	if err := SaveCompressed(idx, path); err != nil {
		return err
	}
	now := time.Now()
	return os.Chtimes(path, now, now)
}
