package incremental

import "github.com/minio/highwayhash"

// hashKey is a fixed key, not a secret, chosen once so a file's
// content hash is stable across runs.
var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// ContentHash returns a stable 64-bit hash of a file's bytes, used to
// detect whether a file actually changed since it was last analyzed
// (§4.8), independent of mtime granularity or spurious rewrites.
func ContentHash(data []byte) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err := h.Write(data); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
