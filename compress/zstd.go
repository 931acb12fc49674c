package compress

// ZstdCodec wraps streams in the Zstandard format. The implementation is
// selected at build time: the default build uses the pure-Go
// klauspost/compress encoder, the "cgo_zstd" build tag switches to the
// libzstd binding for higher throughput.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

func (ZstdCodec) Name() string { return "zst" }
