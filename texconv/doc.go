// Package texconv converts caller-owned pixel buffers into GPU-native tiled
// texture blobs.
//
// Two target formats are produced, both organized in 4x4 texel tiles with
// texels row-major inside a tile and tiles row-major across the padded
// texture:
//
//   - [RGBA8]: 64 bytes per tile. The first 32 bytes hold sixteen A,R byte
//     pairs, the last 32 bytes hold the matching G,B pairs.
//   - [RGB5A3]: 32 bytes per tile, sixteen big-endian 16-bit texels. A texel
//     with the top bit set is opaque RGB555; otherwise it is A3 R4 G4 B4.
//
// Texture dimensions are rounded up to a multiple of four. Texels that fall
// in the padding are transparent black.
//
// # Source formats
//
//	ARGB32, RGB32           -> RGBA8
//	Palette16, PaletteA16   -> RGB5A3
//	Indexed8, IndexedA8     -> RGB5A3
//	RGB15                   -> RGB5A3
//	YUY16                   -> RGBA8
//
// Source words are little-endian. Palettes hold 0xAARRGGBB entries.
//
// Backends that cannot sample tiled data directly use [Untile] to obtain a
// straight-alpha [image.NRGBA].
package texconv
