package geotiff

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/ironsheep/terrace-extractor/internal/geo"
)

const (
	compressionNone    = 1
	compressionDeflate = 8
	rowsPerStrip       = 64
)

// Options control how a raster is written.
type Options struct {
	// Transform and CRS are embedded as GeoTIFF tags. A zero Transform
	// writes a plain TIFF; an unknown CRS omits the CRS keys.
	Transform geo.Transform
	CRS       geo.CRS

	// Deflate compresses strips with zlib (TIFF compression 8).
	Deflate bool
}

// WriteFile encodes a single-band 8-bit raster to path.
func WriteFile(path string, m *image.Gray, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, m, opts); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

type field struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// Encode writes m as a little-endian, strip-organised GeoTIFF.
func Encode(w io.Writer, m *image.Gray, opts Options) error {
	b := m.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return fmt.Errorf("cannot encode empty raster")
	}

	strips, err := encodeStrips(m, opts.Deflate)
	if err != nil {
		return err
	}

	order := binary.LittleEndian
	compression := uint16(compressionNone)
	if opts.Deflate {
		compression = compressionDeflate
	}

	fields := []field{
		longField(tagImageWidth, uint32(width)),
		longField(tagImageLength, uint32(height)),
		shortField(tagBitsPerSample, 8),
		shortField(tagCompression, compression),
		shortField(tagPhotometric, 1),
		shortField(tagSamplesPerPixel, 1),
		longField(tagRowsPerStrip, rowsPerStrip),
		shortField(tagPlanarConfiguration, 1),
		shortField(tagSampleFormat, 1),
		// Offsets are patched once the layout is known.
		{tag: tagStripOffsets, typ: typeLong, count: uint32(len(strips)), data: make([]byte, 4*len(strips))},
		{tag: tagStripByteCounts, typ: typeLong, count: uint32(len(strips)), data: make([]byte, 4*len(strips))},
	}
	if !opts.Transform.IsZero() {
		fields = append(fields, geoFields(opts.Transform, opts.CRS)...)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	for i, s := range strips {
		order.PutUint32(findField(fields, tagStripByteCounts).data[4*i:], uint32(len(s)))
	}

	// Layout: header, IFD, out-of-line field data, strips.
	const headerSize = 8
	ifdSize := 2 + 12*len(fields) + 4
	offset := headerSize + ifdSize
	dataOffsets := make([]int, len(fields))
	for i, f := range fields {
		if len(f.data) > 4 {
			offset += offset & 1
			dataOffsets[i] = offset
			offset += len(f.data)
		}
	}
	offsets := findField(fields, tagStripOffsets).data
	for i, s := range strips {
		order.PutUint32(offsets[4*i:], uint32(offset))
		offset += len(s)
	}
	if offset > math.MaxUint32 {
		return fmt.Errorf("raster too large for classic TIFF (%d bytes)", offset)
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, order, uint16(42))
	_ = binary.Write(&buf, order, uint32(headerSize))

	_ = binary.Write(&buf, order, uint16(len(fields)))
	for i, f := range fields {
		_ = binary.Write(&buf, order, f.tag)
		_ = binary.Write(&buf, order, f.typ)
		_ = binary.Write(&buf, order, f.count)
		if len(f.data) > 4 {
			_ = binary.Write(&buf, order, uint32(dataOffsets[i]))
		} else {
			var inline [4]byte
			copy(inline[:], f.data)
			buf.Write(inline[:])
		}
	}
	_ = binary.Write(&buf, order, uint32(0))

	for i, f := range fields {
		if len(f.data) > 4 {
			for buf.Len() < dataOffsets[i] {
				buf.WriteByte(0)
			}
			buf.Write(f.data)
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write TIFF header: %w", err)
	}
	for _, s := range strips {
		if _, err := w.Write(s); err != nil {
			return fmt.Errorf("failed to write TIFF strip: %w", err)
		}
	}
	return nil
}

func encodeStrips(m *image.Gray, deflate bool) ([][]byte, error) {
	b := m.Bounds()
	width, height := b.Dx(), b.Dy()

	var strips [][]byte
	for y0 := 0; y0 < height; y0 += rowsPerStrip {
		y1 := min(y0+rowsPerStrip, height)
		raw := make([]byte, 0, width*(y1-y0))
		for y := y0; y < y1; y++ {
			start := m.PixOffset(b.Min.X, b.Min.Y+y)
			raw = append(raw, m.Pix[start:start+width]...)
		}
		if !deflate {
			strips = append(strips, raw)
			continue
		}

		var zb bytes.Buffer
		zw := zlib.NewWriter(&zb)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("failed to compress strip: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to compress strip: %w", err)
		}
		strips = append(strips, zb.Bytes())
	}
	return strips, nil
}

func geoFields(t geo.Transform, crs geo.CRS) []field {
	var fields []field
	if t.IsNorthUp() && t.A > 0 && t.E < 0 {
		fields = append(fields,
			doubleField(tagModelPixelScale, t.A, -t.E, 0),
			doubleField(tagModelTiepoint, 0, 0, 0, t.C, t.F, 0),
		)
	} else {
		fields = append(fields, doubleField(tagModelTransformation,
			t.A, t.B, 0, t.C,
			t.D, t.E, 0, t.F,
			0, 0, 0, 0,
			0, 0, 0, 1,
		))
	}

	keys := [][2]uint16{{keyGTRasterType, rasterPixelIsArea}}
	if crs.Known() && crs.EPSG <= math.MaxUint16 {
		if crs.IsGeographic() {
			keys = append(keys, [2]uint16{keyGTModelType, modelTypeGeographic}, [2]uint16{keyGeographicType, uint16(crs.EPSG)})
		} else {
			keys = append(keys, [2]uint16{keyGTModelType, modelTypeProjected}, [2]uint16{keyProjectedCSType, uint16(crs.EPSG)})
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i][0] < keys[j][0] })

	dir := []uint16{1, 1, 0, uint16(len(keys))}
	for _, k := range keys {
		dir = append(dir, k[0], 0, 1, k[1])
	}
	fields = append(fields, shortsField(tagGeoKeyDirectory, dir...))
	return fields
}

func findField(fields []field, tag uint16) field {
	for _, f := range fields {
		if f.tag == tag {
			return f
		}
	}
	return field{}
}

func shortField(tag, v uint16) field {
	return shortsField(tag, v)
}

func shortsField(tag uint16, vs ...uint16) field {
	data := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(data[2*i:], v)
	}
	return field{tag: tag, typ: typeShort, count: uint32(len(vs)), data: data}
}

func longField(tag uint16, v uint32) field {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return field{tag: tag, typ: typeLong, count: 1, data: data}
}

func doubleField(tag uint16, vs ...float64) field {
	data := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	return field{tag: tag, typ: typeDouble, count: uint32(len(vs)), data: data}
}
