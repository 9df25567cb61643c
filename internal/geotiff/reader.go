// Package geotiff reads and writes the georeferencing carried by GeoTIFF
// files. Pixel decoding is delegated to golang.org/x/image/tiff; this package
// only parses the first image file directory for the GeoTIFF tags and writes
// single-band 8-bit rasters with those tags attached.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff"

	"github.com/ironsheep/terrace-extractor/internal/geo"
)

// TIFF and GeoTIFF tag numbers used by this package.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagBitsPerSample       = 258
	tagCompression         = 259
	tagPhotometric         = 262
	tagStripOffsets        = 273
	tagSamplesPerPixel     = 277
	tagRowsPerStrip        = 278
	tagStripByteCounts     = 279
	tagPlanarConfiguration = 284
	tagSampleFormat        = 339
	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735
)

// GeoKey identifiers.
const (
	keyGTModelType      = 1024
	keyGTRasterType     = 1025
	keyGeographicType   = 2048
	keyProjectedCSType  = 3072
	modelTypeProjected  = 1
	modelTypeGeographic = 2
	rasterPixelIsArea   = 1
	rasterPixelIsPoint  = 2
	userDefinedKey      = 32767
)

// TIFF field types.
const (
	typeByte   = 1
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

// ErrNotTIFF is returned for input that does not start with a TIFF header.
var ErrNotTIFF = errors.New("not a TIFF file")

// Info describes the raster layout and georeferencing found in a TIFF.
type Info struct {
	Width           int           `json:"width"`
	Height          int           `json:"height"`
	SamplesPerPixel int           `json:"samples_per_pixel"`
	BitsPerSample   int           `json:"bits_per_sample"`
	HasTransform    bool          `json:"has_transform"`
	Transform       geo.Transform `json:"transform"`
	CRS             geo.CRS       `json:"crs"`
	PixelIsPoint    bool          `json:"pixel_is_point,omitempty"`
}

// Read decodes a TIFF file and its georeferencing.
func Read(path string) (image.Image, *Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read TIFF: %w", err)
	}
	info, err := ReadInfo(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode TIFF: %w", err)
	}
	return img, info, nil
}

// ReadInfo parses the first IFD of a TIFF stream.
func ReadInfo(r io.ReaderAt) (*Info, error) {
	var header [8]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTIFF, err)
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, ErrNotTIFF
	}
	switch order.Uint16(header[2:4]) {
	case 42:
	case 43:
		return nil, fmt.Errorf("BigTIFF is not supported")
	default:
		return nil, ErrNotTIFF
	}

	d := &ifdReader{r: r, order: order}
	if err := d.parse(int64(order.Uint32(header[4:8]))); err != nil {
		return nil, err
	}
	return d.info()
}

type ifdEntry struct {
	typ    uint16
	count  uint32
	offset uint32
	inline [4]byte
}

type ifdReader struct {
	r       io.ReaderAt
	order   binary.ByteOrder
	entries map[uint16]ifdEntry
}

func (d *ifdReader) parse(offset int64) error {
	var countBuf [2]byte
	if _, err := d.r.ReadAt(countBuf[:], offset); err != nil {
		return fmt.Errorf("failed to read IFD: %w", err)
	}
	n := int(d.order.Uint16(countBuf[:]))

	buf := make([]byte, 12*n)
	if _, err := d.r.ReadAt(buf, offset+2); err != nil {
		return fmt.Errorf("failed to read IFD entries: %w", err)
	}

	d.entries = make(map[uint16]ifdEntry, n)
	for i := 0; i < n; i++ {
		e := buf[12*i : 12*i+12]
		var entry ifdEntry
		entry.typ = d.order.Uint16(e[2:4])
		entry.count = d.order.Uint32(e[4:8])
		copy(entry.inline[:], e[8:12])
		entry.offset = d.order.Uint32(e[8:12])
		d.entries[d.order.Uint16(e[0:2])] = entry
	}
	return nil
}

func typeSize(typ uint16) int {
	switch typ {
	case typeByte, typeASCII:
		return 1
	case typeShort:
		return 2
	case typeLong:
		return 4
	case typeDouble:
		return 8
	}
	return 0
}

func (d *ifdReader) raw(tag uint16) ([]byte, ifdEntry, bool, error) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, e, false, nil
	}
	size := typeSize(e.typ)
	if size == 0 {
		return nil, e, true, fmt.Errorf("tag %d: unsupported field type %d", tag, e.typ)
	}
	n := size * int(e.count)
	if n <= 4 {
		return e.inline[:n], e, true, nil
	}
	buf := make([]byte, n)
	if _, err := d.r.ReadAt(buf, int64(e.offset)); err != nil {
		return nil, e, true, fmt.Errorf("tag %d: %w", tag, err)
	}
	return buf, e, true, nil
}

func (d *ifdReader) uints(tag uint16) ([]uint32, error) {
	buf, e, ok, err := d.raw(tag)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]uint32, e.count)
	for i := range out {
		switch e.typ {
		case typeByte:
			out[i] = uint32(buf[i])
		case typeShort:
			out[i] = uint32(d.order.Uint16(buf[2*i:]))
		case typeLong:
			out[i] = d.order.Uint32(buf[4*i:])
		default:
			return nil, fmt.Errorf("tag %d: expected integer type, got %d", tag, e.typ)
		}
	}
	return out, nil
}

func (d *ifdReader) doubles(tag uint16) ([]float64, error) {
	buf, e, ok, err := d.raw(tag)
	if err != nil || !ok {
		return nil, err
	}
	if e.typ != typeDouble {
		return nil, fmt.Errorf("tag %d: expected DOUBLE, got type %d", tag, e.typ)
	}
	out := make([]float64, e.count)
	for i := range out {
		out[i] = math.Float64frombits(d.order.Uint64(buf[8*i:]))
	}
	return out, nil
}

func (d *ifdReader) first(tag uint16, def int) (int, error) {
	v, err := d.uints(tag)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return def, nil
	}
	return int(v[0]), nil
}

func (d *ifdReader) info() (*Info, error) {
	info := &Info{}
	var err error
	if info.Width, err = d.first(tagImageWidth, 0); err != nil {
		return nil, err
	}
	if info.Height, err = d.first(tagImageLength, 0); err != nil {
		return nil, err
	}
	if info.SamplesPerPixel, err = d.first(tagSamplesPerPixel, 1); err != nil {
		return nil, err
	}
	if info.BitsPerSample, err = d.first(tagBitsPerSample, 1); err != nil {
		return nil, err
	}

	keys, err := d.geoKeys()
	if err != nil {
		return nil, err
	}
	info.PixelIsPoint = keys[keyGTRasterType] == rasterPixelIsPoint
	if code := keys[keyProjectedCSType]; code > 0 && code != userDefinedKey {
		info.CRS = geo.EPSG(code)
	} else if code := keys[keyGeographicType]; code > 0 && code != userDefinedKey {
		info.CRS = geo.EPSG(code)
	}

	tr, ok, err := d.transform()
	if err != nil {
		return nil, err
	}
	if ok {
		if info.PixelIsPoint {
			// Tie points reference pixel centres; move them to the corner.
			tr.C -= (tr.A + tr.B) / 2
			tr.F -= (tr.D + tr.E) / 2
		}
		info.Transform = tr
		info.HasTransform = true
	}
	return info, nil
}

// geoKeys returns the short-valued keys of the GeoKeyDirectory.
func (d *ifdReader) geoKeys() (map[int]int, error) {
	dir, err := d.uints(tagGeoKeyDirectory)
	if err != nil {
		return nil, err
	}
	keys := make(map[int]int)
	if len(dir) < 4 {
		return keys, nil
	}
	n := int(dir[3])
	for i := 0; i < n && 4+4*i+3 < len(dir); i++ {
		e := dir[4+4*i : 8+4*i]
		// Location 0 means the value is stored inline in the entry.
		if e[1] == 0 {
			keys[int(e[0])] = int(e[3])
		}
	}
	return keys, nil
}

func (d *ifdReader) transform() (geo.Transform, bool, error) {
	m, err := d.doubles(tagModelTransformation)
	if err != nil {
		return geo.Transform{}, false, err
	}
	if len(m) >= 16 {
		t := geo.Transform{A: m[0], B: m[1], C: m[3], D: m[4], E: m[5], F: m[7]}
		return t, t.Validate() == nil, nil
	}

	scale, err := d.doubles(tagModelPixelScale)
	if err != nil {
		return geo.Transform{}, false, err
	}
	tie, err := d.doubles(tagModelTiepoint)
	if err != nil {
		return geo.Transform{}, false, err
	}
	if len(scale) < 2 || len(tie) < 6 {
		return geo.Transform{}, false, nil
	}

	t := geo.Transform{
		A: scale[0],
		C: tie[3] - tie[0]*scale[0],
		E: -scale[1],
		F: tie[4] + tie[1]*scale[1],
	}
	return t, t.Validate() == nil, nil
}
