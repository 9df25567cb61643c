package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // Register BMP format decoder

	"github.com/ironsheep/terrace-extractor/internal/geo"
	"github.com/ironsheep/terrace-extractor/internal/geotiff"
)

// Raster is a decoded terrain image with whatever georeferencing was found
// alongside it.
type Raster struct {
	Image image.Image
	Path  string

	// Format is the lower-case file extension without the dot.
	Format string

	// Bands is the number of samples per pixel for TIFF inputs, 0 otherwise.
	Bands int

	// HasTransform is set when an embedded GeoTIFF transform or a world file
	// sidecar was found. Source names where it came from: "geotiff",
	// "worldfile" or "".
	HasTransform bool
	Transform    geo.Transform
	Source       string

	// CRS comes from the GeoTIFF key directory only.
	CRS geo.CRS
}

// Georeferenced reports whether both a transform and a CRS are known.
func (r *Raster) Georeferenced() bool {
	return r.HasTransform && r.CRS.Known()
}

// Load decodes the image at path. TIFF files are read through the GeoTIFF
// reader; other formats are decoded with EXIF auto-orientation. Any failure
// to open or decode is reported as "could not read image at <path>".
func Load(path string) (*Raster, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	r := &Raster{Path: path, Format: ext}

	switch ext {
	case "tif", "tiff":
		img, info, err := geotiff.Read(path)
		if err != nil {
			return nil, fmt.Errorf("could not read image at %s: %w", path, err)
		}
		r.Image = bandImage(img, info.SamplesPerPixel)
		r.Bands = info.SamplesPerPixel
		if info.HasTransform {
			r.HasTransform = true
			r.Transform = info.Transform
			r.Source = "geotiff"
		}
		r.CRS = info.CRS
	default:
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("could not read image at %s: %w", path, err)
		}
		r.Image = img
	}

	if !r.HasTransform {
		if wf, ok := geo.FindWorldFile(path); ok {
			t, err := geo.ReadWorldFile(wf)
			if err != nil {
				return nil, fmt.Errorf("failed to read world file for %s: %w", path, err)
			}
			r.HasTransform = true
			r.Transform = t
			r.Source = "worldfile"
		}
	}
	return r, nil
}

// bandImage keeps three-band rasters as colour. Any other band count is
// reduced to its first band, replicated as gray.
func bandImage(img image.Image, bands int) image.Image {
	if bands == 3 || bands == 0 {
		return img
	}
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return img
	}

	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			out.SetGray(x, y, color.Gray{Y: uint8(r >> 8)})
		}
	}
	return out
}

// ImageCache provides thread-safe caching of loaded rasters to avoid
// redundant disk reads.
//
// Rasters are keyed by the exact path string given to Load. Different paths
// to the same file (relative vs absolute) result in separate entries.
// Cached rasters remain in memory until removed with Evict or Clear.
type ImageCache struct {
	mu      sync.RWMutex
	rasters map[string]*Raster
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		rasters: make(map[string]*Raster),
	}
}

// Load returns the cached raster for path, reading it from disk on first use.
func (c *ImageCache) Load(path string) (*Raster, error) {
	c.mu.RLock()
	if r, ok := c.rasters[path]; ok {
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	r, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rasters[path] = r
	c.mu.Unlock()

	return r, nil
}

// Clear removes all rasters from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.rasters = make(map[string]*Raster)
	c.mu.Unlock()
}

// Evict removes a single path from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.rasters, path)
	c.mu.Unlock()
}

// Len returns the number of cached rasters.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rasters)
}

// ImageInfo contains metadata about a raster file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the lower-case file extension, e.g. "png" or "tif".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the decoded image has an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// Bands is the TIFF samples per pixel, omitted for other formats.
	Bands int `json:"bands,omitempty"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Georeferencing found with the image.
	Georeferenced bool      `json:"georeferenced"`
	TransformFrom string    `json:"transform_source,omitempty"`
	GeoTransform  []float64 `json:"geotransform,omitempty"`
	PixelSize     []float64 `json:"pixel_size,omitempty"`
	CRS           string    `json:"crs,omitempty"`
}

// LoadImageInfo loads a raster through the cache and describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	r, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch r.Image.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := r.Image.Bounds()
	info := &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        r.Format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		Bands:         r.Bands,
		FileSizeBytes: stat.Size(),
		Georeferenced: r.Georeferenced(),
		TransformFrom: r.Source,
	}
	if r.HasTransform {
		gt := r.Transform.GDAL()
		info.GeoTransform = gt[:]
		px, py := r.Transform.PixelSize()
		info.PixelSize = []float64{px, py}
	}
	if r.CRS.Known() {
		info.CRS = r.CRS.String()
	}
	return info, nil
}

// IsNotExist reports whether a Load error was caused by a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
