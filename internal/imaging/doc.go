// Package imaging provides the raster stages of terrace extraction: loading a
// terrain image with its georeferencing, Canny edge detection, thinning the
// edge mask to one-pixel centerlines, cropping and resampling, and rendering
// preview and overlay images.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Masks
//
// Edge and skeleton results are binary Masks with one byte per pixel (0 or 1).
// Masks convert to *image.Gray for writing: 0/1 for GeoTIFF artifacts and
// 0/255 for PNG artifacts and previews.
//
// # Backends
//
// Edge detection and thinning run through a Backend. The "native" backend is
// pure Go and always available. Building with -tags gocv registers an
// "opencv" backend that calls into OpenCV through gocv.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual operations are
// stateless and can be called concurrently on different images.
package imaging
