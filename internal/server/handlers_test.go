package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/terrace-extractor/internal/config"
	"github.com/ironsheep/terrace-extractor/internal/imaging"
	"github.com/ironsheep/terrace-extractor/internal/pipeline"
)

// createTerraceImage writes a 64x64 gray PNG with two brightness steps, one
// per terrace riser, and returns its path.
func createTerraceImage(t *testing.T) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		v := uint8(40)
		switch {
		case y >= 40:
			v = 220
		case y >= 20:
			v = 130
		}
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	path := filepath.Join(t.TempDir(), "terraces.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool sends a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool response.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil, "test")
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("got %+v, want invalid params error", resp.Error)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	imgPath := createTerraceImage(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"unknown tool", "image_crop", map[string]interface{}{"path": imgPath}},
		{"missing path", ToolImageInfo, map[string]interface{}{}},
		{"nonexistent file", ToolImageInfo, map[string]interface{}{"path": "/nonexistent/image.png"}},
		{"even kernel", ToolEdgePreview, map[string]interface{}{"path": imgPath, "kernel": 4}},
		{"negative threshold", ToolEdgePreview, map[string]interface{}{"path": imgPath, "t1": -1}},
		{"unknown backend", ToolSkeletonPreview, map[string]interface{}{"path": imgPath, "backend": "gpu"}},
		{"crop outside image", ToolEdgePreview, map[string]interface{}{"path": imgPath, "crop": "0,0,100,100"}},
		{"bad trace mode", ToolTracePreview, map[string]interface{}{"path": imgPath, "trace_mode": "spline"}},
		{"extract without out", ToolTerraceExtract, map[string]interface{}{"image": imgPath}},
	}

	s := New(nil, "test")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error response")
			}
			if resp.Error.Code != codeToolFailed {
				t.Errorf("Error code: got %d, want %d", resp.Error.Code, codeToolFailed)
			}
			if resp.Error.Data == nil {
				t.Error("error response has no data")
			}
		})
	}
}

func TestHandleToolsCall_MalformedArguments(t *testing.T) {
	imgPath := createTerraceImage(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"threshold as string", ToolEdgePreview, map[string]interface{}{"path": imgPath, "t1": "fifty"}},
		{"path as number", ToolImageInfo, map[string]interface{}{"path": 7}},
		{"overlay as string", ToolTerraceExtract, map[string]interface{}{"image": imgPath, "overlay": "yes"}},
	}

	s := New(nil, "test")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error response")
			}
			if resp.Error.Code != codeInvalidParams {
				t.Errorf("Error code: got %d, want %d", resp.Error.Code, codeInvalidParams)
			}
		})
	}
}

func TestHandleImageInfo(t *testing.T) {
	s := New(nil, "test")
	imgPath := createTerraceImage(t)

	var info imaging.ImageInfo
	decodeResult(t, callTool(t, s, ToolImageInfo, map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 64 || info.Height != 64 {
		t.Errorf("size: got %dx%d, want 64x64", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %q, want png", info.Format)
	}
	if info.Georeferenced {
		t.Error("plain PNG reported as georeferenced")
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache holds %d images, want 1", s.cache.Len())
	}
}

func TestHandleEdgePreview(t *testing.T) {
	s := New(nil, "test")
	imgPath := createTerraceImage(t)

	var full imaging.PreviewResult
	decodeResult(t, callTool(t, s, ToolEdgePreview, map[string]interface{}{"path": imgPath}), &full)
	if full.Width != 64 || full.Height != 64 {
		t.Errorf("size: got %dx%d, want 64x64", full.Width, full.Height)
	}
	if full.MimeType != "image/png" || full.ImageBase64 == "" {
		t.Errorf("preview not encoded: mime %q, %d bytes", full.MimeType, len(full.ImageBase64))
	}
	if full.Pixels == 0 {
		t.Error("no edge pixels on a stepped image")
	}

	var cropped imaging.PreviewResult
	decodeResult(t, callTool(t, s, ToolEdgePreview, map[string]interface{}{
		"path":  imgPath,
		"crop":  "0,0,32,16",
		"scale": 0.5,
	}), &cropped)
	if cropped.Width != 16 || cropped.Height != 8 {
		t.Errorf("cropped size: got %dx%d, want 16x8", cropped.Width, cropped.Height)
	}
	if cropped.Pixels != 0 {
		t.Errorf("window above the first step has %d edge pixels, want 0", cropped.Pixels)
	}
}

func TestHandleSkeletonPreview(t *testing.T) {
	s := New(nil, "test")
	imgPath := createTerraceImage(t)

	var edges, skel imaging.PreviewResult
	decodeResult(t, callTool(t, s, ToolEdgePreview, map[string]interface{}{"path": imgPath}), &edges)
	decodeResult(t, callTool(t, s, ToolSkeletonPreview, map[string]interface{}{"path": imgPath}), &skel)

	if skel.Pixels == 0 {
		t.Fatal("skeleton is empty")
	}
	if skel.Pixels > edges.Pixels {
		t.Errorf("skeleton has %d pixels, more than the %d edge pixels", skel.Pixels, edges.Pixels)
	}
}

func TestHandleTracePreview(t *testing.T) {
	s := New(nil, "test")
	imgPath := createTerraceImage(t)

	for _, mode := range []string{"contour", "centerline"} {
		t.Run(mode, func(t *testing.T) {
			var res TracePreviewResult
			decodeResult(t, callTool(t, s, ToolTracePreview, map[string]interface{}{
				"path":       imgPath,
				"trace_mode": mode,
				"simplify":   1.0,
			}), &res)
			if res.Lines == 0 {
				t.Error("no lines traced")
			}
			if res.Width != 64 || res.ImageBase64 == "" {
				t.Errorf("overlay not encoded: width %d, %d bytes", res.Width, len(res.ImageBase64))
			}
		})
	}
}

func TestHandleTerraceExtract(t *testing.T) {
	s := New(nil, "test")
	imgPath := createTerraceImage(t)
	outDir := filepath.Join(t.TempDir(), "out")

	var res pipeline.Result
	decodeResult(t, callTool(t, s, ToolTerraceExtract, map[string]interface{}{
		"image":      imgPath,
		"out":        outDir,
		"format":     "geojson",
		"epsg":       32633,
		"pixel_size": 1.0,
		"min_length": 0,
		"overlay":    false,
	}), &res)

	if res.OutDir != outDir {
		t.Errorf("out_dir: got %q, want %q", res.OutDir, outDir)
	}
	if filepath.Ext(res.VectorPath) != ".geojson" {
		t.Errorf("vector_path: got %q, want a .geojson file", res.VectorPath)
	}
	if res.CRS != "EPSG:32633" {
		t.Errorf("crs: got %q, want EPSG:32633", res.CRS)
	}
	if res.Kept == 0 || res.Kept != res.Polylines {
		t.Errorf("kept %d of %d polylines, want all of at least one", res.Kept, res.Polylines)
	}
	if _, ok := res.Artifacts[pipeline.ArtifactOverlay]; ok {
		t.Error("overlay written although disabled")
	}
	for name, path := range res.Artifacts {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact %s: %v", name, err)
		}
	}
}

func TestTerraceExtractArgs_Apply(t *testing.T) {
	var a TerraceExtractArgs
	if err := json.Unmarshal([]byte(`{
		"image": "in.tif",
		"out": "out",
		"t1": 0,
		"kernel": 5,
		"crop": "center",
		"trace_mode": "centerline",
		"format": "gpkg",
		"overlay": false,
		"epsg": 32633,
		"gcps": "points.csv"
	}`), &a); err != nil {
		t.Fatalf("failed to unmarshal args: %v", err)
	}

	got := config.DefaultConfig()
	a.apply(got)

	want := config.DefaultConfig()
	want.Image = "in.tif"
	want.OutDir = "out"
	want.Edges.Low = 0
	want.Edges.Kernel = 5
	want.Window.Crop = "center"
	want.Trace.Mode = "centerline"
	want.Output.Format = "gpkg"
	want.Output.Overlay = false
	want.Georef.EPSG = 32633
	want.Georef.GCPs = "points.csv"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
