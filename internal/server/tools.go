package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Tool names.
const (
	ToolTerraceExtract  = "terrace_extract"
	ToolImageInfo       = "image_info"
	ToolEdgePreview     = "edge_preview"
	ToolSkeletonPreview = "skeleton_preview"
	ToolTracePreview    = "trace_preview"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func numberProp(description string, def float64) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description, "default": def}
}

func integerProp(description string, def int) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description, "default": def}
}

func boolProp(description string, def bool) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description, "default": def}
}

func enumProp(description string, def string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "default": def, "enum": values}
}

// previewProperties are shared by the preview tools.
func previewProperties() map[string]interface{} {
	return map[string]interface{}{
		"path":        stringProp("Absolute path to the image file"),
		"t1":          numberProp("Lower Canny hysteresis threshold", 50),
		"t2":          numberProp("Upper Canny hysteresis threshold", 150),
		"kernel":      integerProp("Odd Gaussian blur kernel size; 1 disables blurring", 3),
		"l2_gradient": boolProp("Use the L2 gradient magnitude", false),
		"backend":     enumProp("Edge and thinning backend", "native", "native", "opencv"),
		"crop":        stringProp("Process only this window: \"x1,y1,x2,y2\" in pixels or a named region such as \"top-left\" or \"center\""),
		"scale":       numberProp("Resample the window by this factor before detection", 1),
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	tracePreview := previewProperties()
	tracePreview["trace_mode"] = enumProp("How skeleton pixels become polylines", "contour", "contour", "centerline")
	tracePreview["simplify"] = numberProp("Douglas-Peucker tolerance in pixels; 0 keeps every point", 0)

	extract := previewProperties()
	delete(extract, "path")
	extract["image"] = stringProp("Absolute path to the input raster (PNG, JPEG or GeoTIFF)")
	extract["out"] = stringProp("Directory that receives all outputs; created if missing")
	extract["config"] = stringProp("Optional YAML configuration file; arguments given here take precedence")
	extract["trace_mode"] = tracePreview["trace_mode"]
	extract["simplify"] = tracePreview["simplify"]
	extract["min_length"] = numberProp("Drop lines shorter than this many CRS units; needs a projected CRS", 5)
	extract["format"] = enumProp("Vector output format", "shp", "shp", "gpkg", "geojson")
	extract["epsg"] = integerProp("CRS of the image when it carries none", 0)
	extract["pixel_size"] = numberProp("Ground size of one pixel when the image is not georeferenced", 0.3)
	extract["origin_x"] = numberProp("World X of the top-left corner when the image is not georeferenced", 0)
	extract["origin_y"] = numberProp("World Y of the top-left corner when the image is not georeferenced", 0)
	extract["gcps"] = stringProp("CSV of col,row,x,y ground control points used to fit the transform")
	extract["project_epsg"] = integerProp("Reproject vectors to this EPSG code before length filtering", 0)
	extract["overlay"] = boolProp("Write the QA overlay PNG", true)
	extract["report"] = boolProp("Write the JSON run report and length histogram", true)

	return []Tool{
		{
			Name:        ToolTerraceExtract,
			Description: "Extract terrace lines from an aerial or orthophoto raster. Runs Canny edge detection, thinning, tracing and georeferencing, then writes the vector file, edge and skeleton rasters, a QA overlay and a JSON report into the output directory. Returns the artifact paths and line counts.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": extract,
				"required":   []string{"image", "out"},
			},
		},
		{
			Name:        ToolImageInfo,
			Description: "Describe a raster: dimensions, format, bit depth, band count and any georeferencing (GeoTIFF tags or world file).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": stringProp("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        ToolEdgePreview,
			Description: "Run Canny edge detection and return the edge mask as a base64 PNG with its pixel count. Use it to tune t1, t2 and kernel before a full extraction.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": previewProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        ToolSkeletonPreview,
			Description: "Run edge detection and thinning and return the one-pixel-wide skeleton as a base64 PNG with its pixel count.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": previewProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        ToolTracePreview,
			Description: "Trace the skeleton into polylines and return them drawn over the image as a base64 PNG, with the number of lines. No files are written.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": tracePreview,
				"required":   []string{"path"},
			},
		},
	}
}
