package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/ironsheep/terrace-extractor/internal/config"
	"github.com/ironsheep/terrace-extractor/internal/imaging"
	"github.com/ironsheep/terrace-extractor/internal/pipeline"
	"github.com/ironsheep/terrace-extractor/internal/trace"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "terrace_extract", "edge_preview").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and runs the named tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Arguments that do not decode into the tool's argument struct return
// -32602. Other tool execution errors return -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("Tool failed", zap.String("tool", params.Name), zap.Error(err))
		if errors.Is(err, errInvalidArguments) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case ToolTerraceExtract:
		return s.handleTerraceExtract(ctx, args)
	case ToolImageInfo:
		return s.handleImageInfo(args)

	// Tuning previews
	case ToolEdgePreview:
		return s.handleEdgePreview(args)
	case ToolSkeletonPreview:
		return s.handleSkeletonPreview(args)
	case ToolTracePreview:
		return s.handleTracePreview(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON marshals v to a JSON string. Results are plain structs and
// maps, so a marshal failure is reported inline rather than returned.
func mustMarshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

var errInvalidArguments = errors.New("invalid arguments")

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return nil
}

// ============================================================================
// Extraction
// ============================================================================

// TerraceExtractArgs are the terrace_extract arguments. Pointer fields are
// optional and leave the configured value alone when absent.
type TerraceExtractArgs struct {
	Image  string `json:"image"`
	Out    string `json:"out"`
	Config string `json:"config"`

	T1         *float64 `json:"t1"`
	T2         *float64 `json:"t2"`
	Kernel     *int     `json:"kernel"`
	L2Gradient *bool    `json:"l2_gradient"`
	Backend    *string  `json:"backend"`

	Crop  *string  `json:"crop"`
	Scale *float64 `json:"scale"`

	TraceMode *string  `json:"trace_mode"`
	Simplify  *float64 `json:"simplify"`

	MinLength *float64 `json:"min_length"`
	Format    *string  `json:"format"`
	Overlay   *bool    `json:"overlay"`
	Report    *bool    `json:"report"`

	EPSG        *int     `json:"epsg"`
	PixelSize   *float64 `json:"pixel_size"`
	OriginX     *float64 `json:"origin_x"`
	OriginY     *float64 `json:"origin_y"`
	GCPs        *string  `json:"gcps"`
	ProjectEPSG *int     `json:"project_epsg"`
}

// apply copies the given arguments over cfg.
func (a *TerraceExtractArgs) apply(cfg *config.Config) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setI := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setB := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	if a.Image != "" {
		cfg.Image = a.Image
	}
	if a.Out != "" {
		cfg.OutDir = a.Out
	}
	setF(&cfg.Edges.Low, a.T1)
	setF(&cfg.Edges.High, a.T2)
	setI(&cfg.Edges.Kernel, a.Kernel)
	setB(&cfg.Edges.L2Gradient, a.L2Gradient)
	set(&cfg.Backend, a.Backend)
	set(&cfg.Window.Crop, a.Crop)
	setF(&cfg.Window.Scale, a.Scale)
	set(&cfg.Trace.Mode, a.TraceMode)
	setF(&cfg.Trace.Simplify, a.Simplify)
	setF(&cfg.Output.MinLength, a.MinLength)
	set(&cfg.Output.Format, a.Format)
	setB(&cfg.Output.Overlay, a.Overlay)
	setB(&cfg.Output.Report, a.Report)
	setI(&cfg.Georef.EPSG, a.EPSG)
	setF(&cfg.Georef.PixelSize, a.PixelSize)
	setF(&cfg.Georef.OriginX, a.OriginX)
	setF(&cfg.Georef.OriginY, a.OriginY)
	set(&cfg.Georef.GCPs, a.GCPs)
	setI(&cfg.Georef.ProjectEPSG, a.ProjectEPSG)
}

func (s *Server) handleTerraceExtract(ctx context.Context, args json.RawMessage) (*pipeline.Result, error) {
	var a TerraceExtractArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	cfg, err := config.Load(a.Config)
	if err != nil {
		return nil, err
	}
	a.apply(cfg)

	return s.runner.Run(ctx, cfg)
}

// ============================================================================
// Image information
// ============================================================================

// ImageInfoArgs are the image_info arguments.
type ImageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (*imaging.ImageInfo, error) {
	var a ImageInfoArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// ============================================================================
// Previews
// ============================================================================

// PreviewArgs are shared by the preview tools.
type PreviewArgs struct {
	Path       string   `json:"path"`
	T1         *float64 `json:"t1"`
	T2         *float64 `json:"t2"`
	Kernel     *int     `json:"kernel"`
	L2Gradient bool     `json:"l2_gradient"`
	Backend    string   `json:"backend"`
	Crop       string   `json:"crop"`
	Scale      float64  `json:"scale"`

	// trace_preview only
	TraceMode string  `json:"trace_mode"`
	Simplify  float64 `json:"simplify"`
}

// edgeOptions fills unset thresholds with the defaults.
func (a PreviewArgs) edgeOptions() imaging.EdgeOptions {
	opts := imaging.DefaultEdgeOptions()
	if a.T1 != nil {
		opts.Low = *a.T1
	}
	if a.T2 != nil {
		opts.High = *a.T2
	}
	if a.Kernel != nil {
		opts.Kernel = *a.Kernel
	}
	opts.L2Gradient = a.L2Gradient
	return opts
}

// previewInput holds the windowed image and the backend for a preview.
type previewInput struct {
	img     image.Image
	backend imaging.Backend
	opts    imaging.EdgeOptions
}

func (s *Server) loadPreview(args json.RawMessage, a *PreviewArgs) (*previewInput, error) {
	if err := unmarshalArgs(args, a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	opts := a.edgeOptions()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	backend, err := imaging.NewBackend(a.Backend)
	if err != nil {
		return nil, err
	}

	r, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	b := r.Image.Bounds()
	region, err := imaging.ParseRegion(a.Crop, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	img, err := imaging.Window(r.Image, region, a.Scale)
	if err != nil {
		return nil, err
	}
	return &previewInput{img: img, backend: backend, opts: opts}, nil
}

func (in *previewInput) skeleton() (*imaging.Mask, error) {
	edges, err := in.backend.Edges(in.img, in.opts)
	if err != nil {
		return nil, err
	}
	return in.backend.Thin(edges)
}

func (s *Server) handleEdgePreview(args json.RawMessage) (*imaging.PreviewResult, error) {
	var a PreviewArgs
	in, err := s.loadPreview(args, &a)
	if err != nil {
		return nil, err
	}
	edges, err := in.backend.Edges(in.img, in.opts)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeMaskPreview(edges)
}

func (s *Server) handleSkeletonPreview(args json.RawMessage) (*imaging.PreviewResult, error) {
	var a PreviewArgs
	in, err := s.loadPreview(args, &a)
	if err != nil {
		return nil, err
	}
	skel, err := in.skeleton()
	if err != nil {
		return nil, err
	}
	return imaging.EncodeMaskPreview(skel)
}

// TracePreviewResult is an overlay preview with the number of traced lines.
type TracePreviewResult struct {
	*imaging.PreviewResult
	Lines int `json:"lines"`
}

func (s *Server) handleTracePreview(args json.RawMessage) (*TracePreviewResult, error) {
	var a PreviewArgs
	in, err := s.loadPreview(args, &a)
	if err != nil {
		return nil, err
	}
	mode, err := trace.ParseMode(a.TraceMode)
	if err != nil {
		return nil, err
	}
	skel, err := in.skeleton()
	if err != nil {
		return nil, err
	}
	lines, err := trace.Trace(skel, trace.Options{Mode: mode, Simplify: a.Simplify})
	if err != nil {
		return nil, err
	}

	opts := imaging.DefaultOverlayOptions()
	opts.Labels = true
	ov, err := imaging.Overlay(in.img, trace.Points(lines), opts)
	if err != nil {
		return nil, err
	}
	preview, err := imaging.EncodePreview(ov)
	if err != nil {
		return nil, err
	}
	return &TracePreviewResult{PreviewResult: preview, Lines: len(lines)}, nil
}
