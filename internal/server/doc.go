// Package server implements the MCP (Model Context Protocol) server for
// terrace extraction.
//
// The server speaks JSON-RPC 2.0, one request per line, over any reader and
// writer pair (stdin and stdout when started by "terrace-extractor serve").
// Logs go to the zap logger, never to the response stream.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - terrace_extract: Run the full extraction and write outputs to disk
//   - image_info: Dimensions, bit depth and georeferencing of a raster
//   - edge_preview: Canny edge mask as base64 PNG
//   - skeleton_preview: Thinned edge mask as base64 PNG
//   - trace_preview: Traced polylines drawn over the image as base64 PNG
//
// The preview tools share the extraction parameters (t1, t2, kernel, crop,
// scale, backend) so a client can tune them on a window before committing to
// a full run.
//
// # Image Caching
//
// Rasters are cached by path for the lifetime of the server and shared by
// every tool, including terrace_extract.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. Malformed tool parameters use
// -32602, unknown methods -32601 and unparsable lines -32700.
package server
