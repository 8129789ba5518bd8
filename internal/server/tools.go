package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func rectArraySchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"x": map[string]interface{}{"type": "integer"},
				"y": map[string]interface{}{"type": "integer"},
				"w": map[string]interface{}{"type": "integer"},
				"h": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"x", "y", "w", "h"},
		},
	}
}

func numberArraySchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       map[string]interface{}{"type": []string{"number", "null"}},
	}
}

var onsetProperties = map[string]interface{}{
	"mode": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"relative", "absolute"},
		"description": "relative: first value above (1+ratio) x mean of all earlier values. absolute: first value above threshold. Defaults to the configured mode.",
	},
	"ratio": map[string]interface{}{
		"type":        "number",
		"description": "Relative rise over the running mean, e.g. 0.05 for 5%",
	},
	"threshold": map[string]interface{}{
		"type":        "number",
		"description": "Absolute threshold",
	},
}

func withOnset(props map[string]interface{}) map[string]interface{} {
	for k, v := range onsetProperties {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// ROI selection and extraction
		{
			Name:        "roi_preview",
			Description: "Load a reference frame and return it scaled to fit the viewport as base64 PNG, with the scale factor. Draw ROIs on this preview and pass them to roi_batch_extract as display_rects with the same max_width/max_height. Optional rois (frame coordinates) are outlined on the preview.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the reference frame",
					},
					"max_width": map[string]interface{}{
						"type":        "integer",
						"description": "Viewport width. Defaults to the configured viewport.",
					},
					"max_height": map[string]interface{}{
						"type":        "integer",
						"description": "Viewport height. Defaults to the configured viewport.",
					},
					"rois": rectArraySchema("ROIs in frame coordinates to outline"),
					"grid": map[string]interface{}{
						"type":        "integer",
						"description": "Draw a labeled coordinate grid every N display pixels to help place display_rects",
					},
					"grid_color": map[string]interface{}{
						"type":        "string",
						"description": "Grid color as hex (#RRGGBB or #RRGGBBAA). Default semi-transparent red.",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "roi_batch_extract",
			Description: "Apply the same ROIs to every frame of a batch in order and return the per-ROI intensity series (raw and LOESS-smoothed) with onset. Frames that fail to decode are skipped with a warning and keep their position. Optionally writes the CSV table, channel plots and annotated frames.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Frame paths in time order",
					},
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory whose image files (sorted by name) are appended to paths",
					},
					"rois":          rectArraySchema("ROIs in frame coordinates"),
					"display_rects": rectArraySchema("ROIs in roi_preview display coordinates; mapped back through the preview scale"),
					"max_width": map[string]interface{}{
						"type":        "integer",
						"description": "Viewport width used for the preview the display_rects were drawn on",
					},
					"max_height": map[string]interface{}{
						"type":        "integer",
						"description": "Viewport height used for the preview the display_rects were drawn on",
					},
					"intensity_channel": map[string]interface{}{
						"type":        "string",
						"description": "Channel backing the intensity column: r, g, b, h, s or v. Default b.",
					},
					"fraction": map[string]interface{}{
						"type":        "number",
						"description": "LOESS bandwidth fraction in (0, 1]",
					},
					"iterations": map[string]interface{}{
						"type":        "integer",
						"description": "LOESS robustifying iterations",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Concurrent decode workers",
					},
					"csv_path": map[string]interface{}{
						"type":        "string",
						"description": "Write the raw + smoothed table here",
					},
					"plot_dir": map[string]interface{}{
						"type":        "string",
						"description": "Write intensity/rgb/hsv plot PNGs here",
					},
					"annotate_dir": map[string]interface{}{
						"type":        "string",
						"description": "Write copies of each frame with ROI outlines here",
					},
				},
			},
		},

		// Series analysis
		{
			Name:        "series_smooth",
			Description: "LOESS-smooth a numeric series by index. Output has the same length; null entries stay null.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"values": numberArraySchema("Series values; null for missing"),
					"fraction": map[string]interface{}{
						"type":        "number",
						"description": "Bandwidth fraction in (0, 1]. Default 0.3.",
					},
					"iterations": map[string]interface{}{
						"type":        "integer",
						"description": "Robustifying iterations. Default 3.",
					},
				},
				"required": []string{"values"},
			},
		},
		{
			Name:        "series_onset",
			Description: "Find the first index where a series crosses an absolute threshold or rises above its running mean.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOnset(map[string]interface{}{
					"values": numberArraySchema("Series values; null entries are ignored"),
				}),
				"required": []string{"values"},
			},
		},
		{
			Name:        "series_fit",
			Description: "Ordinary least squares fit of y against x with slope, intercept, R squared and slope p-value. log_y fits log10(y). Pairs with a null on either side are dropped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": numberArraySchema("Independent values"),
					"y": numberArraySchema("Dependent values"),
					"log_y": map[string]interface{}{
						"type":        "boolean",
						"description": "Fit log10(y); all y must be positive",
					},
				},
				"required": []string{"x", "y"},
			},
		},

		// Exported table analysis
		{
			Name:        "csv_onset",
			Description: "Run onset detection on one column of an exported CSV table. Empty cells are dropped first; the result reports both the position among non-empty rows and the frame index.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOnset(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the CSV file",
					},
					"column": map[string]interface{}{
						"type":        "string",
						"description": "Column header, e.g. \"ROI1 Blue Intensity\"",
					},
				}),
				"required": []string{"path", "column"},
			},
		},
		{
			Name:        "csv_fit",
			Description: "Fit one column of an exported CSV table against another. Rows with an empty cell in either column are dropped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the CSV file",
					},
					"x_column": map[string]interface{}{
						"type":        "string",
						"description": "Column used as x, e.g. \"Image Index\"",
					},
					"y_column": map[string]interface{}{
						"type":        "string",
						"description": "Column used as y",
					},
					"log_y": map[string]interface{}{
						"type":        "boolean",
						"description": "Fit log10(y)",
					},
				},
				"required": []string{"path", "x_column", "y_column"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
