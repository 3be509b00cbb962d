package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

// WidgetConfigs maps widget ids to the partial configuration served for them.
type WidgetConfigs map[string]json.RawMessage

// widgetFile is the layout of the sandbox widget configuration file:
//
//	widgets:
//	  demo-widget:
//	    themeColor: "#0ea5e9"
//	    requireUserInfo: false
type widgetFile struct {
	Widgets map[string]map[string]any `yaml:"widgets"`
}

// LoadWidgetConfigs reads a YAML widget configuration file. An empty path yields no
// configurations.
func LoadWidgetConfigs(path string) (WidgetConfigs, error) {
	if path == "" {
		return WidgetConfigs{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read widget config: %w", err)
	}
	return ParseWidgetConfigs(data)
}

// ParseWidgetConfigs decodes YAML widget configurations into JSON documents.
func ParseWidgetConfigs(data []byte) (WidgetConfigs, error) {
	var file widgetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse widget config: %w", err)
	}

	out := make(WidgetConfigs, len(file.Widgets))
	for id, fields := range file.Widgets {
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode widget %q: %w", id, err)
		}
		out[id] = raw
	}
	return out, nil
}

// GetWidgetConfig serves the partial configuration of a widget. Unknown widgets get an
// empty object so the client falls back to its defaults.
func (h *Handler) GetWidgetConfig(w http.ResponseWriter, r *http.Request) {
	widgetID := r.URL.Query().Get("widgetId")
	if widgetID == "" {
		Error(w, http.StatusBadRequest, "widgetId is required")
		return
	}

	raw, ok := h.widgets[widgetID]
	if !ok {
		raw = json.RawMessage("{}")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		h.logger.Debug("Failed to write widget config", "error", err)
	}
}
