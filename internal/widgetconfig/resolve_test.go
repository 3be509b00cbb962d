package widgetconfig

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestResolve_EmptyAndMalformedYieldDefaults(t *testing.T) {
	want := Defaults()
	for _, raw := range []string{"", "   ", "null", "not json", "[1,2,3]", `{"themeColor":`} {
		got := Resolve([]byte(raw))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Resolve(%q) did not return defaults", raw)
		}
	}
}

func TestResolve_RemoteFieldsOverride(t *testing.T) {
	raw := `{
		"themeColor": "#000000",
		"welcomeMessage": "",
		"requireUserInfo": false,
		"sellerId": "seller-9",
		"position": "top-left",
		"customAgentConfig": {"webhookUrl": "https://hook", "headers": {"X-Key": "v"}}
	}`
	got := Resolve([]byte(raw))

	if got.ThemeColor != "#000000" {
		t.Errorf("expected themeColor override, got %q", got.ThemeColor)
	}
	if got.WelcomeMessage != "" {
		t.Errorf("expected empty welcomeMessage override, got %q", got.WelcomeMessage)
	}
	if got.RequireUserInfo {
		t.Error("expected requireUserInfo=false override")
	}
	if got.SellerID != "seller-9" {
		t.Errorf("expected sellerId override, got %q", got.SellerID)
	}
	if got.Position != PositionTopLeft {
		t.Errorf("expected position override, got %q", got.Position)
	}
	if got.CustomAgentConfig.Headers["X-Key"] != "v" {
		t.Errorf("expected header override, got %v", got.CustomAgentConfig.Headers)
	}

	// Untouched fields keep defaults.
	def := Defaults()
	if got.FallbackMessage != def.FallbackMessage {
		t.Errorf("expected default fallbackMessage, got %q", got.FallbackMessage)
	}
	if !reflect.DeepEqual(got.BusinessHours, def.BusinessHours) {
		t.Error("expected default businessHours")
	}
}

func TestResolve_NestedObjectStaysPopulated(t *testing.T) {
	got := Resolve([]byte(`{"disconnectSettings": {"enabled": true}, "requiredFields": {"phone": true}}`))

	if !got.DisconnectSettings.Enabled {
		t.Error("expected disconnectSettings.enabled override")
	}
	if got.DisconnectSettings.InactivityTimeoutMinutes != 15 {
		t.Errorf("expected default timeout to survive, got %d", got.DisconnectSettings.InactivityTimeoutMinutes)
	}
	if got.DisconnectSettings.DisconnectMessage == "" {
		t.Error("expected default disconnect message to survive")
	}
	if !got.RequiredFields.Name || !got.RequiredFields.Email || !got.RequiredFields.Phone {
		t.Errorf("unexpected requiredFields: %+v", got.RequiredFields)
	}
}

func TestResolve_WrongTypedFieldKeepsDefault(t *testing.T) {
	cfg, rejected := resolve([]byte(`{"themeColor": 42, "companyName": "Acme", "requiredFields": {"name": "yes"}}`))

	def := Defaults()
	if cfg.ThemeColor != def.ThemeColor {
		t.Errorf("expected default themeColor, got %q", cfg.ThemeColor)
	}
	if cfg.RequiredFields != def.RequiredFields {
		t.Errorf("expected default requiredFields, got %+v", cfg.RequiredFields)
	}
	if cfg.CompanyName != "Acme" {
		t.Errorf("expected companyName override, got %q", cfg.CompanyName)
	}
	if !reflect.DeepEqual(rejected, []string{"requiredFields.name", "themeColor"}) {
		t.Errorf("unexpected rejected fields: %v", rejected)
	}
}

func TestResolve_WrongTypedLeafKeepsSiblings(t *testing.T) {
	cfg, rejected := resolve([]byte(`{"businessHours": {"enabled": true, "timezone": 7, "schedule": {"sunday": {"enabled": "no", "startTime": "10:00"}}}}`))

	def := Defaults()
	if !cfg.BusinessHours.Enabled {
		t.Error("expected businessHours.enabled override next to a bad sibling")
	}
	if cfg.BusinessHours.Timezone != def.BusinessHours.Timezone {
		t.Errorf("expected default timezone, got %q", cfg.BusinessHours.Timezone)
	}
	if cfg.BusinessHours.Schedule.Sunday.StartTime != "10:00" {
		t.Errorf("expected sunday startTime override, got %q", cfg.BusinessHours.Schedule.Sunday.StartTime)
	}
	if cfg.BusinessHours.Schedule.Sunday.Enabled != def.BusinessHours.Schedule.Sunday.Enabled {
		t.Error("expected default sunday enabled flag")
	}
	want := []string{"businessHours.schedule.sunday.enabled", "businessHours.timezone"}
	if !reflect.DeepEqual(rejected, want) {
		t.Errorf("unexpected rejected fields: %v, want %v", rejected, want)
	}
}

func TestResolve_NullKeepsDefault(t *testing.T) {
	got := Resolve([]byte(`{"businessHours": null, "agentName": null}`))
	def := Defaults()
	if got.AgentName != def.AgentName {
		t.Errorf("expected default agentName, got %q", got.AgentName)
	}
	if !reflect.DeepEqual(got.BusinessHours, def.BusinessHours) {
		t.Error("expected default businessHours")
	}
}

func TestResolve_NeverOmitsDefaultFields(t *testing.T) {
	partials := []string{
		`{}`,
		`{"companyName": "A"}`,
		`{"openaiConfig": {"model": "gpt-4o"}}`,
		`{"businessHours": {"enabled": true, "schedule": {"monday": {"enabled": false}}}}`,
	}
	def := Defaults()
	defJSON := flatten(t, def)
	for _, p := range partials {
		got := flatten(t, Resolve([]byte(p)))
		for key := range defJSON {
			if _, ok := got[key]; !ok {
				t.Errorf("partial %s: resolved config is missing %s", p, key)
			}
		}
	}
}

func TestResolve_DoesNotMutateDefaults(t *testing.T) {
	_ = Resolve([]byte(`{"customAgentConfig": {"headers": {"A": "1"}}}`))
	if len(Defaults().CustomAgentConfig.Headers) != 0 {
		t.Error("defaults were mutated by a merge")
	}
}

func flatten(t *testing.T, cfg Config) map[string]any {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	out := make(map[string]any)
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		if obj, ok := v.(map[string]any); ok && prefix != "customAgentConfig.headers" {
			for k, child := range obj {
				name := k
				if prefix != "" {
					name = prefix + "." + k
				}
				walk(name, child)
			}
			return
		}
		out[prefix] = v
	}
	walk("", m)
	return out
}

type stubSource struct {
	raw []byte
	err error
}

func (s stubSource) FetchWidgetConfig(context.Context, string) ([]byte, error) {
	return s.raw, s.err
}

func TestFetcher_FailureYieldsDefaults(t *testing.T) {
	f := NewFetcher(stubSource{err: errors.New("connection refused")}, nil)
	got := f.Fetch(context.Background(), "w1")
	if !reflect.DeepEqual(got, Defaults()) {
		t.Error("expected defaults on fetch failure")
	}
}

func TestFetcher_NilSource(t *testing.T) {
	f := NewFetcher(nil, nil)
	if !reflect.DeepEqual(f.Fetch(context.Background(), "w1"), Defaults()) {
		t.Error("expected defaults without a source")
	}
}

func TestFetcher_ResolvesRemote(t *testing.T) {
	f := NewFetcher(stubSource{raw: []byte(`{"agentName": "Dana"}`)}, nil)
	got := f.Fetch(context.Background(), "w1")
	if got.AgentName != "Dana" {
		t.Errorf("expected agentName Dana, got %q", got.AgentName)
	}
}

func TestBusinessHours_IsOpen(t *testing.T) {
	bh := Defaults().BusinessHours
	// 2026-10-12 is a Monday.
	monday10 := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)
	monday18 := time.Date(2026, 10, 12, 18, 0, 0, 0, time.UTC)
	saturday10 := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	if !bh.IsOpen(saturday10) {
		t.Error("disabled business hours must always be open")
	}

	bh.Enabled = true
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday inside", monday10, true},
		{"weekday after close", monday18, false},
		{"weekend", saturday10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bh.IsOpen(tt.at); got != tt.want {
				t.Errorf("IsOpen(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestBusinessHours_OvernightWindow(t *testing.T) {
	bh := BusinessHours{Enabled: true, Timezone: "UTC"}
	bh.Schedule.Friday = DaySchedule{Enabled: true, StartTime: "22:00", EndTime: "02:00"}

	fridayLate := time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC)
	saturdayEarly := time.Date(2026, 10, 17, 1, 0, 0, 0, time.UTC)
	saturdayLater := time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)

	if !bh.IsOpen(fridayLate) {
		t.Error("expected open late friday")
	}
	if !bh.IsOpen(saturdayEarly) {
		t.Error("expected open early saturday (tail of friday window)")
	}
	if bh.IsOpen(saturdayLater) {
		t.Error("expected closed after overnight window")
	}
}
