// Package widgetconfig resolves the per-widget display and behavior configuration.
//
// A Config is always fully populated: every field a remote source leaves out, sets to
// null, or sends with the wrong JSON type keeps its built-in default.
package widgetconfig

// Position is the screen corner the widget is anchored to.
type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionTopRight    Position = "top-right"
	PositionTopLeft     Position = "top-left"
)

// Config holds the canonical widget configuration for one session.
type Config struct {
	ID                 string   `json:"id,omitempty"`
	SellerID           string   `json:"sellerId,omitempty"`
	ThemeColor         string   `json:"themeColor"`
	WelcomeMessage     string   `json:"welcomeMessage"`
	WelcomeMessageIcon string   `json:"welcomeMessageIcon,omitempty"`
	FallbackMessage    string   `json:"fallbackMessage"`
	Position           Position `json:"position"`
	ShowUserStatus     bool     `json:"showUserStatus"`
	ShowMessageStatus  bool     `json:"showMessageStatus"`
	ShowAgentIcon      bool     `json:"showAgentIcon"`
	CompanyName        string   `json:"companyName"`
	AgentName          string   `json:"agentName"`
	CompanyLogo        string   `json:"companyLogo,omitempty"`

	ChatIcon          string `json:"chatIcon"`
	CustomChatIconURL string `json:"customChatIconUrl,omitempty"`
	ShowChatPrompt    bool   `json:"showChatPrompt"`
	ChatPromptMessage string `json:"chatPromptMessage"`
	PromptStyle       string `json:"promptStyle,omitempty"` // "bubble-above" | "inline"

	RequireUserInfo bool           `json:"requireUserInfo"`
	RequiredFields  RequiredFields `json:"requiredFields"`
	UserInfoMessage string         `json:"userInfoMessage"`

	AgentType         string            `json:"agentType"` // "human" | "ai" | "custom"
	OpenAIConfig      OpenAIConfig      `json:"openaiConfig"`
	CustomAgentConfig CustomAgentConfig `json:"customAgentConfig"`

	BusinessHours      BusinessHours      `json:"businessHours"`
	DisconnectSettings DisconnectSettings `json:"disconnectSettings"`
}

// RequiredFields selects which visitor details the info form demands.
type RequiredFields struct {
	Name  bool `json:"name"`
	Email bool `json:"email"`
	Phone bool `json:"phone"`
}

// OpenAIConfig configures the "ai" agent type.
type OpenAIConfig struct {
	APIKey       string `json:"apiKey"`
	Model        string `json:"model"`
	SystemPrompt string `json:"systemPrompt"`
}

// CustomAgentConfig configures the "custom" agent type.
type CustomAgentConfig struct {
	WebhookURL string            `json:"webhookUrl"`
	Headers    map[string]string `json:"headers"`
}

// DisconnectSettings controls the inactivity disconnect.
type DisconnectSettings struct {
	Enabled                  bool   `json:"enabled"`
	InactivityTimeoutMinutes int    `json:"inactivityTimeoutMinutes"`
	DisconnectMessage        string `json:"disconnectMessage"`
	ShowReconnectButton      bool   `json:"showReconnectButton"`
}

func (c Config) clone() Config {
	out := c
	if c.CustomAgentConfig.Headers != nil {
		out.CustomAgentConfig.Headers = make(map[string]string, len(c.CustomAgentConfig.Headers))
		for k, v := range c.CustomAgentConfig.Headers {
			out.CustomAgentConfig.Headers[k] = v
		}
	}
	return out
}
