package widgetconfig

// Defaults returns the built-in configuration. Each call returns a fresh copy.
func Defaults() Config {
	return Config{
		ThemeColor:         "#6366f1",
		WelcomeMessage:     "Hi there! How can we help you today?",
		WelcomeMessageIcon: "👋",
		FallbackMessage:    "Sorry, our agents are currently unavailable. Please leave a message and we'll get back to you soon!",
		Position:           PositionBottomRight,
		ShowUserStatus:     true,
		ShowMessageStatus:  true,
		ShowAgentIcon:      true,
		CompanyName:        "Your Company",
		AgentName:          "Support Agent",

		ChatIcon:          "message-circle",
		ShowChatPrompt:    false,
		ChatPromptMessage: "Hi there, have a question? Text us here.",

		RequireUserInfo: true,
		RequiredFields: RequiredFields{
			Name:  true,
			Email: true,
			Phone: false,
		},
		UserInfoMessage: "Please provide your details to start the conversation:",

		AgentType: "human",
		OpenAIConfig: OpenAIConfig{
			Model:        "gpt-3.5-turbo",
			SystemPrompt: "You are a helpful customer support assistant.",
		},
		CustomAgentConfig: CustomAgentConfig{
			Headers: map[string]string{},
		},

		BusinessHours: BusinessHours{
			Enabled:  false,
			Timezone: "UTC",
			Schedule: Schedule{
				Monday:    workday(),
				Tuesday:   workday(),
				Wednesday: workday(),
				Thursday:  workday(),
				Friday:    workday(),
				Saturday:  DaySchedule{Enabled: false, StartTime: "09:00", EndTime: "17:00"},
				Sunday:    DaySchedule{Enabled: false, StartTime: "09:00", EndTime: "17:00"},
			},
			OutsideHoursMessage: "We're currently offline. Please leave a message and we'll get back to you during business hours.",
		},
		DisconnectSettings: DisconnectSettings{
			Enabled:                  false,
			InactivityTimeoutMinutes: 15,
			DisconnectMessage:        "You've been disconnected due to inactivity. Please start a new conversation if you need further assistance.",
			ShowReconnectButton:      true,
		},
	}
}

func workday() DaySchedule {
	return DaySchedule{Enabled: true, StartTime: "09:00", EndTime: "17:00"}
}
