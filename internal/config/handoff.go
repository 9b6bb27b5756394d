package config

import "github.com/creativedesignseo/taxi-bcn/internal/utils"

type HandoffConfig struct {
	MessagingHost   string `yaml:"messaging_host"`
	BusinessNumber  string `yaml:"business_number"`
	MapLinkBaseURL  string `yaml:"map_link_base_url"`
	DefaultDialCode string `yaml:"default_dial_code"`
}

func loadHandoffConfig() *HandoffConfig {
	return &HandoffConfig{
		MessagingHost:   getEnv("HANDOFF_MESSAGING_HOST", "wa.me"),
		BusinessNumber:  getEnv("HANDOFF_BUSINESS_NUMBER", "34625030000"),
		MapLinkBaseURL:  getEnv("HANDOFF_MAP_LINK_BASE_URL", "https://www.google.com/maps"),
		DefaultDialCode: getEnv("HANDOFF_DEFAULT_DIAL_CODE", utils.DefaultCountryCode),
	}
}
