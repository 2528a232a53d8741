package config

const (
	DefaultProviderTimeoutMS  = 60000
	DefaultProviderMaxRetries = 3
	DefaultTemperature        = 0.7
	DefaultMaxTokens          = 1024

	DefaultRedditTimeoutMS = 20000
	DefaultRedditLimit     = 100

	DefaultCacheTTLHours = 24

	DefaultMaxTurns    = 12
	DefaultTokenBudget = 0
)
