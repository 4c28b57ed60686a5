package config

import "time"

// UI and Display Constants
const (
	HistoryPageSize = 5
	MaxPageSize     = 25

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	// Discord UI Colors
	BackgroundColor = 0x2B2D31

	// Rarity Colors
	RarityCommonColor    = 0x808080
	RarityUncommonColor  = 0x00FF00
	RarityRareColor      = 0x0000FF
	RarityEpicColor      = 0x800080
	RarityLegendaryColor = 0xFFD700

	CurrencyName = "flakes"
)

// Database and Performance Constants
const (
	DefaultQueryTimeout     = 30 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	ShutdownTimeout         = 30 * time.Second

	CardNameCacheSize = 10000
	FuzzyMatchLimit   = 5
)

// Trade Constants
const (
	DefaultOfferWindow        = 5 * time.Minute
	DefaultFinalConfirmWindow = 2 * time.Minute
	DefaultExecutionTimeout   = 30 * time.Second
	DefaultMaxCardsPerOffer   = 10

	OpenTradeSweepInterval = time.Minute
)
