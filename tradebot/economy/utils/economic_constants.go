package utils

import "time"

// Transaction Constants
const (
	DefaultTxTimeout = 30 * time.Second // Default transaction timeout
	CopiesPerCardID  = 1                // Copies moved for each card id in an offer
)
