package trade

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const sessionIDPrefix = "TR"

// NewSessionID returns an id such as TR-LZ4K2Q-9XF3: a base36 timestamp
// followed by a random base36 suffix.
func NewSessionID(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	suffix := strings.ToUpper(new(big.Int).SetBytes(buf).Text(36))
	if len(suffix) < 4 {
		suffix = strings.Repeat("0", 4-len(suffix)) + suffix
	}
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	return fmt.Sprintf("%s-%s-%s", sessionIDPrefix, stamp, suffix[:4]), nil
}
