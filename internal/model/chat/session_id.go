package chat

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionSuffixLen = 9

// NewSessionID returns "session-<unix millis>-<random suffix>".
func NewSessionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:sessionSuffixLen]
	return "session-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + suffix
}
