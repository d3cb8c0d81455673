/*
Package randx generates the identifiers the client mints on its own:
connection ids for log correlation and temporary ids for optimistic messages.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers minted locally for messages not yet confirmed by the server.
const TempIDPrefix = "tmp_"

// ConnectionID returns a new UUID v4 string identifying one socket connection.
func ConnectionID() string {
	return uuid.New().String()
}

// TempMessageID returns a new temporary message id.
func TempMessageID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempMessageID reports whether id was produced by TempMessageID.
func IsTempMessageID(id string) bool {
	if !strings.HasPrefix(id, TempIDPrefix) {
		return false
	}

	_, err := uuid.Parse(id[len(TempIDPrefix):])
	return err == nil
}
