package naming

import (
	"fmt"
	"time"
)

// Fallback segments used when sanitization leaves nothing usable.
const (
	fallbackUserSegment  = "user"
	fallbackLabelSegment = "collection"
)

// CaptureFileName builds the time-based unique filename for a stored capture.
func CaptureFileName(ts time.Time) string {
	return fmt.Sprintf("capture_%d.png", ts.UnixMilli())
}

// EntryFallbackName names an archive entry whose source item has a blank
// display name.
func EntryFallbackName(ts time.Time) string {
	return fmt.Sprintf("image_%d.png", ts.UnixMilli())
}

// ZipFileName builds the archive filename for one exported collection:
// <user>-<label>-<count>.zip, with fallback literals when either segment
// sanitizes to nothing.
func ZipFileName(username, label string, count int) string {
	userSegment := Key(username)
	if userSegment == DefaultKey {
		userSegment = fallbackUserSegment
	}
	labelSegment := Key(label)
	if labelSegment == DefaultKey {
		labelSegment = fallbackLabelSegment
	}
	return fmt.Sprintf("%s-%s-%d.zip", userSegment, labelSegment, count)
}
