// Package notifications delivers push notifications about capture and
// export activity through ntfy. Without a configured topic every call is a
// silent no-op.
package notifications
