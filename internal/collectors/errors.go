package collectors

import (
	"errors"
	"strings"

	"SignalFuse/internal/domain/models"
)

// classify wraps a feed error as a typed collector failure, sniffing the
// message for the auth/rate-limit shapes the thin feed clients surface.
func classify(source models.SourceType, err error) error {
	var ce *models.CollectorError
	if errors.As(err, &ce) {
		return err
	}
	msg := err.Error()
	kind := models.ErrKindTransport
	switch {
	case strings.Contains(msg, "status 401"), strings.Contains(msg, "status 403"):
		kind = models.ErrKindAuth
	case strings.Contains(msg, "status 429"):
		kind = models.ErrKindRateLimit
	}
	return models.NewCollectorError(source, kind, err)
}
