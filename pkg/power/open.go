package power

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	SourceAuto    = "auto"
	SourceUPower  = "upower"
	SourceBattery = "battery"
)

// ErrUnknownSource is returned by Open for an unsupported source kind.
var ErrUnknownSource = errors.New("unknown power source")

// probeTimeout bounds the initial UPower read used to decide whether the
// service is usable.
var probeTimeout = 3 * time.Second

// Open builds the source selected by kind. "auto" prefers UPower and falls
// back to polling the OS battery interface when upowerd is unreachable.
func Open(ctx context.Context, kind string, pollInterval time.Duration) (Source, error) {
	switch kind {
	case SourceUPower:
		return NewUPower()
	case SourceBattery:
		return NewBattery(pollInterval), nil
	case SourceAuto, "":
		u, err := NewUPower()
		if err == nil {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			_, err = u.Snapshot(probeCtx)
			cancel()
			if err == nil {
				return u, nil
			}
			_ = u.Close()
		}
		logrus.WithError(err).Warn("upower is not available, falling back to polling batteries")
		return NewBattery(pollInterval), nil
	default:
		return nil, pkgerrors.Wrapf(ErrUnknownSource, "%q", kind)
	}
}
