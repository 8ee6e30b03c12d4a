package power

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	upowerBusName       = "org.freedesktop.UPower"
	upowerDeviceIface   = "org.freedesktop.UPower.Device"
	displayDevicePath   = dbus.ObjectPath("/org/freedesktop/UPower/devices/DisplayDevice")
	propertiesIface     = "org.freedesktop.DBus.Properties"
	propertiesGetAll    = propertiesIface + ".GetAll"
	propertiesChanged   = "PropertiesChanged"
	propertiesChangedFq = propertiesIface + "." + propertiesChanged
)

var _ Source = &UPower{}

// UPower reads the composite display device exported by upowerd on the
// system bus.
type UPower struct {
	conn *dbus.Conn
	obj  dbus.BusObject

	mu     sync.Mutex
	closed bool
}

// NewUPower connects to the system bus. It does not check whether upowerd
// is actually running; the first Snapshot call will.
func NewUPower() (*UPower, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect to system bus")
	}
	return newUPower(conn), nil
}

func newUPower(conn *dbus.Conn) *UPower {
	return &UPower{
		conn: conn,
		obj:  conn.Object(upowerBusName, displayDevicePath),
	}
}

func (u *UPower) Name() string {
	return "upower"
}

func (u *UPower) Snapshot(ctx context.Context) (Snapshot, error) {
	props := map[string]dbus.Variant{}
	err := u.obj.CallWithContext(ctx, propertiesGetAll, 0, upowerDeviceIface).Store(&props)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrapf(err, "failed to read %s properties", displayDevicePath)
	}
	return snapshotFromProperties(props), nil
}

func (u *UPower) Watch(ctx context.Context) (<-chan struct{}, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil, pkgerrors.New("upower source is closed")
	}

	matches := []dbus.MatchOption{
		dbus.WithMatchObjectPath(displayDevicePath),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember(propertiesChanged),
	}
	if err := u.conn.AddMatchSignal(matches...); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to subscribe to %s", propertiesChangedFq)
	}

	sigCh := make(chan *dbus.Signal, 16)
	u.conn.Signal(sigCh)

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			u.conn.RemoveSignal(sigCh)
			if err := u.conn.RemoveMatchSignal(matches...); err != nil {
				logrus.Debugf("failed to remove upower signal match: %v", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if !isDisplayDeviceChange(sig) {
					continue
				}
				// Coalesce bursts; the reader fetches all properties anyway.
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out, nil
}

func (u *UPower) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	// Closing the connection terminates every registered signal channel,
	// which ends the watch goroutines.
	return u.conn.Close()
}

func isDisplayDeviceChange(sig *dbus.Signal) bool {
	if sig == nil || sig.Path != displayDevicePath || sig.Name != propertiesChangedFq {
		return false
	}
	if len(sig.Body) == 0 {
		return true
	}
	iface, ok := sig.Body[0].(string)
	return !ok || iface == upowerDeviceIface
}

// snapshotFromProperties converts the org.freedesktop.UPower.Device
// property map. Missing or mistyped properties read as zero values.
func snapshotFromProperties(props map[string]dbus.Variant) Snapshot {
	var s Snapshot
	s.IsPresent, _ = variantValue[bool](props, "IsPresent")
	s.Percentage, _ = variantValue[float64](props, "Percentage")
	if state, ok := variantValue[uint32](props, "State"); ok {
		s.State = DeviceState(state)
	}
	s.TimeToFull, _ = variantValue[int64](props, "TimeToFull")
	s.TimeToEmpty, _ = variantValue[int64](props, "TimeToEmpty")
	s.IconName, _ = variantValue[string](props, "IconName")
	return s
}

func variantValue[T any](props map[string]dbus.Variant, key string) (T, bool) {
	var zero T
	v, ok := props[key]
	if !ok {
		return zero, false
	}
	t, ok := v.Value().(T)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"property":  key,
			"signature": v.Signature().String(),
		}).Debug("unexpected upower property type")
		return zero, false
	}
	return t, true
}
