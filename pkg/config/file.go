package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
	"github.com/charlie0129/battime/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Source:              ptr.To(power.SourceAuto),
		PollIntervalSeconds: ptr.To(int(power.DefaultPollInterval / time.Second)),
		Locale:              ptr.To(presentation.DefaultLocale),
		PercentSeparator:    ptr.To(presentation.DefaultPercentSeparator),
		AllowOtherUsers:     ptr.To(false),
		// Metrics are always served on the daemon socket. A TCP listener is
		// opt-in.
		MetricsAddress: ptr.To(""),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Source              *string `json:"source,omitempty"`
	PollIntervalSeconds *int    `json:"pollIntervalSeconds,omitempty"`
	Locale              *string `json:"locale,omitempty"`
	PercentSeparator    *string `json:"percentSeparator,omitempty"`
	AllowOtherUsers     *bool   `json:"allowOtherUsers,omitempty"`
	MetricsAddress      *string `json:"metricsAddress,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Source:              ptr.To(c.Source()),
		PollIntervalSeconds: ptr.To(int(c.PollInterval() / time.Second)),
		Locale:              ptr.To(c.Locale()),
		PercentSeparator:    ptr.To(c.PercentSeparator()),
		AllowOtherUsers:     ptr.To(c.AllowOtherUsers()),
		MetricsAddress:      ptr.To(c.MetricsAddress()),
	}

	return rawConfig, nil
}

// valueOr returns *v, or *def when v is nil.
func valueOr[T any](v, def *T) T {
	if v != nil {
		return *v
	}
	return *def
}

func (f *File) Source() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.Source, defaultFileConfig.Source)
}

func (f *File) PollInterval() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	seconds := valueOr(f.c.PollIntervalSeconds, defaultFileConfig.PollIntervalSeconds)
	if seconds <= 0 {
		seconds = *defaultFileConfig.PollIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (f *File) Locale() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.Locale, defaultFileConfig.Locale)
}

func (f *File) PercentSeparator() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.PercentSeparator, defaultFileConfig.PercentSeparator)
}

func (f *File) AllowOtherUsers() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.AllowOtherUsers, defaultFileConfig.AllowOtherUsers)
}

func (f *File) MetricsAddress() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return valueOr(f.c.MetricsAddress, defaultFileConfig.MetricsAddress)
}

func (f *File) SetSource(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	switch s {
	case power.SourceAuto, power.SourceUPower, power.SourceBattery:
	default:
		panic("source must be one of auto, upower, battery")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Source = &s
}

func (f *File) SetPollInterval(d time.Duration) {
	if f.c == nil {
		panic("config is nil")
	}

	if d < time.Second {
		panic("poll interval must be at least one second")
	}

	seconds := int(d / time.Second)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.PollIntervalSeconds = &seconds
}

func (f *File) SetLocale(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Locale = &s
}

func (f *File) SetPercentSeparator(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.PercentSeparator = &s
}

func (f *File) SetAllowOtherUsers(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AllowOtherUsers = &b
}

func (f *File) SetMetricsAddress(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.MetricsAddress = &s
}

// Formatter builds the label formatter described by this config.
func (f *File) Formatter() (*presentation.Formatter, error) {
	return presentation.NewFormatter(f.Locale(), f.PercentSeparator())
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}

	if conf.Source != nil {
		switch *conf.Source {
		case power.SourceAuto, power.SourceUPower, power.SourceBattery:
		default:
			return pkgerrors.Errorf("invalid source %q in %s", *conf.Source, f.filepath)
		}
	}

	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	if dir := filepath.Dir(f.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pkgerrors.Wrapf(err, "failed to create config directory %s", dir)
		}
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"source":           f.Source(),
		"pollInterval":     f.PollInterval().String(),
		"locale":           f.Locale(),
		"percentSeparator": f.PercentSeparator(),
		"allowOtherUsers":  f.AllowOtherUsers(),
		"metricsAddress":   f.MetricsAddress(),
	}
}

// DefaultPath is $XDG_CONFIG_HOME/battime/config.json, or a relative
// battime.json when no config home can be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "battime.json"
	}
	return filepath.Join(dir, "battime", "config.json")
}
