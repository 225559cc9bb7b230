// Package device implements the display side: persisted settings, the
// sprite layer model, the animation director and the device loop.
package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Settings value ranges.
const (
	MinSleepMinutes = 1
	MaxSleepMinutes = 60
	MinSensitivity  = 0.1
	MaxSensitivity  = 5.0
)

// settingsBlobSize is the fixed on-disk record: five flag bytes, a
// uint32 sleep timeout in minutes, a float32 sensitivity and a uint32
// checksum, all little-endian.
const settingsBlobSize = 5 + 4 + 4 + 4

var errBadChecksum = errors.New("settings checksum mismatch")

// Settings is the persisted device configuration.
type Settings struct {
	ShowCPU       bool
	ShowRAM       bool
	ShowWPM       bool
	ShowTime      bool
	TimeFormat24h bool
	SleepMinutes  uint32
	Sensitivity   float32
}

// DefaultSettings are the factory values restored when the stored blob
// is missing or corrupt.
func DefaultSettings() Settings {
	return Settings{
		ShowCPU:       true,
		ShowRAM:       true,
		ShowWPM:       true,
		ShowTime:      true,
		TimeFormat24h: true,
		SleepMinutes:  5,
		Sensitivity:   1.0,
	}
}

// Validate clamps out-of-range numeric fields into their legal ranges.
func (s *Settings) Validate() {
	if s.SleepMinutes < MinSleepMinutes {
		s.SleepMinutes = MinSleepMinutes
	}
	if s.SleepMinutes > MaxSleepMinutes {
		s.SleepMinutes = MaxSleepMinutes
	}
	if s.Sensitivity < MinSensitivity {
		s.Sensitivity = MinSensitivity
	}
	if s.Sensitivity > MaxSensitivity {
		s.Sensitivity = MaxSensitivity
	}
}

// Encode serializes the settings with a byte-sum checksum over the
// payload.
func (s Settings) Encode() []byte {
	buf := make([]byte, 0, settingsBlobSize)
	for _, flag := range []bool{s.ShowCPU, s.ShowRAM, s.ShowWPM, s.ShowTime, s.TimeFormat24h} {
		if flag {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	buf = binary.LittleEndian.AppendUint32(buf, s.SleepMinutes)
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(s.Sensitivity))
	buf = binary.LittleEndian.AppendUint32(buf, checksum(buf))
	return buf
}

// DecodeSettings parses a settings blob, rejecting wrong sizes and
// checksum mismatches.
func DecodeSettings(blob []byte) (Settings, error) {
	if len(blob) != settingsBlobSize {
		return Settings{}, fmt.Errorf("settings blob is %d bytes, want %d", len(blob), settingsBlobSize)
	}
	payload, sum := blob[:settingsBlobSize-4], binary.LittleEndian.Uint32(blob[settingsBlobSize-4:])
	if checksum(payload) != sum {
		return Settings{}, errBadChecksum
	}
	var s Settings
	s.ShowCPU = payload[0] != 0
	s.ShowRAM = payload[1] != 0
	s.ShowWPM = payload[2] != 0
	s.ShowTime = payload[3] != 0
	s.TimeFormat24h = payload[4] != 0
	s.SleepMinutes = binary.LittleEndian.Uint32(payload[5:9])
	s.Sensitivity = math.Float32frombits(binary.LittleEndian.Uint32(payload[9:13]))
	if s.SleepMinutes < MinSleepMinutes || s.SleepMinutes > MaxSleepMinutes {
		return Settings{}, fmt.Errorf("stored sleep timeout %d out of range", s.SleepMinutes)
	}
	if math.IsNaN(float64(s.Sensitivity)) || s.Sensitivity < MinSensitivity || s.Sensitivity > MaxSensitivity {
		return Settings{}, fmt.Errorf("stored sensitivity %g out of range", s.Sensitivity)
	}
	return s, nil
}

// checksum is the byte sum of the payload. Simple, but it catches the
// torn writes flash storage actually produces.
func checksum(payload []byte) uint32 {
	var sum uint32
	for _, b := range payload {
		sum += uint32(b)
	}
	return sum
}

// SettingsStore persists settings to a single file.
type SettingsStore struct {
	path   string
	logger *zap.Logger
}

// NewSettingsStore builds a store writing to the given path.
func NewSettingsStore(path string, logger *zap.Logger) *SettingsStore {
	return &SettingsStore{path: path, logger: logger}
}

// Load reads settings from disk. A missing or corrupt blob yields the
// factory defaults, which are written back so the next load is clean.
func (st *SettingsStore) Load() Settings {
	blob, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			st.logger.Warn("failed to read settings, restoring defaults", zap.Error(err))
		}
		return st.restoreDefaults()
	}
	s, err := DecodeSettings(blob)
	if err != nil {
		st.logger.Warn("stored settings invalid, restoring defaults", zap.Error(err))
		return st.restoreDefaults()
	}
	return s
}

// Save writes the settings blob atomically via a temp file rename.
func (st *SettingsStore) Save(s Settings) error {
	s.Validate()
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, s.Encode(), 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

func (st *SettingsStore) restoreDefaults() Settings {
	s := DefaultSettings()
	if err := st.Save(s); err != nil {
		st.logger.Warn("failed to persist default settings", zap.Error(err))
	}
	return s
}
