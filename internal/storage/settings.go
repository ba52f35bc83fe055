package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// WindowSize holds the saved desktop window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"

	minWindowWidth  = 800
	minWindowHeight = 600
)

// SettingsStore is a key/value table of desktop preferences.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value under key and whether it was set.
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var v string
	err := s.db.queryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// WindowSize returns the saved size. ok is false when nothing usable was
// saved; sizes below the window minimum are ignored.
func (s *SettingsStore) WindowSize() (WindowSize, bool) {
	w, okW := s.getInt(settingWindowWidth)
	h, okH := s.getInt(settingWindowHeight)
	if !okW || !okH || w < minWindowWidth || h < minWindowHeight {
		return WindowSize{}, false
	}
	return WindowSize{Width: w, Height: h}, true
}

func (s *SettingsStore) SaveWindowSize(width, height int) error {
	if err := s.Set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.Set(settingWindowHeight, strconv.Itoa(height))
}

func (s *SettingsStore) getInt(key string) (int, bool) {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}
