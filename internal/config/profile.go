package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"uniTrack/internal/attendance"
	"uniTrack/internal/discovery"
	"uniTrack/internal/portal"
)

// Profile - настройки конкретного портала, которые пользователь сохраняет между запусками.
type Profile struct {
	Institution Institution           `yaml:"institution" json:"institution"`
	Portal      PortalProfile         `yaml:"portal" json:"portal"`
	Thresholds  attendance.Thresholds `yaml:"thresholds" json:"thresholds"`
	Credentials ProfileCredentials    `yaml:"credentials" json:"-"`
	Student     discovery.StudentInfo `yaml:"student" json:"student"`
}

type Institution struct {
	Name      string `yaml:"name" json:"name"`
	ShortName string `yaml:"short_name" json:"short_name"`
	Color     string `yaml:"color" json:"color"`
}

type PortalProfile struct {
	BaseURL       string                  `yaml:"base_url" json:"base_url"`
	LoginURL      string                  `yaml:"login_url" json:"login_url"`
	AttendanceAPI string                  `yaml:"attendance_api" json:"attendance_api"`
	Selectors     discovery.Selectors     `yaml:"selectors" json:"selectors"`
	FieldMappings attendance.FieldMapping `yaml:"field_mappings" json:"field_mappings"`
}

// ProfileCredentials: пароль читается, если пользователь вписал его руками,
// но SaveProfile его всегда стирает.
type ProfileCredentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
}

func DefaultProfile() Profile {
	return Profile{
		Institution: Institution{
			Name:  "My Institution",
			Color: "#3B82F6",
		},
		Portal: PortalProfile{
			FieldMappings: attendance.DefaultFieldMapping(),
		},
		Thresholds: attendance.DefaultThresholds(),
	}
}

// Configured: есть адрес портала и полный набор селекторов входа.
func (p Profile) Configured() bool {
	return p.Portal.BaseURL != "" && p.Portal.Selectors.Complete()
}

// FetchConfig собирает конфигурацию одного запроса. Пароль передаётся отдельно
// и в профиле не хранится.
func (p Profile) FetchConfig(username, password string) portal.Config {
	if username == "" {
		username = p.Credentials.Username
	}
	if password == "" {
		password = p.Credentials.Password
	}

	return portal.Config{
		BaseURL:       p.Portal.BaseURL,
		LoginURL:      p.Portal.LoginURL,
		AttendanceAPI: p.Portal.AttendanceAPI,
		Selectors:     p.Portal.Selectors,
		FieldMappings: p.Portal.FieldMappings.Clone(),
		Credentials:   portal.Credentials{Username: username, Password: password},
	}
}

// LoadProfile читает YAML. Отсутствующий файл - не ошибка, возвращаются значения по умолчанию.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return profile, nil
	}
	if err != nil {
		return profile, fmt.Errorf("ошибка чтения профиля: %w", err)
	}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return DefaultProfile(), fmt.Errorf("ошибка разбора профиля %s: %w", path, err)
	}
	if len(profile.Portal.FieldMappings) == 0 {
		profile.Portal.FieldMappings = attendance.DefaultFieldMapping()
	}

	return profile, nil
}

// SaveProfile пишет профиль атомарно (через временный файл) и без пароля.
func SaveProfile(path string, profile Profile) error {
	profile.Credentials.Password = ""
	profile.Portal.BaseURL = strings.TrimRight(profile.Portal.BaseURL, "/")

	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("ошибка сериализации профиля: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("ошибка создания каталога: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("ошибка записи профиля: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ошибка записи профиля: %w", err)
	}

	return nil
}
