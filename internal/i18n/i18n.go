// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n provides translated user-facing strings for devrun.
// It uses the go-i18n library over YAML locale files embedded in the binary.
// Output of delegated tools is never translated.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// localeFS embeds the YAML translation files from the 'locales' directory.
//
//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	current   string
)

// Init loads every embedded locale and activates lang. Unknown languages
// fall back to English.
func Init(lang string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		_, _ = b.ParseMessageFileBytes(data, f.Name())
	}

	mu.Lock()
	defer mu.Unlock()
	bundle = b
	localizer = i18n.NewLocalizer(b, lang)
	current = lang
}

// SetLang changes the active language.
func SetLang(lang string) {
	Init(lang)
}

// GetLang returns the active language code.
func GetLang() string {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// GetAvailableLocales maps every embedded locale code to its self-describing
// display name, e.g. "de" -> "Deutsch".
func GetAvailableLocales() map[string]string {
	mu.RLock()
	b := bundle
	mu.RUnlock()
	if b == nil {
		Init("en")
		mu.RLock()
		b = bundle
		mu.RUnlock()
	}

	out := make(map[string]string)
	for _, tag := range b.LanguageTags() {
		name := display.Self.Name(tag)
		if name == "" {
			name = tag.String()
		}
		out[tag.String()] = name
	}
	return out
}

// T translates messageID. When args are given the translated text is used
// as a fmt format string. Unknown IDs are returned unchanged so a missing
// translation never hides information from the user.
func T(messageID string, args ...any) string {
	mu.RLock()
	l := localizer
	mu.RUnlock()
	if l == nil {
		Init("en")
		mu.RLock()
		l = localizer
		mu.RUnlock()
	}

	// Localize falls back to English on its own; an error with an empty
	// result means the ID is unknown everywhere.
	msg, _ := l.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if msg == "" {
		msg = messageID
	}
	if len(args) == 0 {
		return msg
	}
	if !strings.Contains(msg, "%") {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
