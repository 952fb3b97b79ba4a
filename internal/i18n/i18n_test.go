// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import "testing"

func TestT_English(t *testing.T) {
	Init("en")
	if got := T("clean.nothing"); got != "nothing to clean" {
		t.Fatalf("unexpected translation %q", got)
	}
	if got := T("server.starting", "0.0.0.0", 8000); got != "starting server on 0.0.0.0:8000" {
		t.Fatalf("unexpected formatted translation %q", got)
	}
}

func TestT_German(t *testing.T) {
	Init("de")
	t.Cleanup(func() { Init("en") })
	if GetLang() != "de" {
		t.Fatalf("expected active language de, got %q", GetLang())
	}
	if got := T("task.run.summary"); got != "Entwicklungsserver starten" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestT_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	Init("xx")
	t.Cleanup(func() { Init("en") })
	if got := T("setup.done"); got != "development environment ready" {
		t.Fatalf("expected english fallback, got %q", got)
	}
}

func TestT_UnknownIDIsReturned(t *testing.T) {
	Init("en")
	if got := T("no.such.key", 1); got != "no.such.key" {
		t.Fatalf("expected id back, got %q", got)
	}
}

func TestT_IndexedArgs(t *testing.T) {
	Init("en")
	if got := T("setup.env_copied", ".env.example", ".env"); got != "created .env from .env.example" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestGetAvailableLocales(t *testing.T) {
	Init("en")
	locales := GetAvailableLocales()
	for _, code := range []string{"en", "de"} {
		if locales[code] == "" {
			t.Fatalf("locale %s missing from %v", code, locales)
		}
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	en := flatten(t, "locales/active.en.yaml")
	de := flatten(t, "locales/active.de.yaml")
	for k := range en {
		if _, ok := de[k]; !ok {
			t.Errorf("de is missing %s", k)
		}
	}
	for k := range de {
		if _, ok := en[k]; !ok {
			t.Errorf("de has extra key %s", k)
		}
	}
}
