// Package theme resolves, applies and persists the light/dark display
// preference. The preference is read once at startup, changed only by
// explicit SetTheme/ToggleTheme calls and re-resolved whenever the OS
// color scheme changes while it is set to system.
package theme

// Preference is the user's stored choice.
type Preference string

const (
	PreferenceLight  Preference = "light"
	PreferenceDark   Preference = "dark"
	PreferenceSystem Preference = "system"
)

// DefaultPreference applies whenever nothing valid is stored.
const DefaultPreference = PreferenceSystem

// Resolved is the theme actually shown. It is never "system".
type Resolved string

const (
	ResolvedLight Resolved = "light"
	ResolvedDark  Resolved = "dark"
)

// ParsePreference returns the Preference named by s and whether s was one
// of the three known values.
func ParsePreference(s string) (Preference, bool) {
	switch p := Preference(s); p {
	case PreferenceLight, PreferenceDark, PreferenceSystem:
		return p, true
	}
	return DefaultPreference, false
}

// Normalize maps any stored string onto a valid Preference, treating
// unknown values as absent.
func Normalize(s string) Preference {
	p, _ := ParsePreference(s)
	return p
}

// Resolve is the single resolution rule shared by the controller and the
// pre-paint step: dark iff the preference is dark, or it is system and
// the OS prefers dark.
func Resolve(pref Preference, osPrefersDark bool) Resolved {
	if pref == PreferenceDark || (pref == PreferenceSystem && osPrefersDark) {
		return ResolvedDark
	}
	return ResolvedLight
}

// Opposite returns the preference that pins the other resolved theme.
func (r Resolved) Opposite() Preference {
	if r == ResolvedDark {
		return PreferenceLight
	}
	return PreferenceDark
}

// IsDark reports whether r is the dark theme.
func (r Resolved) IsDark() bool { return r == ResolvedDark }
