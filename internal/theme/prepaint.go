package theme

import (
	"bytes"
	"context"
	"encoding/json"
	"text/template"

	"go.uber.org/zap"
)

// Prepaint resolves the stored preference and applies it to root without
// any controller. Callers run it before the first frame is shown so the
// correct theme is visible before the controller initializes.
func Prepaint(ctx context.Context, storage Storage, key string, scheme SchemeSource, root Root) Resolved {
	if key == "" {
		key = DefaultStorageKey
	}
	pref := loadPreference(ctx, storage, key, zap.NewNop())
	r := Resolve(pref, scheme != nil && scheme.PrefersDark())
	apply(root, r)
	return r
}

// prepaintTemplate is the browser rendition of Prepaint for server-rendered
// pages. All vocabulary (key, values, class, meta name) is injected from
// the Go constants. Fallback stands in for the stored preference when the
// browser holds no valid value.
var prepaintTemplate = template.Must(template.New("prepaint").Parse(
	`(function(){try{` +
		`var p=null;try{p=window.localStorage.getItem({{.Key}});}catch(e){}` +
		`if(p!=={{.Light}}&&p!=={{.Dark}}&&p!=={{.System}})p={{.Fallback}};` +
		`var d=p==={{.Dark}}||(p==={{.System}}&&window.matchMedia("(prefers-color-scheme: dark)").matches);` +
		`document.documentElement.classList.toggle({{.Class}},d);` +
		`var m=document.querySelector('meta[name='+{{.Meta}}+']');` +
		`if(m)m.setAttribute("content",d?{{.Dark}}:{{.Light}});` +
		`}catch(e){}})();`))

// PrepaintScript returns the inline script for the given storage key.
// fallback is the preference the page was rendered with; the script uses
// it whenever browser storage is empty or holds an unknown value.
func PrepaintScript(key string, fallback Preference) string {
	if key == "" {
		key = DefaultStorageKey
	}
	fallback = Normalize(string(fallback))
	q := func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	}
	var buf bytes.Buffer
	_ = prepaintTemplate.Execute(&buf, map[string]string{
		"Key":      q(key),
		"Light":    q(string(PreferenceLight)),
		"Dark":     q(string(PreferenceDark)),
		"System":   q(string(PreferenceSystem)),
		"Fallback": q(string(fallback)),
		"Class":    q(DarkClass),
		"Meta":     q(`"` + ColorSchemeMeta + `"`),
	})
	return buf.String()
}
