// Package settings provides HTTP handlers for user display settings.
package settings

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/theme"
)

// ThemeRequest sets the display theme preference.
// @Description Request body for setting the theme preference.
type ThemeRequest struct {
	Preference string `json:"preference" example:"dark"`
}

// ThemeResponse reports the stored preference and the theme in effect.
// @Description Current theme preference and resolved theme.
type ThemeResponse struct {
	Preference theme.Preference `json:"preference" example:"system"`
	Resolved   theme.Resolved   `json:"resolved" example:"dark"`
}

// SettingsProblemDetail represents an RFC 7807 error response for settings endpoints.
// @Description RFC 7807 Problem Details error response.
type SettingsProblemDetail struct {
	Type   string `json:"type" example:"https://sportdesk.dev/problems/settings-error"`
	Title  string `json:"title" example:"Bad Request"`
	Status int    `json:"status" example:"400"`
	Detail string `json:"detail" example:"unknown theme preference: neon"`
}

// Handler provides HTTP handlers for settings endpoints. The theme
// controller is taken from the request context, so the server must
// install it with theme.NewContext.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a settings Handler.
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

// RegisterRoutes registers settings-related routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/theme", h.handleGetTheme)
	mux.HandleFunc("PUT /api/v1/theme", h.handleSetTheme)
	mux.HandleFunc("DELETE /api/v1/theme", h.handleResetTheme)
	mux.HandleFunc("POST /api/v1/theme/toggle", h.handleToggleTheme)
}

// handleGetTheme returns the current theme.
//
//	@Summary		Get theme
//	@Description	Get the stored theme preference and the theme in effect.
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	ThemeResponse	"Current theme"
//	@Router			/theme [get]
func (h *Handler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, current(theme.FromContext(r.Context())))
}

// handleSetTheme stores a new preference.
//
//	@Summary		Set theme
//	@Description	Set the theme preference to light, dark or system.
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ThemeRequest			true	"Preference to store"
//	@Success		200		{object}	ThemeResponse			"Theme applied"
//	@Failure		400		{object}	SettingsProblemDetail	"Invalid request or preference"
//	@Router			/theme [put]
func (h *Handler) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSettingsError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pref, ok := theme.ParsePreference(req.Preference)
	if !ok {
		writeSettingsError(w, http.StatusBadRequest, "unknown theme preference: "+req.Preference)
		return
	}

	ctrl := theme.FromContext(r.Context())
	ctrl.SetTheme(r.Context(), pref)
	h.logger.Debug("theme preference updated", zap.String("preference", string(pref)))
	writeJSON(w, http.StatusOK, current(ctrl))
}

// handleToggleTheme flips between light and dark.
//
//	@Summary		Toggle theme
//	@Description	Pin the preference to the opposite of the theme in effect.
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	ThemeResponse	"Theme applied"
//	@Router			/theme/toggle [post]
func (h *Handler) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	ctrl := theme.FromContext(r.Context())
	ctrl.ToggleTheme(r.Context())
	writeJSON(w, http.StatusOK, current(ctrl))
}

// handleResetTheme forgets the stored preference.
//
//	@Summary		Reset theme
//	@Description	Remove the stored preference and follow the system theme.
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	ThemeResponse	"Theme applied"
//	@Router			/theme [delete]
func (h *Handler) handleResetTheme(w http.ResponseWriter, r *http.Request) {
	ctrl := theme.FromContext(r.Context())
	ctrl.Reset(r.Context())
	h.logger.Debug("theme preference reset")
	writeJSON(w, http.StatusOK, current(ctrl))
}

func current(ctrl *theme.Controller) ThemeResponse {
	return ThemeResponse{Preference: ctrl.Preference(), Resolved: ctrl.Resolved()}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSettingsError writes an RFC 7807 problem response.
func writeSettingsError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://sportdesk.dev/problems/settings-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
