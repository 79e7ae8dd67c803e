package api

import (
	"net/http"

	"signalx/internal/store"
)

func (h *Handler) ensureUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	if err := decode(r, ensureUserSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.deps.Users.EnsureProfile(r.Context(), req.ID, req.Email, req.DisplayName)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *Handler) completeProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName  string `json:"displayName"`
		Organization string `json:"organization"`
		Phone        string `json:"phone"`
		District     string `json:"district"`
	}
	if err := decode(r, profileSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.deps.Users.CompleteProfile(r.Context(), r.PathValue("id"), store.ProfileDetails{
		DisplayName:  req.DisplayName,
		Organization: req.Organization,
		Phone:        req.Phone,
		District:     req.District,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{"user": user})
}
