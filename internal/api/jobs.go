package api

import (
	"net/http"
	"strconv"
	"strings"

	"signalx/internal/jobs"
	"signalx/internal/search"
)

const maxSearchSize = 50

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	var in jobs.CreateInput
	if err := decode(r, createJobSchema, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Jobs.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusCreated, map[string]interface{}{
		"job":        res.Job,
		"moderation": res.Verdict,
		"flagged":    res.Flagged,
	})
}

func (h *Handler) searchJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := search.Query{
		Text:     strings.TrimSpace(q.Get("q")),
		District: strings.TrimSpace(q.Get("district")),
		From:     atoiDefault(q.Get("from"), 0),
		Size:     atoiDefault(q.Get("size"), 20),
	}
	if skills := q.Get("skills"); skills != "" {
		query.Skills = strings.Split(skills, ",")
	}
	if query.Size <= 0 || query.Size > maxSearchSize {
		query.Size = maxSearchSize
	}
	if query.From < 0 {
		query.From = 0
	}

	res, err := h.deps.Jobs.Search(r.Context(), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{
		"total": res.Total,
		"jobs":  res.Jobs,
	})
}

func (h *Handler) sendJobAlerts(w http.ResponseWriter, r *http.Request) {
	var req jobs.AlertRequest
	if err := decode(r, sendAlertsSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Jobs.SendAlerts(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{
		"matched":    res.Matched,
		"successful": res.Successful,
		"failed":     res.Failed,
		"smsSent":    res.SMSSent,
		"smsFailed":  res.SMSFailed,
	})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
