package handler

import "net/http"

type createChapterRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type updateChapterRequest struct {
	URL *string `json:"url" validate:"omitempty,url"`
}

// chapterRoute resolves the caller and the project/chapter ids of a chapter route
func (h *Handler) chapterRoute(w http.ResponseWriter, r *http.Request, withChapter bool) (callerID, projectID, chapterID int64, ok bool) {
	callerID, ok = h.caller(w, r)
	if !ok {
		return 0, 0, 0, false
	}
	var err error
	if projectID, err = pathID(r, "id"); err != nil {
		h.writeError(w, r, err)
		return 0, 0, 0, false
	}
	if withChapter {
		if chapterID, err = pathID(r, "cid"); err != nil {
			h.writeError(w, r, err)
			return 0, 0, 0, false
		}
	}
	return callerID, projectID, chapterID, true
}

func (h *Handler) ListChapters(w http.ResponseWriter, r *http.Request) {
	callerID, projectID, _, ok := h.chapterRoute(w, r, false)
	if !ok {
		return
	}
	chapters, err := h.svc.ListChapters(r.Context(), callerID, projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(chapters))
}

func (h *Handler) CreateChapter(w http.ResponseWriter, r *http.Request) {
	callerID, projectID, _, ok := h.chapterRoute(w, r, false)
	if !ok {
		return
	}
	var req createChapterRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	chapter, err := h.svc.CreateChapter(r.Context(), callerID, projectID, req.URL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	callerID, projectID, chapterID, ok := h.chapterRoute(w, r, true)
	if !ok {
		return
	}
	chapter, err := h.svc.GetChapter(r.Context(), callerID, projectID, chapterID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

func (h *Handler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	callerID, projectID, chapterID, ok := h.chapterRoute(w, r, true)
	if !ok {
		return
	}
	var req updateChapterRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	chapter, err := h.svc.UpdateChapter(r.Context(), callerID, projectID, chapterID, req.URL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chapter)
}

func (h *Handler) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	callerID, projectID, chapterID, ok := h.chapterRoute(w, r, true)
	if !ok {
		return
	}
	if err := h.svc.DeleteChapter(r.Context(), callerID, projectID, chapterID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
