package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/merchkpi/dashboard/backend/internal/domain"
	"github.com/merchkpi/dashboard/backend/internal/kpi"
	"github.com/merchkpi/dashboard/backend/internal/utils"
)

func (h *Handler) SubmitDailyRecord(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		domain.Counts
		Target        domain.Count `json:"target"`
		Comments      *string      `json:"comments" validate:"omitempty,max=2000"`
		AttachmentURL *string      `json:"attachmentUrl" validate:"omitempty,max=500"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	rec := kpi.NewDailyRecord(myInfo.ID, h.today(), req.Counts, int64(req.Target), req.Comments, req.AttachmentURL)

	if err := h.repository.UpsertDailyRecord(rec); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "record saved", rec)
}

// parseRecordFilter reads from, to, date (YYYY-MM-DD), userId and q.
func (h *Handler) parseRecordFilter(r *http.Request) (domain.RecordFilter, error) {
	query := r.URL.Query()
	filter := domain.RecordFilter{
		NameLike: strings.TrimSpace(query.Get("q")),
	}

	var err error
	if filter.From, err = utils.ParseDate(query.Get("from"), h.location); err != nil {
		return filter, errors.New("from must be a date in YYYY-MM-DD format")
	}
	if filter.To, err = utils.ParseDate(query.Get("to"), h.location); err != nil {
		return filter, errors.New("to must be a date in YYYY-MM-DD format")
	}
	if date := query.Get("date"); date != "" {
		day, err := utils.ParseDate(date, h.location)
		if err != nil {
			return filter, errors.New("date must be a date in YYYY-MM-DD format")
		}
		filter.From, filter.To = day, day
	}
	if err := utils.ValidateDateRange(filter.From, filter.To); err != nil {
		return filter, err
	}

	if userID := query.Get("userId"); userID != "" && userID != "all" {
		id, err := strconv.ParseInt(userID, 10, 64)
		if err != nil || id <= 0 {
			return filter, errors.New("invalid user id")
		}
		filter.UserID = id
	}

	return filter, nil
}

// GetDailyRecords returns the caller's own records for merchandisers and
// every record for admins.
func (h *Handler) GetDailyRecords(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	filter, err := h.parseRecordFilter(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	if !myInfo.Role.IsAdmin() {
		filter.UserID = myInfo.ID
		filter.NameLike = ""
	}

	records, err := h.repository.GetDailyRecords(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if !myInfo.Role.IsAdmin() {
		for _, rec := range records {
			rec.User = nil
		}
	}

	h.successResponse(w, r, "records loaded", records)
}

func (h *Handler) GetAllDailyRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseRecordFilter(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	records, err := h.repository.GetDailyRecords(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "records loaded", records)
}

func (h *Handler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	now := h.today()

	weekStart, weekEnd := kpi.WeekRange(now)
	monthStart, monthEnd := kpi.MonthRange(now)

	filter := domain.RecordFilter{
		UserID: myInfo.ID,
		From:   earliest(weekStart, monthStart),
		To:     latest(weekEnd, monthEnd),
	}

	records, err := h.repository.GetDailyRecords(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "stats loaded", kpi.Stats(now, records, h.config.KPI.DailyTarget))
}

func (h *Handler) GetAdminOverview(w http.ResponseWriter, r *http.Request) {
	ref := h.today()
	if month := r.URL.Query().Get("month"); month != "" {
		m, err := time.ParseInLocation("2006-01", month, h.location)
		if err != nil {
			h.badRequest(w, r, errors.New("month must be in YYYY-MM format"))
			return
		}
		ref = m
	}

	merchandisers, err := h.repository.GetUsersByRole(domain.RoleMerchandiser)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	start, end := kpi.MonthRange(ref)
	records, err := h.repository.GetDailyRecords(domain.RecordFilter{From: start, To: end})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "overview loaded", kpi.Report(ref, merchandisers, records, h.config.KPI.DailyTarget))
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
