package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/varsla/varsla/internal/rest"
	"github.com/varsla/varsla/pkg/recurrence"
)

type EventHandler struct {
	service EventService
}

func NewEventHandler(service EventService) *EventHandler {
	return &EventHandler{service: service}
}

type EventDTO struct {
	Uid             string         `json:"uid"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Location        string         `json:"location,omitempty"`
	StartTime       time.Time      `json:"start"`
	EndTime         time.Time      `json:"end"`
	AllDay          bool           `json:"allDay"`
	RecurrenceRule  string         `json:"recurrenceRule,omitempty"`
	RecurrenceEnd   *time.Time     `json:"recurrenceEnd,omitempty"`
	ReminderMinutes int            `json:"reminderMinutes,omitempty"`
	Members         []MemberDTO    `json:"members,omitempty"`
	Exceptions      []ExceptionDTO `json:"exceptions,omitempty"`
}

type MemberDTO struct {
	UserId        int    `json:"userId"`
	Participation string `json:"participation"`
}

type ExceptionDTO struct {
	OriginalStart time.Time  `json:"originalStart"`
	Deleted       bool       `json:"deleted"`
	NewStart      *time.Time `json:"newStart,omitempty"`
	NewTitle      *string    `json:"newTitle,omitempty"`
}

func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	fromString := r.URL.Query().Get("from")
	toString := r.URL.Query().Get("to")
	from, err := time.Parse(time.RFC3339, fromString)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be in RFC3339 format")
		return
	}
	to, err := time.Parse(time.RFC3339, toString)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be in RFC3339 format")
		return
	}

	events, err := h.service.GetVisibleEvents(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateEvent(r.Context(), dtoToEvent(dto))
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, "Invalid event", err.Error())
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(eventToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUid(w, r)
	if !ok {
		return
	}

	e, err := h.service.GetEvent(r.Context(), uid)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(eventToDTO(*e)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUid(w, r)
	if !ok {
		return
	}

	var dto EventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	e := dtoToEvent(dto)
	e.Uid = uid

	updated, err := h.service.UpdateEvent(r.Context(), e)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, "Invalid event", err.Error())
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(eventToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUid(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteEvent(r.Context(), uid); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) SetMembers(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUid(w, r)
	if !ok {
		return
	}

	var dtos []MemberDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	members := make([]Member, 0, len(dtos))
	for _, dto := range dtos {
		members = append(members, Member{EventUid: uid, UserId: dto.UserId, Participation: Participation(dto.Participation)})
	}

	if err := h.service.SetMembers(r.Context(), uid, members); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) AddException(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUid(w, r)
	if !ok {
		return
	}

	var dto ExceptionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	exception := Exception{
		EventUid:      uid,
		OriginalStart: dto.OriginalStart,
		Deleted:       dto.Deleted,
		NewStart:      dto.NewStart,
		NewTitle:      dto.NewTitle,
	}
	if err := h.service.AddException(r.Context(), exception); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) RemoveException(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUid(w, r)
	if !ok {
		return
	}

	originalStart, err := time.Parse(time.RFC3339, r.URL.Query().Get("originalStart"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid originalStart format", "'originalStart' must be in RFC3339 format")
		return
	}

	if err := h.service.RemoveException(r.Context(), uid, originalStart); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func eventUid(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	uid, err := uuid.Parse(vars["eventUid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event uid", "'eventUid' must be a UUID")
		return uuid.Nil, false
	}
	return uid, true
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rest.ErrorResponse{Error: message, Details: details}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func isValidationError(err error) bool {
	var malformed *recurrence.MalformedRuleError
	return errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrInvalidSeriesEnd) ||
		errors.Is(err, ErrNegativeReminder) ||
		errors.Is(err, ErrMissingTitle) ||
		errors.As(err, &malformed)
}

func eventToDTO(e Event) EventDTO {
	members := make([]MemberDTO, 0, len(e.Members))
	for _, m := range e.Members {
		members = append(members, MemberDTO{UserId: m.UserId, Participation: string(m.Participation)})
	}
	exceptions := make([]ExceptionDTO, 0, len(e.Exceptions))
	for _, ex := range e.Exceptions {
		exceptions = append(exceptions, ExceptionDTO{
			OriginalStart: ex.OriginalStart,
			Deleted:       ex.Deleted,
			NewStart:      ex.NewStart,
			NewTitle:      ex.NewTitle,
		})
	}
	return EventDTO{
		Uid:             e.Uid.String(),
		Title:           e.Title,
		Description:     e.Description,
		Location:        e.Location,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		AllDay:          e.AllDay,
		RecurrenceRule:  e.RecurrenceRule,
		RecurrenceEnd:   e.RecurrenceEnd,
		ReminderMinutes: e.ReminderMinutes,
		Members:         members,
		Exceptions:      exceptions,
	}
}

func dtoToEvent(dto EventDTO) Event {
	e := Event{
		Title:           dto.Title,
		Description:     dto.Description,
		Location:        dto.Location,
		StartTime:       dto.StartTime,
		EndTime:         dto.EndTime,
		AllDay:          dto.AllDay,
		RecurrenceRule:  dto.RecurrenceRule,
		RecurrenceEnd:   dto.RecurrenceEnd,
		ReminderMinutes: dto.ReminderMinutes,
	}
	for _, m := range dto.Members {
		e.Members = append(e.Members, Member{UserId: m.UserId, Participation: Participation(m.Participation)})
	}
	for _, ex := range dto.Exceptions {
		e.Exceptions = append(e.Exceptions, Exception{
			OriginalStart: ex.OriginalStart,
			Deleted:       ex.Deleted,
			NewStart:      ex.NewStart,
			NewTitle:      ex.NewTitle,
		})
	}
	return e
}
