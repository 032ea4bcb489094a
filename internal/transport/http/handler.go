package http

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/cwrk-planet/studyroom/internal/auth"
	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/service"
	"github.com/cwrk-planet/studyroom/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	svc      *service.Services
	validate *validator.Validate
}

func NewHandler(svc *service.Services) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{svc: svc, validate: v}
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid JSON", nil)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		validationFailed(w, r, err)
		return false
	}
	return true
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var in CreateRoomRequest
	if !h.decode(w, r, &in) {
		return
	}
	id := auth.IdentityFromCtx(r.Context())

	room, err := h.svc.Rooms.CreateRoom(r.Context(), id.UserID, in.Name, in.Description, domain.ParseMode(in.Mode))
	if err != nil {
		fail(w, r, "handler.CreateRoom", err)
		return
	}
	httputil.Created(w, mapRoom(room, h.svc.Timer.Now()))
}

// GET /rooms and GET /users/{userId}/rooms. Both list the caller's rooms;
// the path parameter is not trusted over the verified identity.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromCtx(r.Context())

	rooms, err := h.svc.Rooms.ListRoomsForUser(r.Context(), id.UserID)
	if err != nil {
		fail(w, r, "handler.ListRooms", err)
		return
	}
	now := h.svc.Timer.Now()
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for i := range rooms {
		resp.Items = append(resp.Items, mapRoom(&rooms[i], now))
	}
	httputil.OK(w, resp)
}

// POST /join
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var in JoinRoomRequest
	if !h.decode(w, r, &in) {
		return
	}
	id := auth.IdentityFromCtx(r.Context())

	room, err := h.svc.Rooms.JoinRoom(r.Context(), id.UserID, in.InviteCode)
	if err != nil {
		fail(w, r, "handler.JoinRoom", err)
		return
	}
	httputil.OK(w, mapRoom(room, h.svc.Timer.Now()))
}

// GET /rooms/{roomId}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.svc.Rooms.GetRoom(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		fail(w, r, "handler.GetRoom", err)
		return
	}
	httputil.OK(w, mapRoom(room, h.svc.Timer.Now()))
}

// POST /rooms/{roomId}/timer
func (h *Handler) ControlTimer(w http.ResponseWriter, r *http.Request) {
	var in TimerRequest
	if !h.decode(w, r, &in) {
		return
	}
	action, err := domain.ParseTimerAction(in.Action)
	if err != nil {
		fail(w, r, "handler.ControlTimer", err)
		return
	}

	room, err := h.svc.Timer.Control(r.Context(), chi.URLParam(r, "roomId"), action)
	if err != nil {
		fail(w, r, "handler.ControlTimer", err)
		return
	}
	httputil.OK(w, mapRoom(room, h.svc.Timer.Now()))
}

// GET /rooms/{roomId}/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.Tasks.ListTasks(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		fail(w, r, "handler.ListTasks", err)
		return
	}
	resp := TasksListResponse{Items: make([]TaskItem, 0, len(tasks))}
	for _, t := range tasks {
		resp.Items = append(resp.Items, mapTask(t))
	}
	httputil.OK(w, resp)
}

// POST /rooms/{roomId}/tasks
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	var in AddTaskRequest
	if !h.decode(w, r, &in) {
		return
	}
	id := auth.IdentityFromCtx(r.Context())

	task, err := h.svc.Tasks.AddTask(r.Context(), chi.URLParam(r, "roomId"), id, in.Text)
	if err != nil {
		fail(w, r, "handler.AddTask", err)
		return
	}
	httputil.Created(w, mapTask(*task))
}

// PATCH /rooms/{roomId}/tasks/{taskId}
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromCtx(r.Context())

	task, err := h.svc.Tasks.ToggleTask(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "taskId"), id.UserID)
	if err != nil {
		fail(w, r, "handler.ToggleTask", err)
		return
	}
	httputil.OK(w, mapTask(*task))
}

// GET /rooms/{roomId}/messages?after=&limit=
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	items, next, err := h.svc.Chat.History(r.Context(), chi.URLParam(r, "roomId"), r.URL.Query().Get("after"), limit)
	if err != nil {
		fail(w, r, "handler.ChatHistory", err)
		return
	}
	resp := ChatHistoryResponse{Items: make([]ChatMessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		resp.Items = append(resp.Items, mapMessage(m))
	}
	httputil.OK(w, resp)
}

// POST /rooms/{roomId}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in SendMessageRequest
	if !h.decode(w, r, &in) {
		return
	}
	id := auth.IdentityFromCtx(r.Context())

	msg, err := h.svc.Chat.Save(r.Context(), chi.URLParam(r, "roomId"), id, in.Text)
	if err != nil {
		fail(w, r, "handler.SendMessage", err)
		return
	}
	httputil.Created(w, mapMessage(*msg))
}

// GET /stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromCtx(r.Context())

	st, err := h.svc.Stats.UserStats(r.Context(), id.UserID)
	if err != nil {
		fail(w, r, "handler.Stats", err)
		return
	}
	httputil.OK(w, st)
}
