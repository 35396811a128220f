package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"msgboard/internal/model"
	"msgboard/internal/observability"
	"msgboard/internal/store"
)

// maxBodyBytes はリクエストボディの上限 (1MB)
const maxBodyBytes = 1 << 20

// GetMessages handles GET /api/messages/
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	log := h.Logger.With(zap.String("route", "GET /api/messages/"), zap.String("remote", r.RemoteAddr))

	msgList, err := h.Store.ListAll(r.Context())
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrUnavailable) {
			status = http.StatusInternalServerError
		}
		log.Error("list messages failed", zap.Int("status", status), zap.Error(err))
		fail(w, status)
		return
	}

	if msgList == nil {
		msgList = []model.Message{}
	}

	log.Info("returned messages", zap.Int("count", len(msgList)))
	writeJSON(w, http.StatusOK, msgList)
}

// GetMessage handles GET /api/message/{id}
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log := h.Logger.With(zap.String("route", "GET /api/message/{id}"), zap.String("id", id))

	if id == "" {
		log.Error("request does not contain an id")
		fail(w, http.StatusBadRequest)
		return
	}

	msg, err := h.Store.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Warn("could not find the message")
		fail(w, http.StatusBadRequest)
		return
	case err != nil:
		log.Error("get message failed", zap.Error(err))
		fail(w, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// CreateMessage handles PUT /api/message/
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	log := h.Logger.With(zap.String("route", "PUT /api/message/"), zap.String("remote", r.RemoteAddr))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body model.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Error("body missing or not valid JSON", zap.Error(err))
		fail(w, http.StatusBadRequest)
		return
	}

	if err := h.Validate.Struct(body); err != nil {
		log.Error("request missing contents", zap.Error(err))
		fail(w, http.StatusBadRequest)
		return
	}

	msg, err := h.Store.Create(r.Context(), body.Text, body.Author)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrUnavailable) {
			status = http.StatusInternalServerError
		}
		log.Error("create message failed", zap.Int("status", status), zap.Error(err))
		fail(w, status)
		return
	}

	observability.MessagesCreatedTotal.Inc()
	log.Info("message added", zap.String("id", msg.ID), zap.String("usr", msg.Author))

	h.publish(model.CreatedEventMessage{Type: model.EventMessageCreated, Message: msg})

	writeJSON(w, http.StatusOK, msg)
}
