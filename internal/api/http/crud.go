package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/audit"
	"plant-monitor/internal/auth"
	"plant-monitor/internal/lifecycle"
)

const maxBodyBytes = 1 << 20

// Store is the persistence contract behind a CRUD resource. Get returns nil, nil
// for a missing record; Update and Delete return a not-found error instead.
type Store[T any] interface {
	List(ctx context.Context, filter lifecycle.ListFilter) ([]T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, id int64, item *T) error
	Delete(ctx context.Context, id int64) error
}

// SubresourceFunc serves /<prefix>/{id}/<name>.
type SubresourceFunc func(w http.ResponseWriter, r *http.Request, id int64)

// Resource serves list/get/create/replace/merge/soft-delete for one entity.
type Resource[T any] struct {
	name         string
	prefix       string
	store        Store[T]
	audit        audit.Logger
	logger       *log.Logger
	subresources map[string]SubresourceFunc
}

// ResourceOption configures a resource.
type ResourceOption[T any] func(*Resource[T])

// WithAudit records mutations.
func WithAudit[T any](logger audit.Logger) ResourceOption[T] {
	return func(r *Resource[T]) {
		r.audit = logger
	}
}

// WithLogger sets the error logger.
func WithLogger[T any](logger *log.Logger) ResourceOption[T] {
	return func(r *Resource[T]) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSubresource routes /<prefix>/{id}/<name> to fn.
func WithSubresource[T any](name string, fn SubresourceFunc) ResourceOption[T] {
	return func(r *Resource[T]) {
		if name != "" && fn != nil {
			r.subresources[name] = fn
		}
	}
}

// NewResource constructs a resource mounted at prefix (e.g. "/plants/").
func NewResource[T any](name, prefix string, store Store[T], opts ...ResourceOption[T]) (*Resource[T], error) {
	if store == nil {
		return nil, errors.New(name + " resource: nil store")
	}
	res := &Resource[T]{
		name:         name,
		prefix:       prefix,
		store:        store,
		logger:       log.Default(),
		subresources: make(map[string]SubresourceFunc),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(res)
		}
	}
	return res, nil
}

// ServeHTTP dispatches on path shape and method.
func (h *Resource[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := SplitPath(r.URL.Path, h.prefix)
	switch len(parts) {
	case 0:
		h.serveCollection(w, r)
		return
	case 1, 2:
	default:
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := ParseID(parts[0])
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(parts) == 2 {
		fn, ok := h.subresources[parts[1]]
		if !ok {
			WriteError(w, http.StatusNotFound, "not found")
			return
		}
		fn(w, r, id)
		return
	}
	h.serveItem(w, r, id)
}

func (h *Resource[T]) serveCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := lifecycle.ListFilter{IncludeInactive: parseBool(r.URL.Query().Get("include_inactive"))}
		items, err := h.store.List(r.Context(), filter)
		if err != nil {
			RespondError(w, h.logger, h.name+" list", err)
			return
		}
		if items == nil {
			items = []T{}
		}
		WriteJSON(w, http.StatusOK, items)
	case http.MethodPost:
		body, item, err := decodeBody[T](r, nil)
		if err != nil {
			RespondError(w, h.logger, h.name+" create", err)
			return
		}
		if err := h.store.Create(r.Context(), item); err != nil {
			RespondError(w, h.logger, h.name+" create", err)
			return
		}
		h.record(r, "create", idOf(item), body)
		WriteJSON(w, http.StatusCreated, item)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Resource[T]) serveItem(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		item, err := h.store.Get(r.Context(), id)
		if err != nil {
			RespondError(w, h.logger, h.name+" get", err)
			return
		}
		if item == nil {
			WriteError(w, http.StatusNotFound, h.name+" not found")
			return
		}
		WriteJSON(w, http.StatusOK, item)
	case http.MethodPut:
		body, item, err := decodeBody[T](r, nil)
		if err != nil {
			RespondError(w, h.logger, h.name+" replace", err)
			return
		}
		h.update(w, r, id, item, body, "replace")
	case http.MethodPatch:
		current, err := h.store.Get(r.Context(), id)
		if err != nil {
			RespondError(w, h.logger, h.name+" patch", err)
			return
		}
		if current == nil {
			WriteError(w, http.StatusNotFound, h.name+" not found")
			return
		}
		body, item, err := decodeBody(r, current)
		if err != nil {
			RespondError(w, h.logger, h.name+" patch", err)
			return
		}
		h.update(w, r, id, item, body, "patch")
	case http.MethodDelete:
		if err := h.store.Delete(r.Context(), id); err != nil {
			RespondError(w, h.logger, h.name+" delete", err)
			return
		}
		h.record(r, "delete", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Resource[T]) update(w http.ResponseWriter, r *http.Request, id int64, item *T, body []byte, action string) {
	if err := h.store.Update(r.Context(), id, item); err != nil {
		RespondError(w, h.logger, h.name+" "+action, err)
		return
	}
	h.record(r, action, id, body)
	WriteJSON(w, http.StatusOK, item)
}

func (h *Resource[T]) record(r *http.Request, action string, id int64, body []byte) {
	if h.audit == nil {
		return
	}
	var metadata []byte
	if len(body) > 0 && json.Valid(body) {
		metadata = body
	}
	entry := audit.FromRequest(
		r,
		auth.SubjectFromContext(r.Context()),
		string(auth.RoleFromContext(r.Context())),
		action,
		h.name,
		strconv.FormatInt(id, 10),
		metadata,
	)
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Printf("%s audit: %v", h.name, err)
	}
}

// decodeBody reads a JSON object into base, or into a new T when base is nil.
func decodeBody[T any](r *http.Request, base *T) ([]byte, *T, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, apperrors.Invalid("read body error")
	}
	defer r.Body.Close()

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil, apperrors.Invalid("request body must be a JSON object")
	}
	item := base
	if item == nil {
		item = new(T)
	}
	if err := json.Unmarshal(trimmed, item); err != nil {
		return nil, nil, apperrors.Invalidf("invalid json: %v", err)
	}
	return trimmed, item, nil
}

// idOf reads the "id" field of a JSON-serializable record.
func idOf(item any) int64 {
	data, err := json.Marshal(item)
	if err != nil {
		return 0
	}
	var probe struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0
	}
	return probe.ID
}
