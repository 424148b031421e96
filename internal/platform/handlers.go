package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"msgmap/internal/messages"
	"msgmap/util"

	"github.com/go-chi/chi/v5"
)

// Publisher publishes a payload as the given message type and returns the
// subject it went to.
type Publisher interface {
	Publish(ctx context.Context, messageType string, payload []byte) (string, error)
}

// API serves the registry over HTTP. pub may be nil, in which case publishing
// answers 503.
type API struct {
	reg *messages.Registry
	pub Publisher
}

// NewAPI creates the HTTP handlers for reg.
func NewAPI(reg *messages.Registry, pub Publisher) *API {
	return &API{reg: reg, pub: pub}
}

// MessageInfo is the JSON shape of one resolved message.
type MessageInfo struct {
	MessageType string `json:"message_type"`
	Kind        string `json:"kind"`
	WireName    string `json:"wire_name"`
	Subject     string `json:"subject"`
}

// Health returns 200 OK.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListMessages returns the command and event names, optionally narrowed to
// the ones whose subject matches ?subject=<pattern>.
func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("subject")
	filter := func(names []string) []string {
		out := make([]string, 0, len(names))
		for _, name := range names {
			if pattern != "" {
				subj, err := a.reg.SubjectFor(name)
				if err != nil || !util.SubjectMatches(pattern, subj) {
					continue
				}
			}
			out = append(out, name)
		}
		return out
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"commands": filter(a.reg.AllCommandNames()),
		"events":   filter(a.reg.AllEventNames()),
	})
}

// GetMessage resolves a message type to its wire name and subject.
func (a *API) GetMessage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "messageType")
	wire, err := a.reg.MessageTypeToWireName(name)
	RegistryLookups.WithLabelValues("MessageTypeToWireName", lookupResult(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.info(name, wire))
}

// GetFields lists the properties of a message type.
func (a *API) GetFields(w http.ResponseWriter, r *http.Request) {
	fields, err := a.reg.FieldSchemas(chi.URLParam(r, "messageType"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// GetWire resolves a wire name back to its message type. Wire names used by
// both kinds need ?kind=command or ?kind=event.
func (a *API) GetWire(w http.ResponseWriter, r *http.Request) {
	wire := chi.URLParam(r, "wireName")

	var (
		name string
		err  error
		op   = "WireNameToMessageType"
	)
	if k := r.URL.Query().Get("kind"); k != "" {
		op = "LookupWireName"
		var kind messages.Kind
		if kind, err = messages.ParseKind(k); err == nil {
			name, err = a.reg.LookupWireName(kind, wire)
		}
	} else {
		name, err = a.reg.WireNameToMessageType(wire)
	}
	RegistryLookups.WithLabelValues(op, lookupResult(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.info(name, wire))
}

// Validate checks a posted envelope and reports what it carries.
func (a *API) Validate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	msg, err := a.reg.Unwrap(data)
	RegistryLookups.WithLabelValues("Unwrap", lookupResult(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.info(msg.MessageType, msg.WireName))
}

// PublishMessage wraps the request body as messageType and publishes it. The
// body may be JSON or form data; form values are coerced using the message's
// field types.
func (a *API) PublishMessage(w http.ResponseWriter, r *http.Request) {
	if a.pub == nil {
		http.Error(w, "publishing is not available", http.StatusServiceUnavailable)
		return
	}
	name := chi.URLParam(r, "messageType")
	kind, err := a.reg.KindOf(name)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload []byte
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if payload, err = io.ReadAll(io.LimitReader(r.Body, 1<<20)); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
	} else {
		// The constant 10 << 20 limits the total memory used for parts to 10MB.
		if err := r.ParseMultipartForm(10 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}
		if payload, err = a.formPayload(name, r); err != nil {
			writeError(w, err)
			return
		}
	}

	subject, err := a.pub.Publish(r.Context(), name, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	MessagesPublished.WithLabelValues(kind.String()).Inc()
	slog.Info("Message published", "message_type", name, "subject", subject)
	writeJSON(w, http.StatusAccepted, map[string]string{"subject": subject})
}

func (a *API) formPayload(name string, r *http.Request) ([]byte, error) {
	fields, err := a.reg.FieldSchemas(name)
	if err != nil {
		return nil, err
	}
	types := make(map[string]messages.FieldType, len(fields))
	for _, f := range fields {
		types[f.Name] = f.Type
	}

	data := make(map[string]any, len(r.Form))
	for key, values := range r.Form {
		if len(values) == 0 {
			continue
		}
		switch types[key] {
		case messages.FieldTypeArray:
			data[key] = values
		case messages.FieldTypeBoolean:
			data[key] = coerce(values[0], func(s string) (any, error) { return strconv.ParseBool(s) })
		case messages.FieldTypeNumber:
			data[key] = coerce(values[0], func(s string) (any, error) { return strconv.ParseFloat(s, 64) })
		default:
			data[key] = values[0]
		}
	}
	return json.Marshal(data)
}

// coerce returns the parsed value, or s itself so schema validation reports it.
func coerce(s string, parse func(string) (any, error)) any {
	v, err := parse(s)
	if err != nil {
		return s
	}
	return v
}

// Catalogue renders the message catalogue as HTML.
func (a *API) Catalogue(w http.ResponseWriter, r *http.Request) {
	html, err := util.CatalogueHTML(a.reg)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, "<!doctype html>\n<meta charset=\"utf-8\">\n<title>msgmap catalogue</title>\n")
	_, _ = io.WriteString(w, html)
}

func (a *API) info(name, wire string) MessageInfo {
	kind, _ := messages.ClassifyName(name)
	return MessageInfo{
		MessageType: name,
		Kind:        kind.String(),
		WireName:    wire,
		Subject:     messages.Subject(kind, wire),
	}
}

// ===== helpers =====

func isNotFound(err error) bool { return messages.IsNotFound(err) }

func isInvalid(err error) bool { return errors.Is(err, messages.ErrValidation) }

func statusFor(err error) int {
	switch {
	case isNotFound(err):
		return http.StatusNotFound
	case isInvalid(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
