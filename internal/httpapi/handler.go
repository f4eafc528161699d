package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"rental-registry/internal/apperror"
	"rental-registry/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service  service.Manager
	logger   *logrus.Logger
	router   *mux.Router
	validate *validator.Validate
}

func NewHandler(svc service.Manager, logger *logrus.Logger) *Handler {
	h := &Handler{
		service:  svc,
		logger:   logger,
		router:   mux.NewRouter(),
		validate: newValidator(),
	}
	h.routes()
	return h
}

func (h *Handler) routes() {
	r := h.router
	r.Use(requestIDMiddleware, h.loggingMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.HandleFunc("/nodes", h.handleCreateNode).Methods(http.MethodPost)
	r.HandleFunc("/nodes/{id}", h.handleGetNode).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}", h.handleUpdateNode).Methods(http.MethodPatch)
	r.HandleFunc("/nodes/{id}", h.handleDeleteNode).Methods(http.MethodDelete)
	r.HandleFunc("/nodes/{id}/level", h.handleNodeLevel).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}/root", h.handleNodeRoot).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}/ancestors", h.handleNodeAncestors).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}/descendants", h.handleNodeDescendants).Methods(http.MethodGet)
	r.HandleFunc("/nodes/{id}/assignments", h.handleNodeAssignments).Methods(http.MethodGet)

	r.HandleFunc("/holders", h.handleCreateHolder).Methods(http.MethodPost)

	r.HandleFunc("/assignments", h.handleCreateAssignment).Methods(http.MethodPost)
	r.HandleFunc("/assignments/{id}", h.handleGetAssignment).Methods(http.MethodGet)
	r.HandleFunc("/assignments/by-number/{number}", h.handleGetAssignmentByNumber).Methods(http.MethodGet)
	r.HandleFunc("/assignments/{id}", h.handleUpdateAssignment).Methods(http.MethodPatch)
	r.HandleFunc("/assignments/{id}", h.handleDeleteAssignment).Methods(http.MethodDelete)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate decodes a strict JSON body into target and runs its validate tags.
func (h *Handler) decodeAndValidate(r *http.Request, target interface{}) error {
	if err := decodeJSON(r, target); err != nil {
		return err
	}
	if err := h.validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return describeValidationError(verrs[0])
		}
		return err
	}
	return nil
}

func describeValidationError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Errorf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Errorf("%s must be a positive integer", fe.Field())
	case "datetime":
		return fmt.Errorf("%s must be in YYYY-MM-DD format", fe.Field())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}

func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var details map[string]interface{}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		details = appErr.Details
	}

	switch code := apperror.GetCode(err); code {
	case apperror.CodeValidation, apperror.CodeInvalidRange:
		writeError(w, http.StatusBadRequest, err.Error(), errorBody(code, details))
	case apperror.CodeIneligibleHolder:
		writeError(w, http.StatusUnprocessableEntity, err.Error(), errorBody(code, details))
	case apperror.CodeNotFound:
		writeError(w, http.StatusNotFound, err.Error(), errorBody(code, details))
	case apperror.CodeConflict, apperror.CodeOverlap, apperror.CodeCircularReference:
		writeError(w, http.StatusConflict, err.Error(), errorBody(code, details))
	case apperror.CodeConcurrencyConflict:
		writeError(w, http.StatusServiceUnavailable, err.Error(), errorBody(code, details))
	default:
		h.logger.WithError(err).WithField("request_id", requestIDFrom(r.Context())).Error("unexpected error")
		writeError(w, http.StatusInternalServerError, "internal server error", errorBody(apperror.CodeInternal, nil))
	}
}

func errorBody(code apperror.Code, details map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{"code": code}
	if len(details) > 0 {
		body["details"] = details
	}
	return body
}

func decodeJSON(r *http.Request, target interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return errors.New("invalid JSON body")
	}

	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != io.EOF {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, extra map[string]interface{}) {
	body := map[string]interface{}{
		"error": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	if _, ok := body["code"]; !ok && status == http.StatusBadRequest {
		body["code"] = apperror.CodeValidation
	}
	writeJSON(w, status, body)
}

func pathID(r *http.Request) (uint, error) {
	return parseUintID(mux.Vars(r)["id"])
}

func parseUintID(raw string) (uint, error) {
	id64, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id64 == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id64), nil
}

func parseBoolQuery(r *http.Request, name string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return parsed, nil
}

func parseDate(field string, raw string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be in YYYY-MM-DD format", field)
	}
	return parsed, nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// optionalUint tells an absent field apart from an explicit null.
type optionalUint struct {
	Set   bool
	Value *uint
}

func (o *optionalUint) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}

	var value uint
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

// optionalDate is optionalUint for YYYY-MM-DD strings; null clears the date.
type optionalDate struct {
	Set   bool
	Value *string
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}
