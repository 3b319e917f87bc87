package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/changheecho2/banju/internal/api/middleware"
	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/auth"
	"github.com/changheecho2/banju/internal/services"
	"github.com/changheecho2/banju/internal/storage"
)

const maxRequestBody = 64 << 10

// JsonApiRequest defines the expected structure for JSON API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for JSON API responses.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    apperr.Code `json:"code,omitempty"`
}

// apiMethodFunc defines the signature for handler methods. claims is nil for guests.
type apiMethodFunc func(c *gin.Context, claims *auth.Claims, args json.RawMessage) (interface{}, *ApiError)

// ApiError is a method failure as reported to the client.
type ApiError struct {
	Code    apperr.Code
	Message string
}

func (e *ApiError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func NewApiError(code apperr.Code, message string) *ApiError {
	return &ApiError{Code: code, Message: message}
}

// fromError converts a service error. Internal causes are logged, not returned.
func fromError(method string, err error) *ApiError {
	code := apperr.CodeOf(err)
	if code == apperr.CodeInternal {
		log.Printf("ERROR: %s: %v", method, err)
	}
	return NewApiError(code, apperr.MessageOf(err))
}

// JsonApiHandler holds dependencies for handling JSON API requests.
type JsonApiHandler struct {
	requestService     services.IRequestService
	lifecycleService   services.ILifecycleService
	accompanistService services.IAccompanistService
	storageService     storage.IS3Storage // nil when uploads are not configured
	methods            map[string]apiMethodFunc
}

// NewJsonApiHandler creates a new handler for the JSON API endpoint.
func NewJsonApiHandler(
	requestService services.IRequestService,
	lifecycleService services.ILifecycleService,
	accompanistService services.IAccompanistService,
	storageService storage.IS3Storage,
) *JsonApiHandler {
	h := &JsonApiHandler{
		requestService:     requestService,
		lifecycleService:   lifecycleService,
		accompanistService: accompanistService,
		storageService:     storageService,
	}
	h.methods = map[string]apiMethodFunc{
		"ping":                  h.ping,
		"createRequest":         h.createRequest,
		"createCheckoutSession": h.acceptRequest,
		"acceptRequest":         h.acceptRequest,
		"rejectRequest":         h.rejectRequest,
		"getRequest":            h.getRequest,
		"listMyRequests":        h.listMyRequests,
		"getRequestContact":     h.getRequestContact,
		"getMyProfile":          h.getMyProfile,
		"saveProfile":           h.saveProfile,
		"getPortfolioUploadURL": h.getPortfolioUploadURL,
	}
	return h
}

// HandleRequest is the main entry point for POST /v1/api
func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		h.sendErrorResponse(c, NewApiError(apperr.CodeInvalidArgument, "Failed to read request body"))
		return
	}

	var req JsonApiRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.sendErrorResponse(c, NewApiError(apperr.CodeInvalidArgument, "Invalid JSON request format"))
		return
	}

	handlerFunc, ok := h.methods[req.Method]
	if !ok {
		h.sendErrorResponse(c, NewApiError(apperr.CodeInvalidArgument, fmt.Sprintf("Unknown method: %s", req.Method)))
		return
	}

	claims := middleware.ClaimsFrom(c)
	if claims == nil && methodRequiresAuth(req.Method) {
		h.sendErrorResponse(c, NewApiError(apperr.CodeUnauthenticated, apperr.MsgLoginRequired))
		return
	}

	result, apiErr := handlerFunc(c, claims, req.Arguments)
	if apiErr != nil {
		h.sendErrorResponse(c, apiErr)
		return
	}

	h.sendSuccessResponse(c, result)
}

// methodRequiresAuth checks if a given API method requires authentication.
func methodRequiresAuth(method string) bool {
	switch method {
	case "createCheckoutSession",
		"acceptRequest",
		"rejectRequest",
		"getRequest",
		"listMyRequests",
		"getRequestContact",
		"getMyProfile",
		"saveProfile",
		"getPortfolioUploadURL":
		return true
	case "ping",
		"createRequest":
		return false
	default:
		log.Printf("WARN: methodRequiresAuth check for unlisted method '%s', defaulting to true", method)
		return true
	}
}

func (h *JsonApiHandler) sendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: data})
}

func (h *JsonApiHandler) sendErrorResponse(c *gin.Context, apiErr *ApiError) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Error: apiErr.Message, Code: apiErr.Code})
}

// parseRequiredSingleArgFromArray takes the raw JSON message for 'arguments',
// expects it to be a JSON array with at least one element, and returns that
// first element.
func parseRequiredSingleArgFromArray(rawArgPayload json.RawMessage) (json.RawMessage, *ApiError) {
	if rawArgPayload == nil {
		return nil, NewApiError(apperr.CodeInvalidArgument, "Missing 'arguments' field; expected a JSON array with one argument.")
	}

	var argArray []json.RawMessage
	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return nil, NewApiError(apperr.CodeInvalidArgument, "Invalid 'arguments': expected a JSON array.")
	}
	if len(argArray) == 0 {
		return nil, NewApiError(apperr.CodeInvalidArgument, "Invalid 'arguments': array is empty, but one argument is expected.")
	}
	return argArray[0], nil
}

// decodeSingleArg unmarshals the first argument into targetVarPtr.
func decodeSingleArg(rawArgPayload json.RawMessage, targetVarPtr interface{}) *ApiError {
	arg, apiErr := parseRequiredSingleArgFromArray(rawArgPayload)
	if apiErr != nil {
		return apiErr
	}
	if err := json.Unmarshal(arg, targetVarPtr); err != nil {
		return NewApiError(apperr.CodeInvalidArgument, "Invalid format for argument: the first element in 'arguments' array has unexpected structure.")
	}
	return nil
}

// --- API Method Implementations ---

func (h *JsonApiHandler) ping(c *gin.Context, _ *auth.Claims, _ json.RawMessage) (interface{}, *ApiError) {
	return "pong", nil
}

type CreateRequestResponse struct {
	RequestID string `json:"requestId"`
}

func (h *JsonApiHandler) createRequest(c *gin.Context, _ *auth.Claims, args json.RawMessage) (interface{}, *ApiError) {
	arg, apiErr := parseRequiredSingleArgFromArray(args)
	if apiErr != nil {
		return nil, apiErr
	}

	violations, err := validateShape(c.Request.Context(), createRequestArgSchema, arg)
	if err != nil {
		return nil, NewApiError(apperr.CodeInvalidArgument, "Invalid format for argument: expected a JSON object.")
	}
	if violations != "" {
		log.Printf("DEBUG: createRequest argument rejected by schema: %s", violations)
		return nil, NewApiError(apperr.CodeInvalidArgument, "요청 형식이 올바르지 않습니다.")
	}

	var in services.CreateRequestInput
	if err := json.Unmarshal(arg, &in); err != nil {
		return nil, NewApiError(apperr.CodeInvalidArgument, "요청 형식이 올바르지 않습니다.")
	}

	created, err := h.requestService.CreateRequest(c.Request.Context(), in)
	if err != nil {
		return nil, fromError("createRequest", err)
	}
	return CreateRequestResponse{RequestID: created.ID}, nil
}

// RequestIDArgs is the argument of every single-request method.
type RequestIDArgs struct {
	RequestID string `json:"requestId"`
}

func (h *JsonApiHandler) requestIDArg(args json.RawMessage) (string, *ApiError) {
	var in RequestIDArgs
	if apiErr := decodeSingleArg(args, &in); apiErr != nil {
		return "", apiErr
	}
	return strings.TrimSpace(in.RequestID), nil
}

func (h *JsonApiHandler) acceptRequest(c *gin.Context, claims *auth.Claims, args json.RawMessage) (interface{}, *ApiError) {
	requestID, apiErr := h.requestIDArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	outcome, err := h.lifecycleService.Accept(c.Request.Context(), requestID, claims.UID)
	if err != nil {
		return nil, fromError("acceptRequest", err)
	}
	return outcome, nil
}

func (h *JsonApiHandler) rejectRequest(c *gin.Context, claims *auth.Claims, args json.RawMessage) (interface{}, *ApiError) {
	requestID, apiErr := h.requestIDArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := h.lifecycleService.Reject(c.Request.Context(), requestID, claims.UID); err != nil {
		return nil, fromError("rejectRequest", err)
	}
	return gin.H{"ok": true}, nil
}

func (h *JsonApiHandler) getRequest(c *gin.Context, claims *auth.Claims, args json.RawMessage) (interface{}, *ApiError) {
	requestID, apiErr := h.requestIDArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	detail, err := h.requestService.GetRequest(c.Request.Context(), requestID, claims.UID)
	if err != nil {
		return nil, fromError("getRequest", err)
	}
	return detail, nil
}

func (h *JsonApiHandler) listMyRequests(c *gin.Context, claims *auth.Claims, _ json.RawMessage) (interface{}, *ApiError) {
	list, err := h.requestService.ListMyRequests(c.Request.Context(), claims.UID)
	if err != nil {
		return nil, fromError("listMyRequests", err)
	}
	return list, nil
}

func (h *JsonApiHandler) getRequestContact(c *gin.Context, claims *auth.Claims, args json.RawMessage) (interface{}, *ApiError) {
	requestID, apiErr := h.requestIDArg(args)
	if apiErr != nil {
		return nil, apiErr
	}
	email, err := h.requestService.GetContact(c.Request.Context(), requestID, claims.UID)
	if err != nil {
		return nil, fromError("getRequestContact", err)
	}
	return gin.H{"email": email}, nil
}

func (h *JsonApiHandler) getMyProfile(c *gin.Context, claims *auth.Claims, _ json.RawMessage) (interface{}, *ApiError) {
	profile, err := h.accompanistService.GetMyProfile(c.Request.Context(), claims.UID, claims.Email)
	if err != nil {
		return nil, fromError("getMyProfile", err)
	}
	return profile, nil
}

func (h *JsonApiHandler) saveProfile(c *gin.Context, claims *auth.Claims, args json.RawMessage) (interface{}, *ApiError) {
	arg, apiErr := parseRequiredSingleArgFromArray(args)
	if apiErr != nil {
		return nil, apiErr
	}
	violations, err := validateShape(c.Request.Context(), saveProfileArgSchema, arg)
	if err != nil || violations != "" {
		log.Printf("DEBUG: saveProfile argument rejected by schema: %s %v", violations, err)
		return nil, NewApiError(apperr.CodeInvalidArgument, "프로필 형식이 올바르지 않습니다.")
	}

	var in services.ProfileInput
	if err := json.Unmarshal(arg, &in); err != nil {
		return nil, NewApiError(apperr.CodeInvalidArgument, "프로필 형식이 올바르지 않습니다.")
	}
	profile, err := h.accompanistService.SaveProfile(c.Request.Context(), claims.UID, claims.Email, in)
	if err != nil {
		return nil, fromError("saveProfile", err)
	}
	return profile, nil
}

// GetUploadURLArgs are the arguments of getPortfolioUploadURL.
type GetUploadURLArgs struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

func (h *JsonApiHandler) getPortfolioUploadURL(c *gin.Context, claims *auth.Claims, args json.RawMessage) (interface{}, *ApiError) {
	var in GetUploadURLArgs
	if apiErr := decodeSingleArg(args, &in); apiErr != nil {
		return nil, apiErr
	}
	if h.storageService == nil {
		return nil, NewApiError(apperr.CodeFailedPrecondition, "포트폴리오 업로드 설정이 필요합니다.")
	}

	upload, err := h.storageService.PresignPortfolioUpload(c.Request.Context(), claims.UID, in.Filename, in.ContentType)
	switch {
	case errors.Is(err, storage.ErrUnsupportedContentType):
		return nil, NewApiError(apperr.CodeInvalidArgument, "지원하지 않는 파일 형식입니다.")
	case errors.Is(err, storage.ErrStorageNotConfigured):
		return nil, NewApiError(apperr.CodeFailedPrecondition, "포트폴리오 업로드 설정이 필요합니다.")
	case err != nil:
		return nil, fromError("getPortfolioUploadURL", err)
	}
	return upload, nil
}
