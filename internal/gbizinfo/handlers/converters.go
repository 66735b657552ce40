package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/tools"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/structpb"
)

const upstreamDomain = "info.gbiz.go.jp"

// toValue converts any JSON-encodable result into a protobuf Value.
func toValue(v any) (*structpb.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return structpb.NewValue(generic)
}

// toolToStruct renders a tool descriptor for ListTools.
func toolToStruct(t *tools.Tool) (*structpb.Struct, error) {
	var schema map[string]any
	if err := json.Unmarshal(t.Schema, &schema); err != nil {
		return nil, fmt.Errorf("decode schema for %s: %w", t.Name, err)
	}
	return structpb.NewStruct(map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"inputSchema": schema,
	})
}

// toolDescriptor is the REST listing entry of a tool.
type toolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

func describe(list []*tools.Tool) []toolDescriptor {
	out := make([]toolDescriptor, 0, len(list))
	for _, t := range list {
		out = append(out, toolDescriptor{Name: t.Name, Description: t.Description, InputSchema: t.Schema})
	}
	return out
}

// mapServiceError maps domain and upstream errors to gRPC statuses carrying
// structured details.
func (h *ToolHandler) mapServiceError(err error) error {
	var (
		v   *e.ValidationError
		api *e.APIError
		st  *status.Status
	)
	switch {
	case errors.Is(err, e.ErrUnknownTool):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &v):
		st = status.New(codes.InvalidArgument, v.Error())
		if v.Field != "" {
			st = withDetails(st, &errdetails.BadRequest{
				FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: v.Field, Description: v.Reason}},
			})
		}
	case errors.Is(err, e.ErrInvalidInput):
		st = status.New(codes.InvalidArgument, err.Error())
	case errors.As(err, &api):
		meta := map[string]string{"status": strconv.Itoa(api.StatusCode)}
		if api.ID != "" {
			meta["id"] = api.ID
		}
		st = withDetails(status.New(upstreamCode(api.StatusCode), api.Message), &errdetails.ErrorInfo{
			Reason:   "UPSTREAM_ERROR",
			Domain:   upstreamDomain,
			Metadata: meta,
		})
	case errors.As(err, new(*e.CommunicationError)):
		st = status.New(codes.Unavailable, err.Error())
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, fmt.Sprintf("internal server error: %v", err))
	}
	return st.Err()
}

// withDetails attaches details to st, keeping the bare status if they cannot
// be encoded.
func withDetails(st *status.Status, details ...protoadapt.MessageV1) *status.Status {
	if detailed, err := st.WithDetails(details...); err == nil {
		return detailed
	}
	return st
}

// upstreamCode maps an upstream HTTP status onto the closest gRPC code.
func upstreamCode(httpStatus int) codes.Code {
	switch {
	case httpStatus == http.StatusBadRequest:
		return codes.InvalidArgument
	case httpStatus == http.StatusUnauthorized:
		return codes.Unauthenticated
	case httpStatus == http.StatusForbidden:
		return codes.PermissionDenied
	case httpStatus == http.StatusNotFound:
		return codes.NotFound
	case httpStatus == http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case httpStatus >= 400 && httpStatus < 500:
		return codes.FailedPrecondition
	default:
		return codes.Unavailable
	}
}

// writeJSON answers with v encoded as JSON.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the error payload and its mapped status.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, e.HTTPStatus(err), e.ToPayload(err))
}
