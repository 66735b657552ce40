package handlers

import (
	"context"
	"encoding/json"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/auth"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/tools"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	toolServiceName   = "gbizinfo.v1.ToolService"
	callToolMethod    = auth.CallToolMethod
	listToolsMethod   = "/" + toolServiceName + "/ListTools"
	callToolNameField = "name"
	callToolArgsField = "arguments"
)

// ToolServiceServer is the server API of gbizinfo.v1.ToolService.
//
// CallTool takes {"name": string, "arguments": object} and answers
// {"result": value}. ListTools answers {"tools": [...]}.
type ToolServiceServer interface {
	CallTool(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTools(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ToolServiceDesc describes gbizinfo.v1.ToolService for grpc.Server.RegisterService.
var ToolServiceDesc = grpc.ServiceDesc{
	ServiceName: toolServiceName,
	HandlerType: (*ToolServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CallTool", Handler: callToolHandler},
		{MethodName: "ListTools", Handler: listToolsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gbizinfo/v1/tools.proto",
}

func callToolHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolServiceServer).CallTool(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: callToolMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ToolServiceServer).CallTool(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listToolsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ToolServiceServer).ListTools(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listToolsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ToolServiceServer).ListTools(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ToolServiceClient is the client API of gbizinfo.v1.ToolService.
type ToolServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewToolServiceClient(cc grpc.ClientConnInterface) *ToolServiceClient {
	return &ToolServiceClient{cc: cc}
}

func (c *ToolServiceClient) CallTool(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, callToolMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ToolServiceClient) ListTools(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listToolsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ToolHandler serves ToolService over a tool Registry.
type ToolHandler struct {
	registry *tools.Registry
	logger   *zap.Logger
}

// NewToolHandler constructs a ToolHandler over the given registry.
func NewToolHandler(registry *tools.Registry, logger *zap.Logger) *ToolHandler {
	return &ToolHandler{
		registry: registry,
		logger:   logger.Named("grpc_handler"),
	}
}

// CallTool runs the named tool with the given arguments.
func (h *ToolHandler) CallTool(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()[callToolNameField].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}

	var args json.RawMessage
	if v, ok := req.GetFields()[callToolArgsField]; ok {
		data, err := v.MarshalJSON()
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "arguments must be a JSON object")
		}
		args = data
	}

	res, err := h.registry.Call(ctx, name, args)
	if err != nil {
		h.logger.Debug("CallTool failed",
			zap.String("tool", name),
			zap.String("subject", auth.Subject(ctx)),
			zap.Error(err),
		)
		return nil, h.mapServiceError(err)
	}

	value, err := toValue(res)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"result": value}}, nil
}

// ListTools describes every registered tool.
func (h *ToolHandler) ListTools(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	list := h.registry.List()
	values := make([]*structpb.Value, 0, len(list))
	for _, t := range list {
		s, err := toolToStruct(t)
		if err != nil {
			return nil, h.mapServiceError(err)
		}
		values = append(values, structpb.NewStructValue(s))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"tools": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}, nil
}
