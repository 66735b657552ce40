package handlers

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/auth"
	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const testSecret = "grpc-secret"

func startToolService(t *testing.T, svc *stubService) *ToolServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnaryInterceptor(auth.NewAuthInterceptor(testSecret).Unary()))
	srv.RegisterService(&ToolServiceDesc, NewToolHandler(newTestRegistry(t, svc), zaptest.NewLogger(t)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewToolServiceClient(conn)
}

func authed(t *testing.T) context.Context {
	t.Helper()
	token, err := auth.GenerateToken("tester", testSecret, time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func callRequest(t *testing.T, name string, args map[string]any) *structpb.Struct {
	t.Helper()
	fields := map[string]any{"name": name}
	if args != nil {
		fields["arguments"] = args
	}
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return req
}

func TestToolHandler_ListToolsIsPublic(t *testing.T) {
	client := startToolService(t, &stubService{})

	res, err := client.ListTools(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	list := res.GetFields()["tools"].GetListValue().GetValues()
	require.Len(t, list, 17)
	first := list[0].GetStructValue().GetFields()
	assert.Equal(t, "search", first["name"].GetStringValue())
	assert.Equal(t, "object", first["inputSchema"].GetStructValue().GetFields()["type"].GetStringValue())
}

func TestToolHandler_CallToolRequiresToken(t *testing.T) {
	client := startToolService(t, &stubService{})

	_, err := client.CallTool(context.Background(), callRequest(t, "get_finance", map[string]any{"corporateNumber": "1234567890123"}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestToolHandler_CallTool(t *testing.T) {
	svc := &stubService{}
	client := startToolService(t, svc)

	res, err := client.CallTool(authed(t), callRequest(t, "get_finance", map[string]any{"corporateNumber": "1234567890123"}))
	require.NoError(t, err)

	infos := res.GetFields()["result"].GetStructValue().GetFields()["hojin-infos"].GetListValue().GetValues()
	require.Len(t, infos, 1)
	assert.Equal(t, "1234567890123", infos[0].GetStructValue().GetFields()["corporate_number"].GetStringValue())
	assert.Equal(t, []string{"detail:finance:1234567890123"}, svc.calls)
}

func TestToolHandler_CallToolSearch(t *testing.T) {
	client := startToolService(t, &stubService{})

	res, err := client.CallTool(authed(t), callRequest(t, "search", map[string]any{"name": "X", "limit": 1}))
	require.NoError(t, err)

	result := res.GetFields()["result"].GetStructValue().GetFields()
	assert.Equal(t, float64(1), result["total"].GetNumberValue())
	assert.Equal(t, float64(1), result["size"].GetNumberValue())
	items := result["items"].GetListValue().GetValues()
	require.Len(t, items, 1)
	assert.Equal(t, "X", items[0].GetStructValue().GetFields()["name"].GetStringValue())
}

func TestToolHandler_CallToolErrors(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		client := startToolService(t, &stubService{})
		_, err := client.CallTool(authed(t), callRequest(t, "", nil))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("unknown tool", func(t *testing.T) {
		client := startToolService(t, &stubService{})
		_, err := client.CallTool(authed(t), callRequest(t, "get_everything", nil))
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("validation carries field violation", func(t *testing.T) {
		client := startToolService(t, &stubService{})
		_, err := client.CallTool(authed(t), callRequest(t, "get_patent", map[string]any{}))

		st := status.Convert(err)
		assert.Equal(t, codes.InvalidArgument, st.Code())
		assert.Equal(t, "corporateNumber is required", st.Message())
		require.Len(t, st.Details(), 1)
		br, ok := st.Details()[0].(*errdetails.BadRequest)
		require.True(t, ok)
		assert.Equal(t, "corporateNumber", br.GetFieldViolations()[0].GetField())
	})

	t.Run("upstream error carries status and id", func(t *testing.T) {
		svc := &stubService{err: &e.CommunicationError{Op: "get_basic_info", Err: &e.APIError{StatusCode: 404, Message: "not found", ID: "E404"}}}
		client := startToolService(t, svc)
		_, err := client.CallTool(authed(t), callRequest(t, "get_basic_info", map[string]any{"corporateNumber": "1234567890123"}))

		st := status.Convert(err)
		assert.Equal(t, codes.NotFound, st.Code())
		assert.Equal(t, "not found", st.Message())
		require.Len(t, st.Details(), 1)
		info, ok := st.Details()[0].(*errdetails.ErrorInfo)
		require.True(t, ok)
		assert.Equal(t, "404", info.GetMetadata()["status"])
		assert.Equal(t, "E404", info.GetMetadata()["id"])
		assert.Equal(t, upstreamDomain, info.GetDomain())
	})
}
