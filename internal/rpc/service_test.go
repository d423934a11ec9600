package rpc

import (
	"context"
	"net"
	"testing"

	"github.com/jhump/protoreflect/dynamic"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/pipeline"
	"github.com/funvibe/fluxcore/internal/syntax"
)

func TestServiceSubmitOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }

	p := pipeline.New(env.New())
	svc, err := NewService(p, syntax.ParseSubmissions)
	require.NoError(t, err)

	srv := grpc.NewServer()
	svc.Register(srv)
	go srv.Serve(lis)
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	method := svc.sd.FindMethodByName("Submit")

	req := dynamic.NewMessage(method.GetInputType())
	require.NoError(t, req.TrySetFieldByName("source", "data x: Int = 3"))
	resp := dynamic.NewMessage(method.GetOutputType())

	ctx := context.Background()
	require.NoError(t, conn.Invoke(ctx, "/fluxcore.CompilerService/Submit", req, resp))

	bc, _ := resp.TryGetFieldByName("bytecode")
	bytecode, _ := bc.([]byte)
	require.NotEmpty(t, bytecode)

	id, _ := resp.TryGetFieldByName("submission_id")
	require.NotEmpty(t, id)
}
