// Package rpc exposes the compiler pipeline over gRPC. It follows the
// runtime-dynamic-proto idiom rather than protoc-generated stubs: the
// service's .proto schema is parsed at startup with protoparse, its method
// descriptors resolved with desc, and its wire messages built/decoded as
// dynamic.Message values, so a grpc.ServiceDesc can be constructed by hand
// and registered directly on a *grpc.Server.
package rpc

import (
	"context"
	"fmt"
	"log"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"

	"github.com/funvibe/fluxcore/internal/ast"
	"github.com/funvibe/fluxcore/internal/pipeline"
)

// Parser turns submission source text into a batch of ast.Submission
// values. internal/syntax.ParseSubmissions satisfies this signature; it is
// injected rather than imported directly so this package stays agnostic
// of any particular front end.
type Parser func(source string) ([]ast.Submission, error)

// Service adapts a pipeline.Pipeline to the CompilerService gRPC
// service described by schemaSource.
type Service struct {
	Pipeline *pipeline.Pipeline
	Parse    Parser

	sd *desc.ServiceDescriptor
}

// NewService parses the embedded schema and returns a Service ready to be
// registered on a grpc.Server.
func NewService(p *pipeline.Pipeline, parse Parser) (*Service, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{schemaFileName: schemaSource}),
	}
	fds, err := parser.ParseFiles(schemaFileName)
	if err != nil {
		return nil, fmt.Errorf("parsing rpc schema: %w", err)
	}
	sd := fds[0].FindService("fluxcore.CompilerService")
	if sd == nil {
		return nil, fmt.Errorf("fluxcore.CompilerService not found in schema")
	}
	return &Service{Pipeline: p, Parse: parse, sd: sd}, nil
}

// Register builds the grpc.ServiceDesc by hand from the resolved method
// descriptors and registers it on srv, using the manually-constructed
// ServiceDesc + dynamic-message handler pattern for proto-less gRPC
// services.
func (s *Service) Register(srv *grpc.Server) {
	gd := &grpc.ServiceDesc{
		ServiceName: s.sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Metadata:    s.sd.GetFile().GetName(),
	}
	for _, md := range s.sd.GetMethods() {
		method := md
		gd.Methods = append(gd.Methods, grpc.MethodDesc{
			MethodName: method.GetName(),
			Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				return s.handleSubmit(ctx, method, dec)
			},
		})
	}
	srv.RegisterService(gd, s)
}

func (s *Service) handleSubmit(ctx context.Context, md *desc.MethodDescriptor, dec func(interface{}) error) (interface{}, error) {
	in := dynamic.NewMessage(md.GetInputType())
	if err := dec(in); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	source, _ := in.TryGetFieldByName("source")
	src, _ := source.(string)

	subs, err := s.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	res, err := s.Pipeline.Submit(subs)
	if err != nil {
		return nil, fmt.Errorf("submission rejected: %w", err)
	}
	log.Printf("rpc: submission %s accepted over %s", res.SubmissionID, md.GetName())

	out := dynamic.NewMessage(md.GetOutputType())
	if err := out.TrySetFieldByName("submission_id", res.SubmissionID.String()); err != nil {
		return nil, err
	}
	if err := out.TrySetFieldByName("bytecode", res.Bytecode); err != nil {
		return nil, err
	}
	return out, nil
}
