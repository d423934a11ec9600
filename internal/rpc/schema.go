package rpc

// schemaSource is the compiler submission service's proto3 schema. It is
// parsed at runtime with protoreflect/protoparse rather than compiled
// ahead of time with protoc, so the gRPC method descriptors and dynamic
// messages below can be built without generated .pb.go stubs.
const schemaSource = `
syntax = "proto3";
package fluxcore;

message SubmitRequest {
  string source = 1;
}

message SubmitResponse {
  string submission_id = 1;
  bytes bytecode = 2;
}

service CompilerService {
  rpc Submit(SubmitRequest) returns (SubmitResponse);
}
`

const schemaFileName = "fluxcore.proto"
