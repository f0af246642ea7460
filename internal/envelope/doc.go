// Package envelope turns scripted operations into protocol-correct HTTP
// requests for the two styles the Sebo service exposes.
//
// Resource style (StyleREST) addresses a path under the base endpoint:
//
//	GET    /produtos?termo=python
//	POST   /produtos                {"id":"T1", ...}
//	DELETE /produtos/T1
//	POST   /transacoes/troca        {"produto_a_id":"E1","produto_b_id":"E2"}
//
// Invocation style (StyleRPC) always posts an RPCEnvelope to /invoke:
//
//	{"requestId":1,"objectReference":"CatalogoService","methodId":"listar",
//	 "arguments":{"args":[],"kwargs":{}}}
//
// Building is pure. Operation.Validate catches malformed scripts (scripting
// errors) before anything is dispatched; Builder.Build never fails for a
// validated operation.
package envelope
