// Package server publishes store snapshots to local consumers.
//
// Routes:
//
//	GET    /ws                     WebSocket feed
//	GET    /snapshot               current snapshot as JSON
//	GET    /healthz                liveness and current update id
//	GET    /metrics                Prometheus exposition
//	POST   /api/cards/{key}/cycle  cycle art, ?dir=next|prev
//	DELETE /api/cards/{key}/art    reset art overrides
//
// A WebSocket client receives the current snapshot on connect and then every
// forwarded snapshot as {"type":"snapshot","data":{...}}. Snapshots are
// throttled on the trailing edge (DefaultEmitInterval) and a client never
// sees an updateId go backwards. Clients may send
//
//	{"type":"cycle_art","key":"mtga:1001","dir":"next","requestId":"1"}
//	{"type":"reset_art","key":"mtga:1001"}
//	{"type":"ping"}
//
// and receive an ack, error or pong in reply. The resulting state change
// arrives through the normal snapshot feed.
//
// Hub, Forwarder and Server each implement Serve(ctx) so they can run under
// a supervisor.
package server
