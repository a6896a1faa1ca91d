// Package worker runs the single goroutine that owns engine and video state.
//
// The loop multiplexes two inputs: commands arriving over the bridge and
// requests drained from the dispatch queue. Both are handled on this one
// goroutine, so bridge handlers, the remote inference call and all ego
// callbacks share exclusive access to worker-owned state without locks.
//
// The command vocabulary is an extensible verb-to-handler table. A handler
// returns a reply value or an error; errors are replied as values so the
// façade can map them to transport status codes without the loop dying. A
// handler may also keep the command and reply later from an ego callback, the
// pattern behind synchronous "analyze this frame" façade routes.
package worker
