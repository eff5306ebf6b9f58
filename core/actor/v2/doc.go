// Package actor provides a mailbox-based actor model implementation for
// building concurrent, message-driven systems.
//
// Actors are the fundamental unit of computation in this package. Each actor:
//   - Has a unique identity
//   - Processes messages sequentially from its mailbox
//   - Can schedule background tasks via [HandlerCtx.Schedule]
//   - Can be paused, resumed, and stepped for debugging/testing
//
// # Creating Actors
//
// The simplest way to create an actor is using typed handlers:
//
//	actor := actor.TypedHandlers(
//	    actor.HandleMsg[CreateUserCmd](func(hc actor.HandlerCtx, cmd CreateUserCmd) error {
//	        // Handle the command
//	        return nil
//	    }),
//	    actor.HandleRequest[GetUserQuery, *User](func(hc actor.HandlerCtx, q GetUserQuery) (*User, error) {
//	        // Handle request and return response
//	        return &User{ID: q.ID}, nil
//	    }),
//	    actor.HandleEvery(time.Minute, func(hc actor.HandlerCtx) error {
//	        // Periodic task executed every minute
//	        return nil
//	    }),
//	).ToActor(actor.Options{})
//
// # Message Handling
//
// Messages are dispatched by type name to registered handlers:
//
//   - [HandleMsg] registers a one-way message handler (fire-and-forget)
//   - [HandleRequest] registers a request-response handler
//   - [HandleEvery] registers a periodic task that runs at fixed intervals
//   - [DefaultHandler] registers a fallback for unmatched message types
//   - [Init] registers initialization logic run when the actor starts
//
// # Sending Messages
//
// Use [Request] for request-response patterns:
//
//	user, err := actor.Request[GetUserQuery, *User](ctx, myActor, GetUserQuery{ID: "123"})
//
// Use [Publish] for fire-and-forget messages:
//
//	err := actor.Publish[CreateUserCmd](ctx, myActor, CreateUserCmd{Name: "Alice"})
//
// # Background Tasks
//
// Handlers can schedule background work via [HandlerCtx.Schedule]:
//
//	actor.HandleMsg[ProcessDataCmd](func(hc actor.HandlerCtx, cmd ProcessDataCmd) error {
//	    hc.Schedule(func() {
//	        // This runs asynchronously, outside the actor's mailbox processing
//	        processInBackground(cmd.Data)
//	    })
//	    return nil
//	})
//
// Stopping an actor does not wait for its scheduled tasks; a task may still be
// running after [Actor.Done] is closed.
//
// # Self-Requests
//
// Requests a handler sends to its own actor are not detected. The actor
// cannot process such a request while the handler is still running, so a
// handler that waits for the reply blocks until the request's context is done.
//
// # Lifecycle Control
//
// Actors support pause/resume for debugging and testing:
//
//	actor.Pause()       // Stop processing messages
//	actor.Step()        // Process exactly one message
//	actor.Resume()      // Continue normal processing
//	<-actor.Done()      // Wait for actor shutdown
//
// # Pool Mode
//
// By default each actor owns a dedicated goroutine for its entire lifetime.
// Setting [Options.Pool] switches an actor to run its turns on a shared
// [github.com/wavepool/actorcpu/core/cpu.Pool] instead: the actor becomes a
// cpu.Handle that is submitted for a bounded turn (see [Options.TurnBudget])
// whenever it has work, and yields the worker back to the pool the moment it
// runs dry. Handlers, Send/Request and Pause/Resume/Step work the same way in
// both modes, with two differences: a handler panic is answered with an
// "actor handler panicked" error in pool mode but with a nil error by the
// dedicated goroutine; and only the dedicated goroutine stops when
// [Options.Context] is cancelled, while a pool-mode actor stops only through
// Stop. The pool's [cpu.Executor] for this purpose is [NewPoolExecutor].
package actor
