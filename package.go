// Package harness hosts units of asynchronous LLM work and makes their
// outcome safe to observe under concurrency.
//
// A host wraps one unit of work, starts it eagerly, merges cancellation
// sources, buffers and fans produced events out to any number of
// observers, classifies the terminal outcome, and runs finalize hooks
// exactly once no matter how observing, awaiting, canceling, and cleanup
// interleave.
//
// # Quick Start: Streaming Host
//
//	llm, _ := openai.New(openai.WithToken(apiKey))
//	model := models.NewLCGWrapper(llm).WithName("gpt-4o")
//
//	host := harness.StartStream(
//	    func(ctx context.Context, s *harness.Session) (string, error) {
//	        s.Emit("status", map[string]any{"phase": "drafting"})
//
//	        resp, err := s.Generate(ctx, messages)
//	        if err != nil {
//	            return "", err
//	        }
//
//	        s.Emit("status", map[string]any{"phase": "done"})
//	        return resp.Choices[0].Content, nil
//	    },
//	    harness.WithModel(model),
//	    harness.WithPricing(harness.DefaultPricing()),
//	)
//
//	// Observe live (any number of observers; late ones replay first).
//	events, unsub := host.Stream()
//	defer unsub()
//	for ev := range events {
//	    fmt.Println(ev.Type)
//	}
//
//	// Await the outcome. No error handling needed for work failures:
//	// inspect the tag.
//	res, _ := host.Result(context.Background())
//	if res.Kind == harness.OutcomeSucceeded {
//	    fmt.Println(res.Value, res.Summary.Cost)
//	}
//
// # Hosts
//
// [Start] runs a plain asynchronous function to one value with no event
// stream. [StartStream] drives work that emits a sequence of domain
// events through its [Session] before producing a final value. Both
// return hosts that satisfy [Host] and share the same lifecycle:
//
//	created -> running -> terminal (outcome memoized, buffer frozen,
//	hooks run) -> disposed
//
// No transition ever reverses, the work runs exactly once, and repeated
// Result calls return the identical snapshot.
//
// # Events
//
// Work emits domain events with Session.Emit; each is stamped with
// timing metrics and broadcast in order. The host synthesizes the
// reserved terminal event ([EventComplete] or [EventError]) from the
// work function's return; Emit rejects the reserved types so user code
// cannot forge a terminal.
//
// Each Stream call is independent: it replays the full backlog, then
// continues live. Observers never see events out of order, and an
// observer that abandons its subscription never blocks the host or
// other observers.
//
// # Cancellation
//
// Cancellation is cooperative and merged from every source: the host's
// own Cancel, Cleanup, and any contexts passed via [WithCancelParents]
// all feed one effective context, which fires at most once and keeps
// the first trigger's reason. Work that ends with an abort-shaped error
// while the effective context is canceled folds into [OutcomeCanceled];
// it is never surfaced as a failure.
//
// # Transformers
//
// [MapEvents] and [MapValue] derive a host that transforms the stream or
// just the final value while delegating the lifecycle to the wrapped
// host. A failing transform synthesizes an error event instead of
// crashing the stream.
package harness
