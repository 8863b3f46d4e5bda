// Package markov provides a self-tuning task dispatcher.
//
// A fixed pool of workers executes tasks submitted to one of two input
// queues, normal and immediate. Which queue is serviced next is decided by a
// three-state Markov decision process whose value table is re-estimated by a
// value iteration task running inside the same dispatcher:
//
//   - dispatcher: control loop, policy lookup and least-loaded routing
//   - processor: worker pool, one FIFO queue per worker
//   - valueiter: self-resubmitting value iteration task
//   - calculator: offline value iteration with CSV output
//
// Typical usage:
//
//	srv, _ := markov.New(markov.WithWorkers(4))
//	rt := srv.Runtime()
//	go rt.Launch(ctx)
//	_, _ = rt.Submit(ctx, "resize", resizeFn)
//	_, _ = rt.SubmitImmediate(ctx, "alert", alertFn)
package markov
