/*
Package agent simulates a git workflow agent: each task runs the steps
Analyze, Stage, Commit, Push and OpenRequest in strict order, printing a
boxed header, a few detail lines, a timed wait and a success line per step.

Tasks are run as pipelines. Sequential mode writes each line straight to
the shared console and can animate waits with a spinner. Concurrent mode
gives every task its own goroutine and a buffered sink, so a task's whole
transcript reaches the console as one uninterrupted block when it ends:

	console := output.NewConsole(os.Stdout)
	r := agent.NewRunner(console)
	elapsed, err := r.RunPipelines(ctx, agent.DefaultTasks(), agent.Concurrent)

A failing task does not stop the others. Their errors are joined into the
returned error, and every step is recorded as a span on Runner.Tracer.
*/
package agent
