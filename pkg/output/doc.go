/*
Package output serializes human-readable progress text from concurrent
tasks onto one shared destination.

A Console owns the destination and a mutex. Tasks never write to it
directly; they get a Sink:

  - Direct sinks write each unit immediately, holding the console lock
    for that unit only. Lines from concurrent direct sinks may alternate,
    but a single line or Emit block is never split.
  - Buffered sinks append to a buffer private to the task with no locking
    and publish the whole buffer as one block when closed. Blocks from
    concurrent buffered sinks never interleave; inside a block, lines keep
    append order.

Choosing between the two is a configuration decision:

	console := output.NewConsole(os.Stdout)
	sink := console.NewSink(output.ModeBuffered)
	defer sink.Close()

	sink.Line("analyzing")
	sink.Emit("line one\nline two")
*/
package output
