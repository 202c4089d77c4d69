/*
Package delta provides change tracking for plain Go values: watchers that
report when a value changes, a history store with undo and redo, and a
shared store that fans updates out to subscribers.

delta does not intercept writes. A watcher re-reads its source each time it
is ticked and compares the result with the previous snapshot. Ticks come
from the host, either called directly or driven by a Pump and a Scheduler.

# Watching

Watch a value and tick it whenever it may have changed:

	count := delta.NewRef(0)
	w := delta.Watch(ctx, count.Source(), func(curr, prev int, onCleanup func(func())) {
	    fmt.Printf("%d -> %d\n", prev, curr)
	})

	count.Set(1)
	w.Tick() // prints 0 -> 1

Options adjust the comparison and the first delivery:

	delta.Deep()       // structural comparison and deep snapshots
	delta.Immediate()  // deliver the initial value at construction
	delta.Once()       // stop after the first delivery

# Decorators

	delta.WatchPausable(ctx, src, cb)         // Pause/Resume deliveries
	delta.WatchAtMost(ctx, src, 3, cb)        // stop after three deliveries
	delta.WatchWithFilter(ctx, src, f, cb)    // debounce, throttle or gate
	delta.WatchArray(ctx, src, cb)            // added and removed elements
	delta.Whenever(ctx, src, cb)              // only truthy values

# History

A History tracks a Cell and records a snapshot each time it changes:

	doc := delta.NewRef(Document{})
	h := delta.NewHistory[Document](ctx, doc, delta.Deep(), delta.WithCapacity(50))

	doc.Set(edited)
	h.Tick()
	h.Undo() // doc holds the previous Document again
	h.Redo()

Commits are deferred by default (FlushPre) so bursts of changes collapse
into one entry. FlushSync commits on every detected change.

# Store

A Store holds one shared value. Bindings mirror it and dispatch actions:

	store := delta.NewStore(ctx, Settings{})
	b := store.Bind()
	b.Dispatch(delta.Update(func(s Settings) Settings { s.Dark = true; return s }))

# Scheduling

A Pump ticks targets whenever a Scheduler fires, debouncing bursts:

	cell := delta.NewFileCell("config.yaml", Config{}, nil)
	h := delta.NewHistory[Config](ctx, cell, delta.Deep())
	pump := delta.NewPump(delta.NewFileScheduler(cell.Path()), h)
	pump.Start(ctx)

Schedulers ship for channels, intervals and files; pkg/redis and
pkg/postgres add Redis keyspace notifications and PostgreSQL LISTEN/NOTIFY.

# Observability

Every component emits capitan signals (see signals.go and fields.go), and a
Pump reports rounds to an optional MetricsProvider.
*/
package delta
