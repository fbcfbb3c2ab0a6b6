package nucode

// The fixed PASM Nu interpreter and BRK debugger prologue are opaque
// suppliers this module does not author (spec.md §1): the original loads
// sys_p2_brkdebug.spin as an externally assembled blob
// (original_source/backends/brkdebug.c:270) rather than generating it.
// DefaultPrologue is that same kind of injected byte string, sized to cover
// the fixed offsets CompileTable patches; a real build supplies the actual
// assembled sys_p2_brkdebug.spin bytes in its place.
var DefaultPrologue = make([]byte, 0xB4)
