package inferrer

// FilterRedundantFrames implements spec.md §4.3's post-processing pass:
// drop the Solidity-0.8.5 CallstackEntry/ReturndataSizeError artifact, and
// drop a frame whose source range contains (or, for a recursive-call
// duplicate, exactly equals) its successor's — while always keeping a
// constructor frame whose successor is not also a constructor frame.
func FilterRedundantFrames(stacktrace []StackTraceEntry) []StackTraceEntry {
	keep := make([]bool, len(stacktrace))
	for i := range stacktrace {
		keep[i] = true
	}

	for i, frame := range stacktrace {
		var next, nextNext StackTraceEntry
		if i+1 < len(stacktrace) {
			next = stacktrace[i+1]
		}
		if i+2 < len(stacktrace) {
			nextNext = stacktrace[i+2]
		}

		if next == nil {
			continue
		}
		frameRef := frame.SourceRef()
		nextRef := next.SourceRef()
		if frameRef == nil || nextRef == nil {
			continue
		}

		if _, ok := frame.(CallstackEntry); ok && nextNext != nil {
			if rd, ok := nextNext.(ReturndataSizeError); ok {
				rdRef := rd.SourceRef()
				if rdRef != nil && rdRef.RangeStart == frameRef.RangeStart && rdRef.RangeEnd == frameRef.RangeEnd && rdRef.Line == frameRef.Line {
					keep[i] = false
					continue
				}
			}
		}

		if frameRef.Function != nil && *frameRef.Function == ConstructorFunctionName &&
			!(nextRef.Function != nil && *nextRef.Function == ConstructorFunctionName) {
			continue // constructor boundary: always retained
		}

		if frameRef.RangeStart <= nextRef.RangeStart && frameRef.RangeEnd >= nextRef.RangeEnd {
			keep[i] = false
		}
	}

	out := make([]StackTraceEntry, 0, len(stacktrace))
	for i, frame := range stacktrace {
		if keep[i] {
			out = append(out, frame)
		}
	}
	return out
}
