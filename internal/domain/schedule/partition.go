package schedule

// SplitEven partitions list into n consecutive groups whose sizes differ by at
// most one, larger groups first. 17 into 3 gives 6, 6, 5.
// Groups may be empty when len(list) < n.
func SplitEven[T any](list []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	out := make([][]T, n)
	base, extra := len(list)/n, len(list)%n
	pos := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		out[i] = list[pos : pos+size]
		pos += size
	}
	return out
}

// SplitSizes cuts list into consecutive groups of the given sizes followed by
// one group holding the remainder. Sizes beyond the end of list are clipped,
// so the result always has len(sizes)+1 groups.
func SplitSizes[T any](list []T, sizes ...int) [][]T {
	out := make([][]T, 0, len(sizes)+1)
	pos := 0
	for _, size := range sizes {
		end := min(pos+max(size, 0), len(list))
		out = append(out, list[pos:end])
		pos = end
	}
	return append(out, list[pos:])
}
