package slurm

import (
	"fmt"
	"strconv"
	"strings"
)

const maxHostlistSize = 1 << 16

// ExpandHostlist expands a Slurm hostlist such as "node[001-003,007],gpu01"
// into node names, keeping the zero padding of each range.
func ExpandHostlist(expr string) ([]string, error) {
	var hosts []string
	seen := map[string]bool{}
	for _, item := range splitTopLevel(strings.TrimSpace(expr)) {
		if item == "" {
			continue
		}
		expanded, err := expandItem(item)
		if err != nil {
			return nil, fmt.Errorf("hostlist %q: %w", expr, err)
		}
		for _, host := range expanded {
			if !seen[host] {
				seen[host] = true
				hosts = append(hosts, host)
			}
		}
		if len(hosts) > maxHostlistSize {
			return nil, fmt.Errorf("hostlist %q: too many hosts", expr)
		}
	}
	return hosts, nil
}

func splitTopLevel(expr string) []string {
	var items []string
	depth, start := 0, 0
	for i, r := range expr {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, expr[start:i])
				start = i + 1
			}
		}
	}
	return append(items, expr[start:])
}

func expandItem(item string) ([]string, error) {
	open := strings.IndexByte(item, '[')
	if open < 0 {
		if strings.ContainsRune(item, ']') {
			return nil, fmt.Errorf("unbalanced bracket in %q", item)
		}
		return []string{item}, nil
	}
	closing := strings.IndexByte(item[open:], ']')
	if closing < 0 {
		return nil, fmt.Errorf("unbalanced bracket in %q", item)
	}
	closing += open

	prefix, ranges, rest := item[:open], item[open+1:closing], item[closing+1:]
	suffixes, err := expandItem(rest)
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, part := range strings.Split(ranges, ",") {
		values, err := expandRange(part)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			for _, suffix := range suffixes {
				hosts = append(hosts, prefix+v+suffix)
			}
		}
	}
	return hosts, nil
}

func expandRange(part string) ([]string, error) {
	lo, hi, isRange := strings.Cut(strings.TrimSpace(part), "-")
	if !isRange {
		hi = lo
	}
	from, err := strconv.Atoi(lo)
	if err != nil {
		return nil, fmt.Errorf("invalid range %q", part)
	}
	to, err := strconv.Atoi(hi)
	if err != nil {
		return nil, fmt.Errorf("invalid range %q", part)
	}
	if to < from {
		return nil, fmt.Errorf("descending range %q", part)
	}
	if to-from >= maxHostlistSize {
		return nil, fmt.Errorf("range %q is too large", part)
	}

	width := len(lo)
	values := make([]string, 0, to-from+1)
	for n := from; n <= to; n++ {
		values = append(values, fmt.Sprintf("%0*d", width, n))
	}
	return values, nil
}
